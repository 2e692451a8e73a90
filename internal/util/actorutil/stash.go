package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages an actor cannot serve in its current state, together
// with their original sender.
type Stash struct {
	pending []stashedMessage
}

type stashedMessage struct {
	msg    any
	sender *actor.PID
}

func (stash *Stash) Stash(ctx actor.Context, msg any) {
	stash.pending = append(stash.pending, stashedMessage{
		msg:    msg,
		sender: ctx.Sender(),
	})
}

// UnstashAll re-delivers every held message to self in arrival order. The
// messages queue behind whatever is already in the mailbox.
func (stash *Stash) UnstashAll(ctx actor.Context) {
	pending := stash.pending
	stash.pending = nil
	for _, elem := range pending {
		ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
	}
}

func (stash *Stash) Len() int {
	return len(stash.pending)
}
