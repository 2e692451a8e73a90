package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/core/events"
	"github.com/berfenger/purifier2mqtt/internal/core/service"
	. "github.com/berfenger/purifier2mqtt/internal/util/actorutil"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// CALL_TIMEOUT_GRACE is added to device.call_timeout before a caller is
// answered with a timeout.
const CALL_TIMEOUT_GRACE = 250 * time.Millisecond

// DeviceActor owns the connection to the purifier. Requests are held until
// discovery completes and device calls run one at a time.
type DeviceActor struct {
	ActorWithStates
	scheduler   *scheduler.TimerScheduler
	stash       *Stash
	config      *config.Config
	connector   miio.Connector
	eventStream *eventstream.EventStream
	cache       *service.StateCache
	dispatcher  *service.CommandDispatcher
	table       *service.CharacteristicTable

	device        miio.Device
	info          domain.DeviceInfo
	subscriptions []miio.Subscription
	attempt       int
	lastError     error
	cancelRetry   scheduler.CancelFunc

	cancelDiscoveryTimeout scheduler.CancelFunc
	callSeq                int
	callAnswered           bool
	cancelCallTimeout      scheduler.CancelFunc

	logger *zap.Logger
}

type discoveryResult struct {
	attempt  int
	device   miio.Device
	attrs    domain.DeviceAttributes
	mismatch bool
	err      error
}

type discoveryTimeout struct {
	attempt int
}

type retryDiscovery struct {
	attempt int
}

type deviceCallResult struct {
	seq      int
	replyTo  *actor.PID
	response domain.ActorResponse
}

// deviceCallTimeout answers the caller of call seq when the device is slow.
// The call itself keeps the device until it returns.
type deviceCallTimeout struct {
	seq      int
	replyTo  *actor.PID
	response domain.ActorResponse
}

func NewDeviceActor(config *config.Config, connector miio.Connector, eventStream *eventstream.EventStream, logger *zap.Logger) *DeviceActor {
	actorLogger := ActorLogger(domain.ACTOR_ID_DEVICE, logger)
	cache := service.NewStateCache(service.NewExposedPublisher(eventStream, config.Expose))
	dispatcher := service.NewCommandDispatcher(cache, actorLogger)
	act := &DeviceActor{
		config:      config,
		connector:   connector,
		eventStream: eventStream,
		cache:       cache,
		dispatcher:  dispatcher,
		table:       service.NewCharacteristicTable(dispatcher, config.Expose),
		stash:       &Stash{},
		logger:      actorLogger,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(DeviceUnboundState{
		actor: act,
	})
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	if _, ok := context.Message().(*actor.Restarting); ok {
		// the restarted instance starts from a fresh cache
		state.stop()
	}
	state.Behavior.Receive(context)
}

// Unbound state

type DeviceUnboundState struct {
	ActorState
	actor *DeviceActor
}

func (state DeviceUnboundState) Name() string {
	return domain.CONNECTION_UNBOUND.String()
}

func (state DeviceUnboundState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("device@unbound started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx.ActorSystem().Root)
		state.actor.publishConnectionState(domain.CONNECTION_UNBOUND)
	case *actor.Stopping:
		state.actor.stop()
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, false)
	case domain.ListCharacteristicsRequest:
		state.actor.respondCharacteristics(ctx, msg)
	case domain.StateResyncRequest:
		state.actor.publishConnectionState(domain.CONNECTION_UNBOUND)
	case domain.DeviceRequest:
		// first use triggers discovery
		state.actor.logger.Debug("device@unbound: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
		state.actor.Become(DeviceDiscoveringState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	default:
		state.actor.logger.Debug("device@unbound: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Discovering state

type DeviceDiscoveringState struct {
	ActorState
	actor *DeviceActor
}

func (state DeviceDiscoveringState) Name() string {
	return domain.CONNECTION_DISCOVERING.String()
}

func (state DeviceDiscoveringState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Stopping:
		state.actor.stop()
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, false)
	case domain.ListCharacteristicsRequest:
		state.actor.respondCharacteristics(ctx, msg)
	case domain.StateResyncRequest:
		state.actor.publishConnectionState(domain.CONNECTION_DISCOVERING)
	case discoveryTimeout:
		state.actor.cancelDiscoveryTimeout = nil
		if msg.attempt != state.actor.attempt {
			return
		}
		state.actor.discoveryFailed(ctx, msg.attempt, context.DeadlineExceeded)
	case discoveryResult:
		if msg.attempt != state.actor.attempt {
			state.actor.dropDiscoveryResult(msg)
			return
		}
		state.actor.cancelDiscoveryDeadline()
		switch {
		case msg.err != nil:
			state.actor.discoveryFailed(ctx, msg.attempt, msg.err)
			return
		case msg.mismatch:
			state.actor.lastError = &domain.ProtocolMismatchError{
				Address:  state.actor.config.Device.Address,
				Model:    msg.device.Model(),
				Expected: miio.CLASS_AIR_PURIFIER,
			}
			state.actor.logger.Error("device@discovering: device is not an air purifier", zap.Error(state.actor.lastError))
			msg.device.Close()
			state.actor.Become(DeviceMismatchState{
				actor: state.actor,
			})
		default:
			state.actor.Become(DeviceBoundState{
				actor: state.actor,
			}.OnEnter(ctx, msg.device, msg.attrs))
		}
		state.actor.logger.Debug("device@discovering: replay pending requests", zap.Int("pending", state.actor.stash.Len()))
		state.actor.stash.UnstashAll(ctx)
	case domain.DeviceRequest:
		state.actor.logger.Debug("device@discovering: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	default:
		state.actor.logger.Debug("device@discovering: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// OnEnterAction starts one connection attempt. Every request stashed while
// it runs shares its outcome. The initial state is read into a staging cache
// so a late attempt cannot touch the live one.
func (state DeviceDiscoveringState) OnEnterAction(ctx actor.Context) DeviceDiscoveringState {
	state.actor.attempt++
	attempt := state.actor.attempt
	cfg := state.actor.config.Device
	connector := state.actor.connector
	logger := state.actor.logger

	state.actor.logger.Info("device@discovering: connecting", zap.String("address", cfg.Address), zap.Int("attempt", attempt))
	state.actor.publishConnectionState(domain.CONNECTION_DISCOVERING)

	NewBackgroundTask(ctx, func() (*discoveryResult, error) {
		connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		dev, err := connector.Connect(connectCtx, cfg.Address, cfg.Token)
		if err != nil {
			return nil, err
		}
		if !dev.Matches(miio.CLASS_AIR_PURIFIER) {
			return &discoveryResult{attempt: attempt, device: dev, mismatch: true}, nil
		}
		fetchCtx, cancelFetch := context.WithTimeout(context.Background(), cfg.CallTimeout)
		defer cancelFetch()
		staging := service.NewStateCache(nil)
		service.FetchInitialState(fetchCtx, dev, staging, logger)
		return &discoveryResult{attempt: attempt, device: dev, attrs: staging.Attributes()}, nil
	}).Recover(func(err error) discoveryResult {
		return discoveryResult{attempt: attempt, err: err}
	}).PipeTo(ctx.Self())

	state.actor.cancelDiscoveryTimeout = state.actor.scheduler.RequestOnce(cfg.ConnectTimeout+cfg.CallTimeout, ctx.Self(), discoveryTimeout{attempt: attempt})
	return state
}

// Failed state

type DeviceFailedState struct {
	ActorState
	actor *DeviceActor
}

func (state DeviceFailedState) Name() string {
	return domain.CONNECTION_FAILED.String()
}

func (state DeviceFailedState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Stopping:
		state.actor.stop()
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, false)
	case domain.ListCharacteristicsRequest:
		state.actor.respondCharacteristics(ctx, msg)
	case domain.StateResyncRequest:
		state.actor.publishConnectionState(domain.CONNECTION_FAILED)
	case discoveryResult:
		state.actor.dropDiscoveryResult(msg)
	case retryDiscovery:
		state.actor.cancelRetry = nil
		if msg.attempt != state.actor.attempt {
			return
		}
		state.actor.logger.Debug("device@failed: retry discovery")
		state.actor.Become(DeviceDiscoveringState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	case domain.DeviceRequest:
		// fail fast until the retry timer fires
		FailDeviceRequest(ctx, msg, state.actor.lastError)
	default:
		state.actor.logger.Debug("device@failed: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state DeviceFailedState) OnEnterAction(ctx actor.Context) DeviceFailedState {
	interval := state.actor.config.Device.RetryInterval
	state.actor.logger.Info(fmt.Sprintf("device@failed: retrying discovery in %s", interval))
	state.actor.cancelRetry = state.actor.scheduler.RequestOnce(interval, ctx.Self(), retryDiscovery{attempt: state.actor.attempt})
	state.actor.publishConnectionState(domain.CONNECTION_FAILED)
	return state
}

// Mismatch state. The configured address answers but is not a purifier;
// this does not heal by retrying.

type DeviceMismatchState struct {
	ActorState
	actor *DeviceActor
}

func (state DeviceMismatchState) Name() string {
	return domain.CONNECTION_DISCOVERING.String()
}

func (state DeviceMismatchState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Stopping:
		state.actor.stop()
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, false)
	case domain.ListCharacteristicsRequest:
		state.actor.respondCharacteristics(ctx, msg)
	case domain.StateResyncRequest:
		state.actor.publishConnectionState(domain.CONNECTION_DISCOVERING)
	case discoveryResult:
		state.actor.dropDiscoveryResult(msg)
	case domain.DeviceRequest:
		FailDeviceRequest(ctx, msg, state.actor.lastError)
	default:
		state.actor.logger.Debug("device@mismatch: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Bound state

type DeviceBoundState struct {
	ActorState
	actor *DeviceActor
}

func (state DeviceBoundState) Name() string {
	return domain.CONNECTION_BOUND.String()
}

func (state DeviceBoundState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Stopping:
		state.actor.stop()
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, true)
	case domain.ListCharacteristicsRequest:
		state.actor.respondCharacteristics(ctx, msg)
	case domain.StateResyncRequest:
		state.actor.publishSnapshot()
	case discoveryResult:
		state.actor.dropDiscoveryResult(msg)
	case domain.EnsureBoundRequest:
		ForRequest(msg).Respond(ctx, domain.EnsureBoundResponse{
			Device: state.actor.device,
			Info:   state.actor.info,
		})
	case domain.DeviceRequest:
		state.actor.BecomeStacked(DeviceAwaitingCallState{
			actor: state.actor,
		}.OnEnterAction(ctx, msg))
	default:
		state.actor.logger.Debug("device@bound: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state DeviceBoundState) OnEnter(ctx actor.Context, dev miio.Device, attrs domain.DeviceAttributes) DeviceBoundState {
	state.actor.device = dev
	state.actor.cache.Load(attrs)
	state.actor.info = domain.DeviceInfo{
		Address: state.actor.config.Device.Address,
		Model:   dev.Model(),
	}
	state.actor.lastError = nil
	state.actor.subscriptions = service.SubscribeEvents(dev, state.actor.cache, state.actor.config.Expose, state.actor.logger)
	state.actor.logger.Info("device@bound: connected to air purifier", zap.String("model", dev.Model()))
	state.actor.publishSnapshot()
	return state
}

// Awaiting call state, stacked on top of bound while a device call runs

type DeviceAwaitingCallState struct {
	ActorState
	actor *DeviceActor
}

func (state DeviceAwaitingCallState) Name() string {
	return "awaitingCall"
}

func (state DeviceAwaitingCallState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Stopping:
		state.actor.stop()
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, true)
	case domain.ListCharacteristicsRequest:
		state.actor.respondCharacteristics(ctx, msg)
	case deviceCallTimeout:
		if msg.seq != state.actor.callSeq || state.actor.callAnswered {
			return
		}
		state.actor.cancelCallTimeout = nil
		state.actor.callAnswered = true
		state.actor.logger.Warn("device@awaitingCall: device call timed out, waiting for it to return")
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.response)
		}
	case deviceCallResult:
		if msg.seq != state.actor.callSeq {
			return
		}
		state.actor.cancelCallDeadline()
		if msg.response.HasResponseError() {
			state.actor.logger.Warn("device@awaitingCall: device call failed", zap.Error(msg.response.GetResponseError()))
		}
		if state.actor.callAnswered {
			state.actor.logger.Debug("device@awaitingCall: late device call result dropped")
		} else if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.response)
		}
		// the device is free again only now
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("device@awaitingCall: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state DeviceAwaitingCallState) OnEnterAction(ctx actor.Context, req domain.DeviceRequest) DeviceAwaitingCallState {
	replyTo := ForRequest(req).ReplyTo(ctx)
	dev := state.actor.device
	table := state.actor.table
	dispatcher := state.actor.dispatcher
	timeout := state.actor.config.Device.CallTimeout

	state.actor.callSeq++
	state.actor.callAnswered = false
	seq := state.actor.callSeq

	NewBackgroundTaskNoError(ctx, func() *deviceCallResult {
		callCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return &deviceCallResult{
			seq:      seq,
			replyTo:  replyTo,
			response: executeDeviceRequest(callCtx, table, dispatcher, dev, req),
		}
	}).Recover(func(err error) deviceCallResult {
		return deviceCallResult{
			seq:      seq,
			replyTo:  replyTo,
			response: req.FailWith(&domain.DeviceCallError{Op: "device call", Err: err}),
		}
	}).PipeTo(ctx.Self())

	state.actor.cancelCallTimeout = state.actor.scheduler.RequestOnce(timeout+CALL_TIMEOUT_GRACE, ctx.Self(), deviceCallTimeout{
		seq:      seq,
		replyTo:  replyTo,
		response: req.FailWith(&domain.DeviceCallError{Op: "device call", Err: context.DeadlineExceeded}),
	})
	return state
}

func executeDeviceRequest(ctx context.Context, table *service.CharacteristicTable, dispatcher *service.CommandDispatcher,
	dev miio.Device, req domain.DeviceRequest) domain.ActorResponse {
	switch r := req.(type) {
	case domain.GetCharacteristicRequest:
		value, err := table.Get(ctx, dev, r.Id)
		if err != nil {
			return r.FailWith(err)
		}
		return domain.GetCharacteristicResponse{Id: r.Id, Value: value}
	case domain.SetCharacteristicRequest:
		if err := table.Set(ctx, dev, r.Id, r.Value); err != nil {
			return r.FailWith(err)
		}
		return domain.SetCharacteristicResponse{Id: r.Id}
	case domain.IdentifyRequest:
		if err := dispatcher.Identify(ctx, dev); err != nil {
			return r.FailWith(err)
		}
		return domain.IdentifyResponse{}
	}
	return req.FailWith(fmt.Errorf("unsupported request %T", req))
}

// Other actor function helpers

func (state *DeviceActor) discoveryFailed(ctx actor.Context, attempt int, err error) {
	state.cancelDiscoveryDeadline()
	state.lastError = &domain.DiscoveryError{
		Address: state.config.Device.Address,
		Attempt: attempt,
		Err:     err,
	}
	state.logger.Error("device@discovering: discovery failed", zap.Error(state.lastError))
	state.Become(DeviceFailedState{
		actor: state,
	}.OnEnterAction(ctx))
	state.stash.UnstashAll(ctx)
}

// dropDiscoveryResult closes the handle of an attempt that was given up on.
func (state *DeviceActor) dropDiscoveryResult(msg discoveryResult) {
	state.logger.Debug("device: stale discovery result", zap.Int("attempt", msg.attempt))
	if msg.device != nil && msg.device != state.device {
		msg.device.Close()
	}
}

func (state *DeviceActor) cancelDiscoveryDeadline() {
	if state.cancelDiscoveryTimeout != nil {
		state.cancelDiscoveryTimeout()
		state.cancelDiscoveryTimeout = nil
	}
}

func (state *DeviceActor) cancelCallDeadline() {
	if state.cancelCallTimeout != nil {
		state.cancelCallTimeout()
		state.cancelCallTimeout = nil
	}
}

func (state *DeviceActor) respondHealth(ctx actor.Context, healthy bool) {
	state.logger.Debug(fmt.Sprintf("device@%s: ActorHealthRequest", state.StateName()))
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_DEVICE,
		Healthy: healthy,
		State:   state.StateName(),
	})
}

func (state *DeviceActor) respondCharacteristics(ctx actor.Context, msg domain.ListCharacteristicsRequest) {
	ForRequest(msg).Respond(ctx, domain.ListCharacteristicsResponse{
		Ids: state.table.Ids(),
	})
}

func (state *DeviceActor) publishConnectionState(connState domain.ConnectionState) {
	state.eventStream.Publish(events.NewConnectionStateUpdate(connState))
}

func (state *DeviceActor) publishSnapshot() {
	for _, ev := range events.AttributesToUpdateEvents(state.cache.Attributes(), state.table) {
		state.eventStream.Publish(ev)
	}
	state.publishConnectionState(domain.CONNECTION_BOUND)
}

func (state *DeviceActor) stop() {
	state.logger.Debug("device: stop")
	if state.cancelRetry != nil {
		state.cancelRetry()
		state.cancelRetry = nil
	}
	state.cancelDiscoveryDeadline()
	state.cancelCallDeadline()
	for _, sub := range state.subscriptions {
		sub.Unsubscribe()
	}
	state.subscriptions = nil
	if state.device != nil {
		state.device.Close()
		state.device = nil
	}
	state.cache.Reset()
}
