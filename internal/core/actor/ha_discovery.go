package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/core/events"
	"github.com/berfenger/purifier2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the Home Assistant discovery configs once the
// MQTT actor is up. The device model is included when the purifier could be
// bound in time.
type HADiscoveryActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *actorutil.Stash
	deviceActor *actor.PID
	mqttActor   *actor.PID

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, deviceActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		deviceActor: deviceActor,
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// MQTT Actor Request, answered once it is connected
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 15*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			panic(errors.New("MQTT Actor is not healthy"))
		}
		// Ask the device actor for the bound device
		timeout := state.config.Device.ConnectTimeout + state.config.Device.CallTimeout + time.Second
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.EnsureBoundRequest{}, timeout), func(err error) any {
			return domain.EnsureBoundResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingInfoReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.EnsureBoundResponse:
		info := msg.Info
		if msg.HasResponseError() {
			state.logger.Warn("hadiscovery@info: purifier not bound, publishing without model", zap.Error(msg.GetResponseError()))
			info = domain.DeviceInfo{Address: state.config.Device.Address}
		}
		state.logger.Debug("hadiscovery@info: EnsureBoundResponse", zap.Any("info", info))

		ctx.Send(state.mqttActor, BuildDiscoveryRequest(state.config, info))
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// BuildDiscoveryRequest lists the bridge and purifier entities enabled by cfg.
func BuildDiscoveryRequest(cfg *config.Config, info domain.DeviceInfo) domain.PublishDiscoveryRequest {
	var sensors []domain.GenericSensor

	bridgeDevice := events.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, events.BridgeSensors(bridgeDevice)...)

	purifierDevice := events.PurifierDevice(cfg.Device, info)
	purifierDevice.ViaDevice = bridgeDevice.Id
	idDevice := events.IdDevice(purifierDevice)

	purifierSensors := events.PurifierSensors(purifierDevice, cfg.Expose)
	for i := range purifierSensors {
		if i > 0 {
			purifierSensors[i].Device = idDevice
		}
		sensors = append(sensors, purifierSensors[i])
	}

	return domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Switches:     events.PurifierSwitches(idDevice, cfg.Device.Name, cfg.Expose),
		InputNumbers: events.PurifierInputNumbers(idDevice),
		Selects:      events.PurifierSelects(idDevice),
	}
}
