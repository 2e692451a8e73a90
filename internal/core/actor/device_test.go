package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/util"
	"github.com/berfenger/purifier2mqtt/internal/util/actorutil"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) add(evt any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) characteristic(id string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if ev, ok := r.events[i].(domain.CharacteristicUpdateEvent); ok && ev.Id == id {
			return ev.Value, true
		}
	}
	return nil, false
}

func (r *eventRecorder) connectionStates() []domain.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []domain.ConnectionState
	for _, evt := range r.events {
		if ev, ok := evt.(domain.ConnectionStateUpdateEvent); ok {
			states = append(states, ev.State)
		}
	}
	return states
}

func spawnDeviceActor(t *testing.T, cfg *config.Config, connector miio.Connector) (*actor.ActorSystem, *actor.PID, *eventRecorder) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	es := &eventstream.EventStream{}
	recorder := &eventRecorder{}
	es.Subscribe(recorder.add)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(cfg, connector, es, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_DEVICE)
	require.NoError(t, err)
	return as, pid, recorder
}

func ensureBound(as *actor.ActorSystem, pid *actor.PID) (domain.EnsureBoundResponse, error) {
	res, err := as.Root.RequestFuture(pid, domain.EnsureBoundRequest{}, 3*time.Second).Result()
	if err != nil {
		return domain.EnsureBoundResponse{}, err
	}
	resp, ok := res.(domain.EnsureBoundResponse)
	if !ok {
		return domain.EnsureBoundResponse{}, errors.New("unexpected response")
	}
	return resp, nil
}

func deviceHealth(as *actor.ActorSystem, pid *actor.PID) domain.ActorHealthResponse {
	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 1*time.Second).Result()
	if err != nil {
		return domain.ActorHealthResponse{}
	}
	resp, _ := res.(domain.ActorHealthResponse)
	return resp
}

func TestDeviceActorConcurrentDiscovery(t *testing.T) {

	cfg := util.LoadTestConfig()
	dev := miio.NewSimulatedDevice("zhimi.airpurifier.mb3")
	connector := &miio.SimulatedConnector{Device: dev, ConnectDelay: 100 * time.Millisecond}

	as, pid, recorder := spawnDeviceActor(t, &cfg, connector)
	defer as.Shutdown()

	var g errgroup.Group
	responses := make([]domain.EnsureBoundResponse, 10)
	for i := range responses {
		i := i
		g.Go(func() error {
			resp, err := ensureBound(as, pid)
			responses[i] = resp
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, resp := range responses {
		assert.NoError(t, resp.GetResponseError())
		assert.Same(t, dev, resp.Device)
		assert.Equal(t, "zhimi.airpurifier.mb3", resp.Info.Model)
	}
	assert.Equal(t, 1, connector.Attempts(), "a single connection attempt")

	// a later request reuses the bound device
	resp, err := ensureBound(as, pid)
	require.NoError(t, err)
	assert.NoError(t, resp.GetResponseError())
	assert.Equal(t, 1, connector.Attempts())

	health := deviceHealth(as, pid)
	assert.True(t, health.Healthy)
	assert.Equal(t, "bound", health.State)

	assert.Equal(t, []domain.ConnectionState{domain.CONNECTION_UNBOUND, domain.CONNECTION_DISCOVERING, domain.CONNECTION_BOUND},
		recorder.connectionStates())

	// initial state snapshot
	v, ok := recorder.characteristic(domain.CHAR_ACTIVE)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTIVE_ACTIVE, v)
	v, ok = recorder.characteristic(domain.CHAR_CURRENT_TEMPERATURE)
	assert.True(t, ok)
	assert.Equal(t, 21.5, v)

	as.Root.Stop(pid)
}

func TestDeviceActorRetriesDiscovery(t *testing.T) {

	cfg := util.LoadTestConfig()
	connector := &miio.SimulatedConnector{FailFirst: 2}

	as, pid, _ := spawnDeviceActor(t, &cfg, connector)
	defer as.Shutdown()

	resp, err := ensureBound(as, pid)
	require.NoError(t, err)
	var discoveryErr *domain.DiscoveryError
	require.ErrorAs(t, resp.GetResponseError(), &discoveryErr)
	assert.Equal(t, 1, discoveryErr.Attempt)
	assert.Equal(t, cfg.Device.Address, discoveryErr.Address)

	// the retry timer keeps trying without any request
	assert.Eventually(t, func() bool {
		return deviceHealth(as, pid).Healthy
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, 3, connector.Attempts())

	resp, err = ensureBound(as, pid)
	require.NoError(t, err)
	assert.NoError(t, resp.GetResponseError())

	as.Root.Stop(pid)
}

func TestDeviceActorProtocolMismatch(t *testing.T) {

	cfg := util.LoadTestConfig()
	connector := &miio.SimulatedConnector{Model: "roborock.vacuum.s5", Class: "type:vacuum"}

	as, pid, _ := spawnDeviceActor(t, &cfg, connector)
	defer as.Shutdown()

	resp, err := ensureBound(as, pid)
	require.NoError(t, err)
	var mismatchErr *domain.ProtocolMismatchError
	require.ErrorAs(t, resp.GetResponseError(), &mismatchErr)
	assert.Equal(t, "roborock.vacuum.s5", mismatchErr.Model)

	health := deviceHealth(as, pid)
	assert.False(t, health.Healthy)
	assert.Equal(t, "discovering", health.State)

	// no retry for a foreign device
	time.Sleep(5 * cfg.Device.RetryInterval)
	assert.Equal(t, 1, connector.Attempts())

	res, err := as.Root.RequestFuture(pid, domain.GetCharacteristicRequest{Id: domain.CHAR_ACTIVE}, 1*time.Second).Result()
	require.NoError(t, err)
	getResp := res.(domain.GetCharacteristicResponse)
	assert.ErrorAs(t, getResp.GetResponseError(), &mismatchErr)

	as.Root.Stop(pid)
}

func TestDeviceActorCharacteristics(t *testing.T) {

	cfg := util.LoadTestConfig()
	dev := miio.NewSimulatedDevice("zhimi.airpurifier.mb3")
	connector := &miio.SimulatedConnector{Device: dev}

	as, pid, recorder := spawnDeviceActor(t, &cfg, connector)
	defer as.Shutdown()

	context := as.Root

	// set without explicit discovery
	res, err := context.RequestFuture(pid, domain.SetCharacteristicRequest{Id: domain.CHAR_ROTATION_SPEED, Value: 50}, 3*time.Second).Result()
	require.NoError(t, err)
	setResp, ok := res.(domain.SetCharacteristicResponse)
	require.True(t, ok)
	assert.NoError(t, setResp.GetResponseError())
	assert.Subset(t, dev.Calls(), []string{"set_mode:favorite", "set_level_favorite:8"})

	res, err = context.RequestFuture(pid, domain.GetCharacteristicRequest{Id: domain.CHAR_ROTATION_SPEED}, 3*time.Second).Result()
	require.NoError(t, err)
	getResp := res.(domain.GetCharacteristicResponse)
	assert.NoError(t, getResp.GetResponseError())
	assert.Equal(t, 50, getResp.Value)

	res, err = context.RequestFuture(pid, domain.GetCharacteristicRequest{Id: domain.CHAR_TARGET_AIR_PURIFIER}, 3*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, domain.TARGET_STATE_MANUAL, res.(domain.GetCharacteristicResponse).Value)

	// read only
	res, err = context.RequestFuture(pid, domain.SetCharacteristicRequest{Id: domain.CHAR_PM2_5_DENSITY, Value: 3}, 3*time.Second).Result()
	require.NoError(t, err)
	assert.ErrorIs(t, res.(domain.SetCharacteristicResponse).GetResponseError(), domain.ErrReadOnly)

	// unknown
	res, err = context.RequestFuture(pid, domain.GetCharacteristicRequest{Id: "swing_mode"}, 3*time.Second).Result()
	require.NoError(t, err)
	assert.ErrorIs(t, res.(domain.GetCharacteristicResponse).GetResponseError(), domain.ErrUnknownCharacteristic)

	// identify toggles the buzzer
	res, err = context.RequestFuture(pid, domain.IdentifyRequest{}, 3*time.Second).Result()
	require.NoError(t, err)
	assert.NoError(t, res.(domain.IdentifyResponse).GetResponseError())
	calls := dev.Calls()
	assert.Equal(t, []string{"set_buzzer:false", "set_buzzer:true"}, calls[len(calls)-2:])

	// device reported changes reach the eventstream
	dev.SimulateReading(160, 24.0, 52)
	assert.Eventually(t, func() bool {
		v, ok := recorder.characteristic(domain.CHAR_AIR_QUALITY)
		return ok && v == domain.AIR_QUALITY_INFERIOR
	}, 2*time.Second, 20*time.Millisecond)

	res, err = context.RequestFuture(pid, domain.ListCharacteristicsRequest{}, 1*time.Second).Result()
	require.NoError(t, err)
	assert.Contains(t, res.(domain.ListCharacteristicsResponse).Ids, domain.CHAR_LED)

	context.Stop(pid)
}

// trackingDevice records how many LED calls overlap. SetLED ignores ctx the
// way a stuck transport would.
type trackingDevice struct {
	*miio.SimulatedDevice
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	done     atomic.Int32
}

func (d *trackingDevice) SetLED(ctx context.Context, on bool) error {
	n := d.inFlight.Add(1)
	for {
		seen := d.maxSeen.Load()
		if n <= seen || d.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(d.delay)
	d.inFlight.Add(-1)
	d.done.Add(1)
	return d.SimulatedDevice.SetLED(context.Background(), on)
}

func trackingConnector(dev *trackingDevice) miio.Connector {
	return miio.ConnectorFunc(func(ctx context.Context, address string, token string) (miio.Device, error) {
		return dev, nil
	})
}

func TestDeviceActorSerializesCalls(t *testing.T) {

	cfg := util.LoadTestConfig()
	dev := &trackingDevice{
		SimulatedDevice: miio.NewSimulatedDevice("zhimi.airpurifier.mb3"),
		delay:           20 * time.Millisecond,
	}

	as, pid, _ := spawnDeviceActor(t, &cfg, trackingConnector(dev))
	defer as.Shutdown()

	var g errgroup.Group
	for _, on := range []bool{true, false, true, false} {
		on := on
		g.Go(func() error {
			res, err := as.Root.RequestFuture(pid, domain.SetCharacteristicRequest{Id: domain.CHAR_LED, Value: on}, 3*time.Second).Result()
			if err != nil {
				return err
			}
			return res.(domain.SetCharacteristicResponse).GetResponseError()
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(4), dev.done.Load())
	assert.Equal(t, int32(1), dev.maxSeen.Load(), "device calls must not overlap")

	as.Root.Stop(pid)
}

func TestDeviceActorCallTimeoutKeepsDeviceBusy(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.Device.CallTimeout = 200 * time.Millisecond
	dev := &trackingDevice{
		SimulatedDevice: miio.NewSimulatedDevice("zhimi.airpurifier.mb3"),
		delay:           600 * time.Millisecond,
	}

	as, pid, _ := spawnDeviceActor(t, &cfg, trackingConnector(dev))
	defer as.Shutdown()

	_, err := ensureBound(as, pid)
	require.NoError(t, err)

	errs := make([]error, 3)
	var g errgroup.Group
	for i := range errs {
		i := i
		g.Go(func() error {
			res, err := as.Root.RequestFuture(pid, domain.SetCharacteristicRequest{Id: domain.CHAR_LED, Value: i%2 == 0}, 5*time.Second).Result()
			if err != nil {
				return err
			}
			errs[i] = res.(domain.SetCharacteristicResponse).GetResponseError()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// every caller is answered with the timeout, the next call still waits
	// for the previous one to return
	for _, callErr := range errs {
		var deviceErr *domain.DeviceCallError
		assert.ErrorAs(t, callErr, &deviceErr)
		assert.ErrorIs(t, callErr, context.DeadlineExceeded)
	}
	assert.Eventually(t, func() bool {
		return dev.done.Load() == 3
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), dev.maxSeen.Load(), "device calls must not overlap")

	// the device is usable again afterwards
	res, err := as.Root.RequestFuture(pid, domain.GetCharacteristicRequest{Id: domain.CHAR_ACTIVE}, 3*time.Second).Result()
	require.NoError(t, err)
	assert.NoError(t, res.(domain.GetCharacteristicResponse).GetResponseError())

	as.Root.Stop(pid)
}

func TestDeviceActorClosesAbandonedDiscovery(t *testing.T) {

	cfg := util.LoadTestConfig()
	late := miio.NewSimulatedDevice("zhimi.airpurifier.mb3")
	late.SetProperty(miio.PROP_MODE, miio.MODE_IDLE)
	current := miio.NewSimulatedDevice("zhimi.airpurifier.mb3")

	var attempts atomic.Int32
	connector := miio.ConnectorFunc(func(ctx context.Context, address string, token string) (miio.Device, error) {
		if attempts.Add(1) == 1 {
			// outlives connect_timeout + call_timeout
			time.Sleep(1500 * time.Millisecond)
			return late, nil
		}
		return current, nil
	})

	as, pid, _ := spawnDeviceActor(t, &cfg, connector)
	defer as.Shutdown()

	resp, err := ensureBound(as, pid)
	require.NoError(t, err)
	var discoveryErr *domain.DiscoveryError
	require.ErrorAs(t, resp.GetResponseError(), &discoveryErr)
	assert.ErrorIs(t, discoveryErr, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		return deviceHealth(as, pid).Healthy
	}, 3*time.Second, 50*time.Millisecond)

	// the first attempt returns after the retry bound; its handle is closed
	// and its state never reaches the cache
	assert.Eventually(t, late.Closed, 3*time.Second, 20*time.Millisecond)
	assert.False(t, current.Closed())

	res, err := as.Root.RequestFuture(pid, domain.GetCharacteristicRequest{Id: domain.CHAR_ACTIVE}, 3*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, domain.ACTIVE_ACTIVE, res.(domain.GetCharacteristicResponse).Value)

	as.Root.Stop(pid)
}

type crash struct{}

func crashOnRequest(next actor.ReceiverFunc) actor.ReceiverFunc {
	return func(c actor.ReceiverContext, envelope *actor.MessageEnvelope) {
		if _, ok := envelope.Message.(crash); ok {
			panic("crash requested")
		}
		next(c, envelope)
	}
}

func TestDeviceActorReleasesDeviceOnRestart(t *testing.T) {

	cfg := util.LoadTestConfig()
	dev := miio.NewSimulatedDevice("zhimi.airpurifier.mb3")
	connector := &miio.SimulatedConnector{Device: dev}

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(&cfg, connector, &eventstream.EventStream{}, logger)
	}, actor.WithReceiverMiddleware(crashOnRequest))
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_DEVICE)
	require.NoError(t, err)

	resp, err := ensureBound(as, pid)
	require.NoError(t, err)
	require.NoError(t, resp.GetResponseError())
	assert.Equal(t, 1, dev.Subscribers(miio.EVENT_MODE_CHANGED))

	as.Root.Send(pid, crash{})

	assert.Eventually(t, func() bool {
		return dev.Subscribers(miio.EVENT_MODE_CHANGED) == 0 && dev.Closed()
	}, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return deviceHealth(as, pid).State == domain.CONNECTION_UNBOUND.String()
	}, 2*time.Second, 20*time.Millisecond)

	as.Root.Stop(pid)
}
