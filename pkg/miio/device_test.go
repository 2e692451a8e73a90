package miio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedConnectorFailFirst(t *testing.T) {
	connector := &SimulatedConnector{FailFirst: 2}
	ctx := context.Background()

	_, err := connector.Connect(ctx, "192.168.1.50", "token")
	assert.Error(t, err)
	_, err = connector.Connect(ctx, "192.168.1.50", "token")
	assert.Error(t, err)

	dev, err := connector.Connect(ctx, "192.168.1.50", "token")
	require.NoError(t, err)
	assert.Equal(t, "zhimi.airpurifier.mb3", dev.Model())
	assert.True(t, dev.Matches(CLASS_AIR_PURIFIER))
	assert.Equal(t, 3, connector.Attempts())
	dev.Close()
}

func TestSimulatedConnectorRejectsMissingToken(t *testing.T) {
	connector := &SimulatedConnector{}
	_, err := connector.Connect(context.Background(), "192.168.1.50", "")
	assert.Error(t, err)
}

func TestSimulatedConnectorHonoursContext(t *testing.T) {
	connector := &SimulatedConnector{ConnectDelay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := connector.Connect(ctx, "192.168.1.50", "token")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulatedConnectorForeignClass(t *testing.T) {
	connector := &SimulatedConnector{Model: "roborock.vacuum.s5", Class: "type:vacuum"}
	dev, err := connector.Connect(context.Background(), "192.168.1.50", "token")
	require.NoError(t, err)
	defer dev.Close()

	assert.False(t, dev.Matches(CLASS_AIR_PURIFIER))
	assert.Equal(t, "roborock.vacuum.s5", dev.Model())
}

func TestSimulatedDeviceModeEvents(t *testing.T) {
	dev := NewSimulatedDevice("zhimi.airpurifier.mb3")
	defer dev.Close()

	var mu sync.Mutex
	var modes []any
	sub := dev.Subscribe(EVENT_MODE_CHANGED, func(value any) {
		mu.Lock()
		defer mu.Unlock()
		modes = append(modes, value)
	})

	ctx := context.Background()
	require.NoError(t, dev.SetMode(ctx, MODE_FAVORITE))
	require.NoError(t, dev.SetPower(ctx, false))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(modes) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []any{MODE_FAVORITE, MODE_IDLE}, modes)
	mu.Unlock()
	assert.Equal(t, false, dev.Property(PROP_POWER))

	// no delivery after unsubscribe
	sub.Unsubscribe()
	require.NoError(t, dev.SetMode(ctx, MODE_AUTO))
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, modes, 2)
	mu.Unlock()
}

func TestSimulatedDeviceReading(t *testing.T) {
	dev := NewSimulatedDevice("zhimi.airpurifier.mb3")
	defer dev.Close()

	received := make(chan any, 1)
	dev.Subscribe(EVENT_TEMPERATURE_CHANGED, func(value any) {
		received <- value
	})

	dev.SimulateReading(35, 23.3, 50)

	select {
	case v := <-received:
		assert.Equal(t, "23.3", v)
	case <-time.After(time.Second):
		t.Fatal("temperature event not delivered")
	}
	assert.Equal(t, 35.0, dev.Property(PROP_AQI))
	assert.Equal(t, 50, dev.Property(PROP_HUMIDITY))
}

func TestSimulatedDeviceFavoriteLevel(t *testing.T) {
	dev := NewSimulatedDevice("zhimi.airpurifier.mb3")
	defer dev.Close()
	ctx := context.Background()

	require.NoError(t, dev.SetFavoriteLevel(ctx, 10))
	level, err := dev.FavoriteLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, level)

	var callErr *CallError
	assert.ErrorAs(t, dev.SetFavoriteLevel(ctx, 17), &callErr)
	assert.Equal(t, "set_level_favorite", callErr.Method)
}

func TestSimulatedDeviceRawCalls(t *testing.T) {
	dev := NewSimulatedDevice("zhimi.airpurifier.mb3")
	defer dev.Close()
	ctx := context.Background()

	res, err := dev.Call(ctx, METHOD_SET_CHILD_LOCK, []any{RESULT_ON})
	require.NoError(t, err)
	assert.Equal(t, []any{RESULT_OK}, res)

	res, err = dev.Call(ctx, METHOD_GET_PROP, []any{RAW_PROP_CHILD_LOCK})
	require.NoError(t, err)
	assert.Equal(t, []any{RESULT_ON}, res)

	// a refused lock change keeps the previous value
	dev.SetChildLockResponse("error")
	res, err = dev.Call(ctx, METHOD_SET_CHILD_LOCK, []any{RESULT_OFF})
	require.NoError(t, err)
	assert.Equal(t, []any{"error"}, res)
	assert.Equal(t, RESULT_ON, dev.Property(RAW_PROP_CHILD_LOCK))

	_, err = dev.Call(ctx, "set_swing", nil)
	var callErr *CallError
	assert.ErrorAs(t, err, &callErr)

	assert.Equal(t, []string{
		"set_child_lock:[on]",
		"get_prop:[child_lock]",
		"set_child_lock:[off]",
		"set_swing:[]",
	}, dev.Calls())
}

func TestSimulatedDeviceFailOn(t *testing.T) {
	dev := NewSimulatedDevice("zhimi.airpurifier.mb3")
	defer dev.Close()
	ctx := context.Background()

	boom := errors.New("timeout")
	dev.FailOn("set_led", boom)

	assert.ErrorIs(t, dev.SetLED(ctx, false), boom)
	on, err := dev.LED(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}
