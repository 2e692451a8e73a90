package service

import (
	"context"
	"testing"

	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacteristicExposure(t *testing.T) {
	d, _, dev := newTestDispatcher()
	defer dev.Close()

	table := NewCharacteristicTable(d, config.ExposeConfig{})
	assert.Equal(t, []string{
		domain.CHAR_ACTIVE,
		domain.CHAR_CURRENT_AIR_PURIFIER,
		domain.CHAR_TARGET_AIR_PURIFIER,
		domain.CHAR_LOCK_PHYSICAL_CONTROLS,
		domain.CHAR_ROTATION_SPEED,
	}, table.Ids())

	_, err := table.Get(context.Background(), dev, domain.CHAR_LED)
	assert.ErrorIs(t, err, domain.ErrUnknownCharacteristic)

	full := NewCharacteristicTable(d, config.ExposeConfig{
		AirQuality:  true,
		Temperature: true,
		Humidity:    true,
		LED:         true,
		Buzzer:      true,
		FilterLevel: true,
	})
	assert.Len(t, full.Ids(), 13)
	assert.True(t, full.Exposed(domain.CHAR_FILTER_LIFE_LEVEL))
}

func TestCharacteristicSetCoercion(t *testing.T) {
	d, _, dev := newTestDispatcher()
	defer dev.Close()
	ctx := context.Background()
	table := NewCharacteristicTable(d, config.ExposeConfig{LED: true})

	require.NoError(t, table.Set(ctx, dev, domain.CHAR_TARGET_AIR_PURIFIER, "0"))
	assert.Equal(t, miio.MODE_FAVORITE, d.Cache.Mode())
	require.NoError(t, table.Set(ctx, dev, domain.CHAR_ROTATION_SPEED, 12.0))
	require.NoError(t, table.Set(ctx, dev, domain.CHAR_LED, "off"))

	var valErr *domain.ValidationError
	assert.ErrorAs(t, table.Set(ctx, dev, domain.CHAR_ACTIVE, 2), &valErr)
	assert.ErrorAs(t, table.Set(ctx, dev, domain.CHAR_ACTIVE, -1), &valErr)
	assert.ErrorAs(t, table.Set(ctx, dev, domain.CHAR_LED, "maybe"), &valErr)
	assert.ErrorAs(t, table.Set(ctx, dev, domain.CHAR_ROTATION_SPEED, 12.5), &valErr)
	assert.ErrorIs(t, table.Set(ctx, dev, domain.CHAR_CURRENT_AIR_PURIFIER, 1), domain.ErrReadOnly)

	assert.Equal(t, []string{"set_mode:favorite", "set_level_favorite:2", "set_led:false"}, dev.Calls())

	v, err := table.Get(ctx, dev, domain.CHAR_ROTATION_SPEED)
	require.NoError(t, err)
	assert.Equal(t, 13, v)
}
