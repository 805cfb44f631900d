package csp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveChanOptions_Defaults(t *testing.T) {
	cfg, err := resolveChanOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.buf)
	assert.False(t, cfg.hasXform)
	assert.False(t, cfg.hasEx)
	assert.Equal(t, NewNoopLogger(), cfg.logger)
}

func TestResolveChanOptions_TransducerRequiresBuffer(t *testing.T) {
	_, err := resolveChanOptions([]ChanOption{WithTransducer(identityTransducer)})
	require.Error(t, err)
	assert.IsType(t, &TypeError{}, err)
}

func TestResolveChanOptions_ExHandlerRequiresTransducer(t *testing.T) {
	_, err := resolveChanOptions([]ChanOption{
		WithBuffer(NewFixedBuffer(1)),
		WithExHandler(func(error) (any, bool) { return nil, false }),
	})
	require.Error(t, err)
	assert.IsType(t, &TypeError{}, err)
}

func TestResolveChanOptions_ValidCombination(t *testing.T) {
	cfg, err := resolveChanOptions([]ChanOption{
		WithBuffer(NewFixedBuffer(1)),
		WithTransducer(identityTransducer),
		WithExHandler(func(error) (any, bool) { return nil, false }),
	})
	require.NoError(t, err)
	assert.NotNil(t, cfg.buf)
	assert.True(t, cfg.hasXform)
	assert.True(t, cfg.hasEx)
}

func TestResolveChanOptions_NilOptionIgnored(t *testing.T) {
	cfg, err := resolveChanOptions([]ChanOption{nil, WithBuffer(NewFixedBuffer(1))})
	require.NoError(t, err)
	assert.NotNil(t, cfg.buf)
}

func TestResolveAltOptions_Defaults(t *testing.T) {
	cfg := resolveAltOptions(nil)
	assert.False(t, cfg.priority)
	assert.False(t, cfg.hasDefault)
}

func TestResolveAltOptions_PriorityAndDefault(t *testing.T) {
	cfg := resolveAltOptions([]AltOption{WithPriority(), WithDefault("fallback")})
	assert.True(t, cfg.priority)
	assert.True(t, cfg.hasDefault)
	assert.Equal(t, "fallback", cfg.defaultVal)
}
