package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdb/nexusdb/internal/instance"
)

type stubProvider struct {
	engine string
}

func (s *stubProvider) Engine() string { return s.engine }
func (s *stubProvider) CreateContainer(context.Context, *instance.Instance, string) error {
	return nil
}
func (s *stubProvider) Start(context.Context, *instance.Instance) error  { return nil }
func (s *stubProvider) Stop(context.Context, *instance.Instance) error   { return nil }
func (s *stubProvider) Remove(context.Context, *instance.Instance) error { return nil }
func (s *stubProvider) ExecuteQuery(context.Context, *instance.Instance, string, string) *QueryResult {
	return OK("ok", nil, nil)
}

func TestRegistry_ResolveReturnsSameInstance(t *testing.T) {
	r := NewRegistry()
	p := &stubProvider{engine: EngineMySQL}
	require.NoError(t, r.Register(p))

	first, err := r.Resolve(EngineMySQL)
	require.NoError(t, err)
	second, err := r.Resolve(EngineMySQL)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, p, first)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{engine: EngineRedis}))

	err := r.Register(&stubProvider{engine: EngineRedis})
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistry_UnknownEngine(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{engine: EngineMySQL}))

	_, err := r.Resolve("oracle")
	assert.ErrorIs(t, err, ErrEngineNotSupported)
}

func TestRegistry_EnginesSorted(t *testing.T) {
	r := NewRegistry()
	for _, e := range []string{EngineRedis, EngineMySQL, EnginePostgreSQL} {
		require.NoError(t, r.Register(&stubProvider{engine: e}))
	}

	assert.Equal(t, []string{EngineMySQL, EnginePostgreSQL, EngineRedis}, r.Engines())
}
