package function

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCallback(t *testing.T, name string, fn func(context.Context, weatherInput) (any, error)) Callback {
	t.Helper()
	cb, err := New(name, "test callback", fn)
	require.NoError(t, err)
	return cb
}

func echoCallback(t *testing.T, name string) Callback {
	return mustCallback(t, name, func(_ context.Context, in weatherInput) (any, error) {
		return in, nil
	})
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoCallback(t, "get_weather")))

	replacement := mustCallback(t, "get_weather", func(_ context.Context, _ weatherInput) (any, error) {
		return "replacement", nil
	})
	err := registry.Register(replacement)
	assert.ErrorIs(t, err, ErrDuplicateFunction)

	// first registration must survive
	out, err := registry.Invoke(context.Background(), "get_weather", json.RawMessage(`{"city":"Oslo"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Oslo"}`, string(out))
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoCallback(t, "zulu")))
	require.NoError(t, registry.Register(echoCallback(t, "alpha")))
	require.NoError(t, registry.Register(echoCallback(t, "mike")))

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, registry.Names())
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoCallback(t, "get_weather")))
	require.NoError(t, registry.Register(echoCallback(t, "get_time")))

	decls, err := registry.Resolve([]string{"get_time", "get_weather"})
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "get_time", decls[0].Name)
	assert.Equal(t, "get_weather", decls[1].Name)
	assert.NotNil(t, decls[0].Parameters)

	_, err = registry.Resolve([]string{"get_weather", "missing"})
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestRegistryInvokeUnknown(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Invoke(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestRegistryInvokeFailureWrapsExecutionError(t *testing.T) {
	cause := errors.New("upstream outage")
	registry := NewRegistry()
	require.NoError(t, registry.Register(mustCallback(t, "get_weather", func(_ context.Context, _ weatherInput) (any, error) {
		return nil, cause
	})))

	_, err := registry.Invoke(context.Background(), "get_weather", json.RawMessage(`{"city":"Paris"}`))
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "get_weather", execErr.Name)
	assert.ErrorIs(t, err, cause)
}
