package function

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherInput struct {
	City string `json:"city"`
	Unit string `json:"unit,omitempty"`
}

func TestNewRejectsInvalidName(t *testing.T) {
	_, err := New("has spaces", "desc", func(_ context.Context, _ weatherInput) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = New("", "desc", func(_ context.Context, _ weatherInput) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCallbackCall(t *testing.T) {
	cb, err := New("get_weather", "Looks up the weather.", func(_ context.Context, in weatherInput) (any, error) {
		assert.Equal(t, "Paris", in.City)
		return map[string]any{"temp": 21}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "get_weather", cb.Name())
	assert.Equal(t, "Looks up the weather.", cb.Description())
	require.NotNil(t, cb.InputSchema())

	out, err := cb.Call(context.Background(), json.RawMessage(`{"city":"Paris"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":21}`, string(out))
}

func TestCallbackCallRejectsUnknownFields(t *testing.T) {
	cb, err := New("get_weather", "", func(_ context.Context, in weatherInput) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	_, err = cb.Call(context.Background(), json.RawMessage(`{"city":"Paris","altitude":350}`))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestCallbackCallEmptyArguments(t *testing.T) {
	cb, err := New("ping", "", func(_ context.Context, in struct{}) (any, error) {
		return "pong", nil
	})
	require.NoError(t, err)

	out, err := cb.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, `"pong"`, string(out))
}
