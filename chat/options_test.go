package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunnryd/genkai/gemini"
)

func TestMergeNilRuntimeKeepsDefaults(t *testing.T) {
	defaults := DefaultOptions()
	defaults.Functions = []string{"get_weather"}

	got := merge(defaults, nil)

	assert.Equal(t, gemini.DefaultChatModel, got.Model)
	assert.Equal(t, float32(0.7), *got.Temperature)
	assert.Equal(t, []string{"get_weather"}, got.Functions)
}

func TestMergeRuntimeWinsFieldByField(t *testing.T) {
	defaults := Options{
		Model:           "default-model",
		Temperature:     Ptr[float32](0.7),
		TopK:            Ptr(40),
		MaxOutputTokens: Ptr(256),
	}
	runtime := Options{
		Model:       "override-model",
		Temperature: Ptr[float32](0.1),
		TopP:        Ptr[float32](0.9),
	}

	got := merge(defaults, &runtime)

	assert.Equal(t, "override-model", got.Model)
	assert.Equal(t, float32(0.1), *got.Temperature)
	assert.Equal(t, float32(0.9), *got.TopP)
	// unset runtime fields inherit
	assert.Equal(t, 40, *got.TopK)
	assert.Equal(t, 256, *got.MaxOutputTokens)
}

func TestMergeUnionsFunctions(t *testing.T) {
	defaults := Options{Functions: []string{"get_weather", "get_time"}}
	runtime := Options{Functions: []string{"get_time", "search"}}

	got := merge(defaults, &runtime)

	assert.Equal(t, []string{"get_time", "get_weather", "search"}, got.Functions)
}

func TestMergeZeroTemperatureOverrides(t *testing.T) {
	defaults := Options{Temperature: Ptr[float32](0.7)}
	runtime := Options{Temperature: Ptr[float32](0)}

	got := merge(defaults, &runtime)

	assert.Equal(t, float32(0), *got.Temperature, "a set zero must win over the default")
}

func TestMergeFunctionCallingMode(t *testing.T) {
	defaults := Options{FunctionCallingMode: gemini.ModeAuto}
	runtime := Options{
		FunctionCallingMode:  gemini.ModeAny,
		AllowedFunctionNames: []string{"get_weather"},
	}

	got := merge(defaults, &runtime)

	assert.Equal(t, gemini.ModeAny, got.FunctionCallingMode)
	assert.Equal(t, []string{"get_weather"}, got.AllowedFunctionNames)
}
