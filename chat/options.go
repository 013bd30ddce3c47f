package chat

import (
	"sort"

	"github.com/harunnryd/genkai/gemini"
)

// Options configures one generation exchange. Pointer fields distinguish
// "unset" from a zero value so per-call options can be merged over the
// model's defaults field by field.
type Options struct {
	// Model overrides the default model identifier.
	Model string

	Temperature     *float32
	TopP            *float32
	TopK            *int
	CandidateCount  *int
	MaxOutputTokens *int
	StopSequences   []string

	// Functions names the registered callbacks advertised to the model for
	// this call. Default and per-call sets are unioned.
	Functions []string

	// FunctionCallingMode constrains whether the model may, must, or must
	// not predict a function call. AllowedFunctionNames only applies to
	// gemini.ModeAny.
	FunctionCallingMode  gemini.FunctionCallingMode
	AllowedFunctionNames []string

	// SafetySettings are passed to the request verbatim.
	SafetySettings []gemini.SafetySetting
}

// Ptr lifts a literal into an optional Options field.
func Ptr[T any](v T) *T { return &v }

// DefaultOptions are the packaged defaults a new Model starts from.
func DefaultOptions() Options {
	return Options{
		Model:       gemini.DefaultChatModel,
		Temperature: Ptr[float32](0.7),
	}
}

// merge layers runtime options over defaults: a set runtime field wins, an
// unset one inherits, and the enabled function sets are unioned.
func merge(defaults Options, runtime *Options) Options {
	out := defaults
	if runtime == nil {
		out.Functions = uniqueSorted(out.Functions)
		return out
	}

	if runtime.Model != "" {
		out.Model = runtime.Model
	}
	if runtime.Temperature != nil {
		out.Temperature = runtime.Temperature
	}
	if runtime.TopP != nil {
		out.TopP = runtime.TopP
	}
	if runtime.TopK != nil {
		out.TopK = runtime.TopK
	}
	if runtime.CandidateCount != nil {
		out.CandidateCount = runtime.CandidateCount
	}
	if runtime.MaxOutputTokens != nil {
		out.MaxOutputTokens = runtime.MaxOutputTokens
	}
	if runtime.StopSequences != nil {
		out.StopSequences = runtime.StopSequences
	}
	if runtime.FunctionCallingMode != "" {
		out.FunctionCallingMode = runtime.FunctionCallingMode
	}
	if runtime.AllowedFunctionNames != nil {
		out.AllowedFunctionNames = runtime.AllowedFunctionNames
	}
	if runtime.SafetySettings != nil {
		out.SafetySettings = runtime.SafetySettings
	}

	out.Functions = uniqueSorted(append(append([]string(nil), defaults.Functions...), runtime.Functions...))
	return out
}

func uniqueSorted(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
