package chat

import (
	"fmt"
	"strings"

	"github.com/harunnryd/genkai/function"
	"github.com/harunnryd/genkai/gemini"
)

// buildRequest assembles the provider request for one exchange: user and
// assistant turns become contents, system turns collapse into a single
// system instruction, and the enabled functions are advertised as tools.
func buildRequest(messages []Message, opts Options, registry *function.Registry) (*gemini.GenerateContentRequest, error) {
	contents := make([]gemini.Content, 0, len(messages))
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleUser:
			parts := []gemini.Part{gemini.TextPart{Text: msg.Content}}
			for _, media := range msg.Media {
				data, ok := media.Data.([]byte)
				if !ok {
					return nil, fmt.Errorf("%w: %T", ErrUnsupportedMedia, media.Data)
				}
				parts = append(parts, gemini.BlobPart{MIMEType: media.MIMEType, Data: data})
			}
			contents = append(contents, gemini.Content{Role: gemini.RoleUser, Parts: parts})
		case RoleAssistant:
			contents = append(contents, gemini.Content{
				Role:  gemini.RoleModel,
				Parts: []gemini.Part{gemini.TextPart{Text: msg.Content}},
			})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedMessageType, msg.Role)
		}
	}

	req := &gemini.GenerateContentRequest{
		Contents:         contents,
		SafetySettings:   opts.SafetySettings,
		GenerationConfig: generationConfig(opts),
	}

	if instruction := strings.Join(system, "\n"); instruction != "" {
		req.SystemInstruction = &gemini.Content{
			Parts: []gemini.Part{gemini.TextPart{Text: instruction}},
		}
	}

	if len(opts.Functions) > 0 {
		if registry == nil {
			return nil, fmt.Errorf("%w: no registry configured", function.ErrUnknownFunction)
		}
		decls, err := registry.Resolve(opts.Functions)
		if err != nil {
			return nil, err
		}
		req.Tools = []gemini.Tool{{FunctionDeclarations: decls}}
	}

	if opts.FunctionCallingMode != "" {
		req.ToolConfig = &gemini.ToolConfig{
			FunctionCallingConfig: &gemini.FunctionCallingConfig{
				Mode:                 opts.FunctionCallingMode,
				AllowedFunctionNames: opts.AllowedFunctionNames,
			},
		}
	}

	return req, nil
}

func generationConfig(opts Options) *gemini.GenerationConfig {
	if opts.Temperature == nil && opts.TopP == nil && opts.TopK == nil &&
		opts.CandidateCount == nil && opts.MaxOutputTokens == nil && len(opts.StopSequences) == 0 {
		return nil
	}
	return &gemini.GenerationConfig{
		StopSequences:   opts.StopSequences,
		CandidateCount:  opts.CandidateCount,
		MaxOutputTokens: opts.MaxOutputTokens,
		Temperature:     opts.Temperature,
		TopP:            opts.TopP,
		TopK:            opts.TopK,
	}
}
