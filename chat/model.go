package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/genkai/fncall"
	"github.com/harunnryd/genkai/function"
	"github.com/harunnryd/genkai/gemini"
	"github.com/harunnryd/genkai/internal/logger"
	"github.com/harunnryd/genkai/retry"
)

// Completer is the transport boundary of the chat model: exactly the two
// generation exchanges of gemini.Client. Tests substitute a scripted fake.
type Completer interface {
	GenerateContent(ctx context.Context, model string, body *gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error)
	StreamGenerateContent(ctx context.Context, model string, body *gemini.GenerateContentRequest) (<-chan *gemini.GenerateContentResponse, <-chan error)
}

// Model is a conversational facade over a Completer. It builds provider
// requests from messages, runs the function-calling loop against its
// registry, and normalizes terminal responses. Safe for concurrent use.
type Model struct {
	api      Completer
	registry *function.Registry
	defaults Options
	retry    retry.Policy
	maxCalls int
}

// ModelOption customizes a Model.
type ModelOption func(*Model)

// WithDefaults replaces the packaged default options.
func WithDefaults(opts Options) ModelOption {
	return func(m *Model) { m.defaults = opts }
}

// WithRetryPolicy sets the policy wrapping each blocking exchange. The
// Retryable classifier is fixed by the model; only attempts and backoff
// are taken from the given policy.
func WithRetryPolicy(p retry.Policy) ModelOption {
	return func(m *Model) {
		m.retry.MaxAttempts = p.MaxAttempts
		m.retry.Backoff = p.Backoff
	}
}

// WithMaxFunctionCalls bounds function-call round trips per exchange.
func WithMaxFunctionCalls(n int) ModelOption {
	return func(m *Model) { m.maxCalls = n }
}

func New(api Completer, registry *function.Registry, opts ...ModelOption) *Model {
	m := &Model{
		api:      api,
		registry: registry,
		defaults: DefaultOptions(),
		retry: retry.NewPolicy(retry.DefaultMaxAttempts, retry.DefaultBackoff, func(err error) bool {
			return errors.Is(err, gemini.ErrTransport)
		}),
		maxCalls: fncall.DefaultMaxFunctionCalls,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Call runs one blocking conversation exchange. Function calls predicted
// by the model are executed against the registry and fed back until a
// terminal response arrives, which is returned normalized.
func (m *Model) Call(ctx context.Context, messages []Message, runtime *Options) (*Response, error) {
	ctx = ensureTraceID(ctx)

	opts := merge(m.defaults, runtime)
	req, err := buildRequest(messages, opts, m.registry)
	if err != nil {
		return nil, err
	}

	loop := fncall.NewLoop(
		m.submitter(opts.Model),
		isFunctionCall,
		m.continuer(),
		fncall.WithMaxFunctionCalls(m.maxCalls),
	)

	resp, err := loop.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return normalize(resp), nil
}

// Stream runs one streaming conversation exchange. Text chunks are
// delivered normalized as they arrive; function-call chunks are
// reassembled, executed, and the stream is transparently reopened with the
// function result. Both channels are closed when the exchange finishes.
func (m *Model) Stream(ctx context.Context, messages []Message, runtime *Options) (<-chan *Response, <-chan error) {
	out := make(chan *Response)
	errs := make(chan error, 1)

	ctx = ensureTraceID(ctx)

	opts := merge(m.defaults, runtime)
	req, err := buildRequest(messages, opts, m.registry)
	if err != nil {
		errs <- err
		close(out)
		close(errs)
		return out, errs
	}

	loop := fncall.NewLoop(
		m.submitter(opts.Model),
		isFunctionCall,
		m.continuer(),
		fncall.WithMaxFunctionCalls(m.maxCalls),
	)

	chunks, cerrs := loop.RunStream(ctx, req, fncall.StreamConfig[*gemini.GenerateContentRequest, *gemini.GenerateContentResponse]{
		// A streaming exchange is never retried: chunks may already have
		// been delivered, and replaying the request could re-run callbacks.
		Open: func(ctx context.Context, req *gemini.GenerateContentRequest) (<-chan *gemini.GenerateContentResponse, <-chan error) {
			return m.api.StreamGenerateContent(ctx, opts.Model, req)
		},
		Closes: chunkCloses,
		Merge:  mergeChunks,
	})

	go func() {
		defer close(out)
		defer close(errs)
		for chunk := range chunks {
			select {
			case out <- normalize(chunk):
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err, ok := <-cerrs; ok && err != nil {
			errs <- err
		}
	}()

	return out, errs
}

// submitter wraps one blocking exchange with the retry policy. Only
// transport failures are retried; API rejections and callback errors
// surface immediately.
func (m *Model) submitter(model string) fncall.Submitter[*gemini.GenerateContentRequest, *gemini.GenerateContentResponse] {
	return func(ctx context.Context, req *gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
		var resp *gemini.GenerateContentResponse
		err := m.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			resp, err = m.api.GenerateContent(ctx, model, req)
			return err
		})
		return resp, err
	}
}

// continuer executes the predicted function and extends the conversation:
// previous contents, then the model's call turn, then the function result.
func (m *Model) continuer() fncall.Continuer[*gemini.GenerateContentRequest, *gemini.GenerateContentResponse] {
	return func(ctx context.Context, req *gemini.GenerateContentRequest, resp *gemini.GenerateContentResponse) (*gemini.GenerateContentRequest, error) {
		call, ok := resp.FirstPart().(gemini.FunctionCallPart)
		if !ok {
			return nil, errors.New("continuation on a response without a function call")
		}

		slog.Debug("executing function call",
			"function", call.Name,
			"trace_id", logger.GetTraceID(ctx),
		)

		result, err := m.registry.Invoke(ctx, call.Name, call.Args)
		if err != nil {
			return nil, err
		}

		contents := append(append([]gemini.Content(nil), req.Contents...),
			resp.Candidates[0].Content,
			gemini.Content{
				Role: gemini.RoleUser,
				Parts: []gemini.Part{gemini.FunctionResponsePart{
					Name:     call.Name,
					Response: result,
				}},
			},
		)
		next := req.WithContents(contents)
		return &next, nil
	}
}

func isFunctionCall(resp *gemini.GenerateContentResponse) bool {
	_, ok := resp.FirstPart().(gemini.FunctionCallPart)
	return ok
}

// chunkCloses marks the terminal chunk of a streamed candidate.
func chunkCloses(resp *gemini.GenerateContentResponse) bool {
	return len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == gemini.FinishReasonStop
}

// mergeChunks folds a stream chunk into the window accumulator: parts
// accumulate in arrival order, scalar fields take the latest value seen.
func mergeChunks(acc, next *gemini.GenerateContentResponse) *gemini.GenerateContentResponse {
	if len(next.Candidates) == 0 {
		if next.UsageMetadata != nil {
			acc.UsageMetadata = next.UsageMetadata
		}
		if next.PromptFeedback != nil {
			acc.PromptFeedback = next.PromptFeedback
		}
		return acc
	}
	if len(acc.Candidates) == 0 {
		acc.Candidates = next.Candidates
	} else {
		acc.Candidates[0].Content.Parts = append(acc.Candidates[0].Content.Parts, next.Candidates[0].Content.Parts...)
		if next.Candidates[0].FinishReason != "" {
			acc.Candidates[0].FinishReason = next.Candidates[0].FinishReason
		}
	}
	if next.UsageMetadata != nil {
		acc.UsageMetadata = next.UsageMetadata
	}
	if next.PromptFeedback != nil {
		acc.PromptFeedback = next.PromptFeedback
	}
	return acc
}

func ensureTraceID(ctx context.Context) context.Context {
	if logger.GetTraceID(ctx) != "" {
		return ctx
	}
	return logger.WithTraceID(ctx, ulid.Make().String())
}
