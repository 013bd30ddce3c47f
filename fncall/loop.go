// Package fncall drives the function-calling exchange loop between a
// generative model and locally executed callbacks. It is generic over the
// provider's request and response types: the provider adapter supplies one
// submit operation, one function-call detector, and one continuation that
// folds an executed function result into the next request.
package fncall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxFunctionCalls bounds consecutive function-call round trips in
// one conversation exchange. Without a bound a model that keeps predicting
// calls would ping-pong forever.
const DefaultMaxFunctionCalls = 10

// ErrTooManyFunctionCalls reports that the round-trip bound was hit before
// the model produced a terminal response.
var ErrTooManyFunctionCalls = errors.New("too many function calls")

// Submitter performs one request/response exchange with the provider.
type Submitter[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Detector reports whether a response asks for a function call.
type Detector[Resp any] func(resp Resp) bool

// Continuer executes the requested function and returns the follow-up
// request: previous history plus the model's call turn plus the function
// response turn, with model and tool configuration carried over.
type Continuer[Req, Resp any] func(ctx context.Context, req Req, resp Resp) (Req, error)

// Loop is the function-calling state machine. One Loop value is safe for
// concurrent use as long as its three capabilities are.
type Loop[Req, Resp any] struct {
	submit   Submitter[Req, Resp]
	detect   Detector[Resp]
	cont     Continuer[Req, Resp]
	maxCalls int
}

// LoopOption customizes a Loop.
type LoopOption func(*loopSettings)

type loopSettings struct {
	maxCalls int
}

// WithMaxFunctionCalls overrides the round-trip bound.
func WithMaxFunctionCalls(n int) LoopOption {
	return func(s *loopSettings) { s.maxCalls = n }
}

func NewLoop[Req, Resp any](submit Submitter[Req, Resp], detect Detector[Resp], cont Continuer[Req, Resp], opts ...LoopOption) *Loop[Req, Resp] {
	settings := loopSettings{maxCalls: DefaultMaxFunctionCalls}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Loop[Req, Resp]{
		submit:   submit,
		detect:   detect,
		cont:     cont,
		maxCalls: settings.maxCalls,
	}
}

// Run submits the request and keeps exchanging function calls for function
// results until the model answers with a terminal response, which is
// returned untouched. Each round trip submits once and invokes at most one
// function.
func (l *Loop[Req, Resp]) Run(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	for calls := 0; ; calls++ {
		resp, err := l.submit(ctx, req)
		if err != nil {
			return zero, err
		}
		if !l.detect(resp) {
			return resp, nil
		}
		if calls >= l.maxCalls {
			return zero, fmt.Errorf("aborted after %d round trips: %w", l.maxCalls, ErrTooManyFunctionCalls)
		}
		slog.Debug("function call requested", "round_trip", calls+1)
		req, err = l.cont(ctx, req, resp)
		if err != nil {
			return zero, err
		}
	}
}

// Streamer opens one streaming exchange with the provider.
type Streamer[Req, Resp any] func(ctx context.Context, req Req) (<-chan Resp, <-chan error)

// StreamConfig describes how to run the loop over a chunked response
// stream. Closes marks the terminal chunk of an open function-call window;
// Merge folds the next chunk of a window into the accumulated response.
type StreamConfig[Req, Resp any] struct {
	Open   Streamer[Req, Resp]
	Closes func(resp Resp) bool
	Merge  func(acc, next Resp) Resp
}

// RunStream is the streaming variant of Run. Chunks are reassembled into
// logical responses (see Windows); each logical response then takes the
// same transition as in Run: a function call is executed and the stream is
// reopened with the follow-up request, anything else is delivered to the
// caller. Both returned channels are closed when the exchange finishes.
func (l *Loop[Req, Resp]) RunStream(ctx context.Context, req Req, cfg StreamConfig[Req, Resp]) (<-chan Resp, <-chan error) {
	out := make(chan Resp)
	errsOut := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errsOut)

		// Abandoning the exchange must unblock the window stage and the
		// transport producer behind it, or they stay parked on their sends.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		calls := 0
		for {
			chunks, errs := cfg.Open(ctx, req)
			windows, werrs := Windows(ctx, chunks, errs, l.detect, cfg.Closes, cfg.Merge)

			resubmit := false
			for window := range windows {
				if resubmit {
					// Only the first function call of a response is acted
					// on; trailing windows of the same stream are dropped.
					continue
				}
				if l.detect(window) {
					if calls >= l.maxCalls {
						errsOut <- fmt.Errorf("aborted after %d round trips: %w", l.maxCalls, ErrTooManyFunctionCalls)
						return
					}
					calls++
					next, err := l.cont(ctx, req, window)
					if err != nil {
						errsOut <- err
						return
					}
					req = next
					resubmit = true
					continue
				}
				select {
				case out <- window:
				case <-ctx.Done():
					errsOut <- ctx.Err()
					return
				}
			}

			if err, ok := <-werrs; ok && err != nil {
				errsOut <- err
				return
			}
			if !resubmit {
				return
			}
		}
	}()

	return out, errsOut
}
