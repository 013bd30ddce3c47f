package fncall

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The loop tests drive the state machine with plain strings: a request is
// the conversation so far, a response asking for work is prefixed "call:".
func callDetector(resp string) bool { return strings.HasPrefix(resp, "call:") }

func TestLoopRunPassthrough(t *testing.T) {
	submits := 0
	loop := NewLoop(
		func(_ context.Context, req string) (string, error) {
			submits++
			return "final answer", nil
		},
		callDetector,
		func(_ context.Context, req, resp string) (string, error) {
			t.Fatal("continuation must not run without a function call")
			return "", nil
		},
	)

	resp, err := loop.Run(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "final answer", resp)
	assert.Equal(t, 1, submits)
}

func TestLoopRunSingleCall(t *testing.T) {
	loop := NewLoop(
		func(_ context.Context, req string) (string, error) {
			if strings.Contains(req, "result") {
				return "final answer", nil
			}
			return "call:lookup", nil
		},
		callDetector,
		func(_ context.Context, req, resp string) (string, error) {
			return req + "+result", nil
		},
	)

	resp, err := loop.Run(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "final answer", resp)
}

func TestLoopRunTooManyCalls(t *testing.T) {
	submits := 0
	loop := NewLoop(
		func(_ context.Context, req string) (string, error) {
			submits++
			return "call:again", nil
		},
		callDetector,
		func(_ context.Context, req, resp string) (string, error) {
			return req, nil
		},
		WithMaxFunctionCalls(3),
	)

	_, err := loop.Run(context.Background(), "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyFunctionCalls)
	assert.Equal(t, 4, submits) // initial submit plus three round trips
}

func TestLoopRunSubmitError(t *testing.T) {
	boom := errors.New("boom")
	loop := NewLoop(
		func(_ context.Context, req string) (string, error) { return "", boom },
		callDetector,
		func(_ context.Context, req, resp string) (string, error) { return req, nil },
	)

	_, err := loop.Run(context.Background(), "question")
	assert.ErrorIs(t, err, boom)
}

func TestLoopRunContinuationError(t *testing.T) {
	failed := errors.New("callback failed")
	loop := NewLoop(
		func(_ context.Context, req string) (string, error) { return "call:lookup", nil },
		callDetector,
		func(_ context.Context, req, resp string) (string, error) { return "", failed },
	)

	_, err := loop.Run(context.Background(), "question")
	assert.ErrorIs(t, err, failed)
}

// streamScript replays fixed chunk sequences, one per opened stream.
type streamScript struct {
	streams [][]string
	opened  int
}

func (s *streamScript) open(_ context.Context, _ string) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)
	script := s.streams[s.opened]
	s.opened++
	go func() {
		defer close(chunks)
		defer close(errs)
		for _, chunk := range script {
			chunks <- chunk
		}
	}()
	return chunks, errs
}

func TestLoopRunStreamPassthrough(t *testing.T) {
	script := &streamScript{streams: [][]string{{"Hel", "lo.stop"}}}

	loop := NewLoop[string, string](nil, callDetector, nil)
	out, errs := loop.RunStream(context.Background(), "question", StreamConfig[string, string]{
		Open:   script.open,
		Closes: func(resp string) bool { return strings.HasSuffix(resp, ".stop") },
		Merge:  func(acc, next string) string { return acc + next },
	})

	var got []string
	for chunk := range out {
		got = append(got, chunk)
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []string{"Hel", "lo.stop"}, got)
	assert.Equal(t, 1, script.opened)
}

func TestLoopRunStreamFunctionCall(t *testing.T) {
	script := &streamScript{streams: [][]string{
		{"call:lookup", "args.stop"},
		{"answer.stop"},
	}}

	var continued string
	loop := NewLoop[string, string](nil, callDetector, func(_ context.Context, req, resp string) (string, error) {
		continued = resp
		return req + "+result", nil
	})

	out, errs := loop.RunStream(context.Background(), "question", StreamConfig[string, string]{
		Open:   script.open,
		Closes: func(resp string) bool { return strings.HasSuffix(resp, ".stop") },
		Merge:  func(acc, next string) string { return acc + next },
	})

	var got []string
	for chunk := range out {
		got = append(got, chunk)
	}
	require.NoError(t, <-errs)

	assert.Equal(t, []string{"answer.stop"}, got)
	assert.Equal(t, "call:lookupargs.stop", continued, "window chunks must be merged before continuation")
	assert.Equal(t, 2, script.opened)
}

func TestLoopRunStreamContinuationErrorReleasesProducer(t *testing.T) {
	failed := errors.New("callback failed")
	producerDone := make(chan struct{})

	// The producer honors ctx the way a real transport does; it must be
	// released once the exchange is abandoned, not stay parked on its send.
	open := func(ctx context.Context, _ string) (<-chan string, <-chan error) {
		chunks := make(chan string)
		errs := make(chan error, 1)
		go func() {
			defer close(producerDone)
			defer close(chunks)
			defer close(errs)
			for _, chunk := range []string{"call:a.stop", "b", "c"} {
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}()
		return chunks, errs
	}

	loop := NewLoop[string, string](nil, callDetector, func(_ context.Context, _, _ string) (string, error) {
		return "", failed
	})

	out, errs := loop.RunStream(context.Background(), "question", StreamConfig[string, string]{
		Open:   open,
		Closes: func(resp string) bool { return strings.HasSuffix(resp, ".stop") },
		Merge:  func(acc, next string) string { return acc + next },
	})

	for range out {
		t.Fatal("no output expected")
	}
	assert.ErrorIs(t, <-errs, failed)

	select {
	case <-producerDone:
	case <-time.After(time.Second):
		t.Fatal("stream producer still blocked after the exchange failed")
	}
}

func TestLoopRunStreamMaxCallsReleasesProducer(t *testing.T) {
	producerDone := make(chan struct{})

	open := func(ctx context.Context, _ string) (<-chan string, <-chan error) {
		chunks := make(chan string)
		errs := make(chan error, 1)
		go func() {
			defer close(producerDone)
			defer close(chunks)
			defer close(errs)
			for _, chunk := range []string{"call:a.stop", "b", "c"} {
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}()
		return chunks, errs
	}

	loop := NewLoop[string, string](nil, callDetector, func(_ context.Context, req, _ string) (string, error) {
		return req, nil
	}, WithMaxFunctionCalls(0))

	out, errs := loop.RunStream(context.Background(), "question", StreamConfig[string, string]{
		Open:   open,
		Closes: func(resp string) bool { return strings.HasSuffix(resp, ".stop") },
		Merge:  func(acc, next string) string { return acc + next },
	})

	for range out {
		t.Fatal("no output expected")
	}
	assert.ErrorIs(t, <-errs, ErrTooManyFunctionCalls)

	select {
	case <-producerDone:
	case <-time.After(time.Second):
		t.Fatal("stream producer still blocked after the abort")
	}
}

func TestLoopRunStreamTooManyCalls(t *testing.T) {
	script := &streamScript{streams: [][]string{
		{"call:a.stop"},
		{"call:b.stop"},
	}}

	loop := NewLoop[string, string](nil, callDetector, func(_ context.Context, req, resp string) (string, error) {
		return req, nil
	}, WithMaxFunctionCalls(1))

	out, errs := loop.RunStream(context.Background(), "question", StreamConfig[string, string]{
		Open:   script.open,
		Closes: func(resp string) bool { return strings.HasSuffix(resp, ".stop") },
		Merge:  func(acc, next string) string { return acc + next },
	})

	for range out {
		t.Fatal("no output expected")
	}
	err := <-errs
	assert.ErrorIs(t, err, ErrTooManyFunctionCalls)
}
