package fncall

import (
	"context"
	"log/slog"
)

// Windows reassembles a chunked response stream into logical responses.
//
// A chunk that carries a function call opens a window; every following
// chunk is merged into it until closes reports the terminal chunk, at
// which point the accumulated response is emitted as one unit. Chunks
// outside a window pass through one-to-one. Delivery order is preserved
// exactly; reordering would corrupt function-call reconstruction.
//
// Grouping until a stop signal is a reconstruction heuristic, not a
// documented provider guarantee: a stream that ends with a window still
// open is flushed as-is, while an error or cancellation discards the
// partial window so no callback ever runs on incomplete data.
func Windows[Resp any](ctx context.Context, chunks <-chan Resp, errs <-chan error, opens func(Resp) bool, closes func(Resp) bool, merge func(acc, next Resp) Resp) (<-chan Resp, <-chan error) {
	out := make(chan Resp)
	errsOut := make(chan error, 1)

	emit := func(resp Resp) bool {
		select {
		case out <- resp:
			return true
		case <-ctx.Done():
			errsOut <- ctx.Err()
			return false
		}
	}

	go func() {
		defer close(out)
		defer close(errsOut)

		var acc Resp
		open := false

		for chunks != nil || errs != nil {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					chunks = nil
					continue
				}
				switch {
				case open:
					acc = merge(acc, chunk)
					if closes(chunk) {
						if !emit(acc) {
							return
						}
						open = false
					}
				case opens(chunk):
					if closes(chunk) {
						if !emit(chunk) {
							return
						}
						continue
					}
					acc = chunk
					open = true
				default:
					if !emit(chunk) {
						return
					}
				}

			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if err != nil {
					if open {
						slog.Debug("discarding partial function-call window", "error", err)
					}
					errsOut <- err
					return
				}

			case <-ctx.Done():
				errsOut <- ctx.Err()
				return
			}
		}

		if open {
			slog.Debug("stream ended with open window, flushing")
			emit(acc)
		}
	}()

	return out, errsOut
}
