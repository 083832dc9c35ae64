package library

import (
	"context"
	"errors"
	"iter"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
)

// All yields results until the walk is exhausted.
//
// A TemplateError is yielded and iteration continues with the next
// combination. Any other error is yielded once and ends the iteration.
// Breaking out of the loop leaves the library positioned after the last
// result consumed.
//
//	for res, err := range lib.All(ctx) {
//	    ...
//	}
func (l *Library) All(ctx context.Context) iter.Seq2[*ir.Result, error] {
	return func(yield func(*ir.Result, error) bool) {
		for {
			res, err := l.Next(ctx)
			if errors.Is(err, engine.ErrExhausted) {
				return
			}
			if err != nil {
				var te *TemplateError
				if !yield(nil, err) || !errors.As(err, &te) || ctx.Err() != nil {
					return
				}
				continue
			}
			if !yield(res, nil) {
				return
			}
		}
	}
}
