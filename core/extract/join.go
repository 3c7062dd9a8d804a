// Package extract resolves typed handler arguments from a request. Every
// argument of a handler is extracted concurrently; the handler runs once all
// of them succeeded, and the first failure becomes the response.
package extract

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Op is one independent argument resolution
type Op func(ctx context.Context) (any, error)

type opResult struct {
	index int
	value any
	err   error
}

// All runs every op concurrently and returns their values in declaration
// order. The first op to fail completes All with its error; ops still running
// at that point are abandoned and their results discarded. Cancelling ctx
// completes All with ctx.Err().
func All(ctx context.Context, ops ...Op) ([]any, error) {
	values := make([]any, len(ops))
	if len(ops) == 0 {
		return values, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so abandoned ops never block on send
	results := make(chan opResult, len(ops))
	for i, op := range ops {
		go run(ctx, i, op, results)
	}

	for pending := len(ops); pending > 0; pending-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-results:
			if r.err != nil {
				return nil, r.err
			}
			values[r.index] = r.value
		}
	}

	return values, nil
}

func run(ctx context.Context, index int, op Op, results chan<- opResult) {
	defer func() {
		if p := recover(); p != nil {
			results <- opResult{index: index, err: errors.Errorf("extract: panic in argument %d: %v", index, p)}
		}
	}()

	v, err := op(ctx)
	results <- opResult{index: index, value: v, err: err}
}

// Join2 resolves two typed ops concurrently
func Join2[A, B any](ctx context.Context,
	a func(context.Context) (A, error),
	b func(context.Context) (B, error),
) (A, B, error) {
	var (
		ra A
		rb B
	)

	values, err := All(ctx, erase(a), erase(b))
	if err != nil {
		return ra, rb, err
	}

	return cast[A](values[0]), cast[B](values[1]), nil
}

// Join3 resolves three typed ops concurrently
func Join3[A, B, C any](ctx context.Context,
	a func(context.Context) (A, error),
	b func(context.Context) (B, error),
	c func(context.Context) (C, error),
) (A, B, C, error) {
	var (
		ra A
		rb B
		rc C
	)

	values, err := All(ctx, erase(a), erase(b), erase(c))
	if err != nil {
		return ra, rb, rc, err
	}

	return cast[A](values[0]), cast[B](values[1]), cast[C](values[2]), nil
}

// Join4 resolves four typed ops concurrently
func Join4[A, B, C, D any](ctx context.Context,
	a func(context.Context) (A, error),
	b func(context.Context) (B, error),
	c func(context.Context) (C, error),
	d func(context.Context) (D, error),
) (A, B, C, D, error) {
	var (
		ra A
		rb B
		rc C
		rd D
	)

	values, err := All(ctx, erase(a), erase(b), erase(c), erase(d))
	if err != nil {
		return ra, rb, rc, rd, err
	}

	return cast[A](values[0]), cast[B](values[1]), cast[C](values[2]), cast[D](values[3]), nil
}

func erase[T any](fn func(context.Context) (T, error)) Op {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// cast converts an erased value back. A nil interface value yields the zero
// T instead of panicking.
func cast[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("extract: value of type %T is not %T", v, t))
	}
	return t
}
