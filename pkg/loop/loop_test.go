package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/constructum-ci/constructum/pkg/loop"
	"github.com/constructum-ci/constructum/pkg/utils/try"
)

func TestStart(t *testing.T) {
	t.Run("it threads the value through passes until Break", func(t *testing.T) {
		actual := try.To(loop.Start(
			context.Background(), 0, func(_ context.Context, v int) (int, loop.Next) {
				if 10 <= v {
					return v, loop.Break(nil)
				}
				return v + 1, loop.Continue(0)
			},
		)).OrFatal(t)

		if actual != 10 {
			t.Errorf("unexpected value: %d (expected: 10)", actual)
		}
	})

	t.Run("it breaks with the error passed to Break", func(t *testing.T) {
		expected := errors.New("fake error")
		_, err := loop.Start(
			context.Background(), 0, func(_ context.Context, v int) (int, loop.Next) {
				return v, loop.Break(expected)
			},
		)
		if !errors.Is(err, expected) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it stops with ctx.Err when the context is cancelled between passes", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		value, err := loop.Start(
			ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
				if v == 3 {
					cancel()
				}
				return v + 1, loop.Continue(time.Millisecond)
			},
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if value != 4 {
			t.Errorf("unexpected value: %d (expected: 4)", value)
		}
	})

	t.Run("it passes a deadlined context when WithTimeout is given", func(t *testing.T) {
		timeout := 100 * time.Millisecond

		try.To(loop.Start(
			context.Background(), 1, func(ctx context.Context, v int) (int, loop.Next) {
				now := time.Now()

				if deadline, ok := ctx.Deadline(); !ok {
					t.Errorf("deadline is not set")
				} else if !(deadline.Sub(now) <= timeout) {
					t.Errorf(
						"unexpected deadline\n===actual===\n%s\n===expected===\n(near) %s",
						deadline, now.Add(timeout),
					)
				}

				if 3 <= v {
					return v + 1, loop.Break(nil)
				}
				return v + 1, loop.Continue(time.Millisecond)
			},
			loop.WithTimeout(timeout),
		)).OrFatal(t)
	})

	t.Run("when the context has been done before starting, it does nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		passes := 0
		_, err := loop.Start(
			ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
				passes += 1
				return v, loop.Continue(0)
			},
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if passes != 0 {
			t.Errorf("task ran %d times, unexpectedly", passes)
		}
	})
}
