package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"news_hub/internal/logger"

	"golang.org/x/sync/errgroup"
)

// Gather запускает n задач, не больше limit одновременно, и ждёт все.
// Результат задачи i лежит в позиции i. Паника в задаче не затрагивает
// остальные: в её позиции остаётся нулевое значение.
func Gather[T any](ctx context.Context, limit, n int, task func(ctx context.Context, i int) T) []T {
	results := make([]T, n)
	if n == 0 {
		return results
	}
	if limit < 1 || limit > n {
		limit = n
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Log.WithFields(logger.Fields{
						"task":  i,
						"panic": fmt.Sprint(r),
					}).Errorf("Task panicked: %s", debug.Stack())
				}
			}()
			if ctx.Err() != nil {
				return nil
			}
			results[i] = task(ctx, i)
			return nil
		})
	}

	// задачи не возвращают ошибок
	_ = g.Wait()
	return results
}
