package retry

import (
	"context"
	"time"
)

// Config 重试参数
// MaxRetries 为首次调用之后允许的重试次数，0 表示不限次数
type Config struct {
	InitialDelay time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
}

// Predicate 判断一次调用的结果是否可以接受
type Predicate[R any] func(R) bool

// Wrap0 包装无参操作：反复调用直到 accept 接受结果或重试次数用尽
// 返回值 (result, found, err)：用尽时 found=false 且 err=nil；操作本身的错误直接返回
func Wrap0[R any](op func(ctx context.Context) (R, error), accept Predicate[R], cfg Config) func(ctx context.Context) (R, bool, error) {
	return func(ctx context.Context) (R, bool, error) {
		return run(ctx, cfg, accept, op)
	}
}

// Wrap1 包装单参数操作，每次调用都是一轮新的重试
func Wrap1[A, R any](op func(ctx context.Context, a A) (R, error), accept Predicate[R], cfg Config) func(ctx context.Context, a A) (R, bool, error) {
	return func(ctx context.Context, a A) (R, bool, error) {
		return run(ctx, cfg, accept, func(ctx context.Context) (R, error) {
			return op(ctx, a)
		})
	}
}

// Wrap2 包装双参数操作
func Wrap2[A, B, R any](op func(ctx context.Context, a A, b B) (R, error), accept Predicate[R], cfg Config) func(ctx context.Context, a A, b B) (R, bool, error) {
	return func(ctx context.Context, a A, b B) (R, bool, error) {
		return run(ctx, cfg, accept, func(ctx context.Context) (R, error) {
			return op(ctx, a, b)
		})
	}
}

func run[R any](ctx context.Context, cfg Config, accept Predicate[R], attempt func(ctx context.Context) (R, error)) (R, bool, error) {
	var zero R
	delay := cfg.InitialDelay

	for retries := 0; ; retries++ {
		result, err := attempt(ctx)
		if err != nil {
			return zero, false, err
		}
		if accept == nil || accept(result) {
			return result, true, nil
		}
		if cfg.MaxRetries > 0 && retries >= cfg.MaxRetries {
			return zero, false, nil
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, false, err
		}
		delay = cfg.RetryDelay
	}
}

// sleep 可被 ctx 取消的等待
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
