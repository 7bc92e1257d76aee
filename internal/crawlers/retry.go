package crawlers

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

// RetryPolicy 线性退避重试策略
// 第 n 次尝试失败后等待 Base + n*Increment
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Increment   time.Duration
}

// DefaultRetryPolicy 默认3次尝试
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(models.DefaultFetchConfig())
}

// NewRetryPolicy 从抓取配置构造
func NewRetryPolicy(cfg models.FetchConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Base:        cfg.BackoffBase,
		Increment:   cfg.BackoffIncrement,
	}
}

// Attempts 有效尝试次数, 至少为1
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff 第 attempt 次 (从1开始) 失败后的等待时长, 随尝试次数单调不减
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base + time.Duration(attempt)*p.Increment
	if d < 0 {
		return 0
	}
	return d
}

// Sleeper 可取消的等待, 测试中替换为记录器
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper 基于计时器的真实等待
type RealSleeper struct{}

// Sleep 等待 d 或直到 ctx 结束
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
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

// Jitter 在 [min, max] 内均匀取值的随机源, 并发安全
type Jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewJitter 使用给定种子创建随机源
func NewJitter(seed int64) *Jitter {
	return &Jitter{rnd: rand.New(rand.NewSource(seed))}
}

// Between 返回 [min, max] 内的随机时长
func (j *Jitter) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return min + time.Duration(j.rnd.Int63n(int64(max-min)+1))
}

// Intn 返回 [0, n) 内的随机整数
func (j *Jitter) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rnd.Intn(n)
}

// Float64 返回 [0, 1) 内的随机数
func (j *Jitter) Float64() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rnd.Float64()
}
