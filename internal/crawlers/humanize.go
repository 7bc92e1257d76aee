package crawlers

import (
	"context"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
)

// Simulator 人类行为模拟器
// 在页面上随机移动指针和滚动, 每一步之后短暂停顿
// 单步失败只记录日志, 不影响后续步骤
type Simulator struct {
	viewport models.Viewport
	minSteps int
	maxSteps int
	minDelay time.Duration
	maxDelay time.Duration

	jitter  *Jitter
	sleeper Sleeper
}

// NewSimulator 创建模拟器
func NewSimulator(viewport models.Viewport, minDelay, maxDelay time.Duration, jitter *Jitter, sleeper Sleeper) *Simulator {
	if jitter == nil {
		jitter = NewJitter(time.Now().UnixNano())
	}
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Simulator{
		viewport: viewport,
		minSteps: 3,
		maxSteps: 6,
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   jitter,
		sleeper:  sleeper,
	}
}

// Simulate 执行一组随机操作, 返回实际执行的步数
// 只有 ctx 结束会提前返回
func (s *Simulator) Simulate(ctx context.Context, page Page) int {
	steps := s.minSteps + s.jitter.Intn(s.maxSteps-s.minSteps+1)
	performed := 0

	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return performed
		}

		var err error
		action := "move"
		if s.jitter.Intn(3) == 0 {
			action = "scroll"
			// 以向下为主, 偶尔回滚
			dy := 120 + s.jitter.Float64()*480
			if s.jitter.Intn(4) == 0 {
				dy = -dy / 2
			}
			err = page.Scroll(dy)
		} else {
			x := 10 + s.jitter.Float64()*float64(max(s.viewport.Width-20, 1))
			y := 10 + s.jitter.Float64()*float64(max(s.viewport.Height-20, 1))
			err = page.MoveMouse(x, y)
		}
		performed++

		if err != nil {
			utils.Logger.Debug().Err(err).Str("action", action).Int("step", i+1).Msg("模拟操作失败, 继续")
		}

		if err := s.sleeper.Sleep(ctx, s.jitter.Between(s.minDelay, s.maxDelay)); err != nil {
			return performed
		}
	}
	return performed
}
