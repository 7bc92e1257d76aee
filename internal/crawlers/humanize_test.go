package crawlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

func TestSimulator_Simulate(t *testing.T) {
	sleeper := &recordingSleeper{}
	sim := NewSimulator(models.Viewport{Width: 1366, Height: 768}, 100*time.Millisecond, 900*time.Millisecond, NewJitter(7), sleeper)
	page := &fakePage{session: newFakeSession()}

	steps := sim.Simulate(context.Background(), page)

	if steps < 3 || steps > 6 {
		t.Errorf("步数 = %d, 期望 3-6", steps)
	}
	if page.moves+page.scrolls != steps {
		t.Errorf("操作次数 %d != 步数 %d", page.moves+page.scrolls, steps)
	}

	delays := sleeper.recorded()
	if len(delays) != steps {
		t.Errorf("停顿次数 = %d, 期望 %d", len(delays), steps)
	}
	for _, d := range delays {
		if d < 100*time.Millisecond || d > 900*time.Millisecond {
			t.Errorf("停顿 %s 超出范围", d)
		}
	}
}

func TestSimulator_ErrorsSwallowed(t *testing.T) {
	sim := NewSimulator(models.Viewport{Width: 800, Height: 600}, 0, 0, NewJitter(3), noopSleeper{})
	page := &fakePage{session: newFakeSession(), step: fakeStep{interactErr: errors.New("execution context was destroyed")}}

	steps := sim.Simulate(context.Background(), page)

	if steps < 3 {
		t.Errorf("单步失败后应继续执行, 只执行了 %d 步", steps)
	}
}

func TestSimulator_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := NewSimulator(models.Viewport{Width: 800, Height: 600}, 0, 0, NewJitter(3), noopSleeper{})
	page := &fakePage{session: newFakeSession()}

	if steps := sim.Simulate(ctx, page); steps != 0 {
		t.Errorf("已取消时不应执行操作, 执行了 %d 步", steps)
	}
}
