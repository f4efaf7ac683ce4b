package animation

import (
	"context"
	"time"
)

// frameUnit は速度1段階あたりのフレーム待機時間
const frameUnit = 200 * time.Microsecond

// Sleeper は d だけ待機する。ctx がキャンセルされたら即座に戻る
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
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

// FrameDelay は速度に対応する1フレームの待機時間を返す
// 速度が低いほど長く、0 は待機なし
func FrameDelay(speed int) time.Duration {
	speed = clampSpeed(speed)
	if speed == 0 {
		return 0
	}
	return time.Duration(MaxSpeed+1-speed) * frameUnit
}

// Clock は Step にフレーム単位の時間を与える
type Clock struct {
	speed func() int
	sleep Sleeper
}

// Frames は fn を n フレーム呼び出す。progress は (0, 1] で最後は必ず 1
// 速度はフレームごとに読み直す。速度 0 なら fn(1) を1回だけ呼んで待機しない
func (c *Clock) Frames(ctx context.Context, n int, fn func(progress float64)) error {
	if n < 1 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		speed := c.speed()
		if speed == 0 {
			fn(1)
			return nil
		}
		fn(float64(i) / float64(n))
		if err := c.sleep(ctx, FrameDelay(speed)); err != nil {
			return err
		}
	}
	return nil
}
