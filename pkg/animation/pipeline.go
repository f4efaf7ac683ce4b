// Package animation は描画の遅延実行キューを提供する
//
// コマンドは論理状態を即座に更新し、見た目の変化は Step としてキューに積む。
// AwaitDrain が積まれた順に Step を実行し、キューが空になるまで戻らない。
package animation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/necroturtle/pkg/logger"
)

const (
	// MinSpeed は最も遅い速度
	MinSpeed = 0
	// MaxSpeed は最も速い速度
	MaxSpeed = 100
	// DefaultSpeed は初期速度
	DefaultSpeed = 50
)

// Step は1コマンド分のアニメーション
type Step interface {
	Animate(ctx context.Context, c *Clock) error
}

// StepFunc は関数を Step として扱うアダプタ
type StepFunc func(ctx context.Context, c *Clock) error

// Animate は f を呼び出す
func (f StepFunc) Animate(ctx context.Context, c *Clock) error {
	return f(ctx, c)
}

// AnimationError はキューの消化中に Step が失敗したことを表す
type AnimationError struct {
	Index int // 消化中の通し番号（0始まり）
	Err   error
}

func (e *AnimationError) Error() string {
	return fmt.Sprintf("animation step %d failed: %v", e.Index, e.Err)
}

func (e *AnimationError) Unwrap() error {
	return e.Err
}

// Pipeline はスレッドセーフなアニメーションキュー
type Pipeline struct {
	steps []Step
	speed int
	clock *Clock
	log   *slog.Logger
	mu    sync.Mutex
	drain sync.Mutex // AwaitDrain の同時実行を防ぐ
}

// Option は Pipeline の設定
type Option func(*Pipeline)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithSpeed は初期速度を設定する
func WithSpeed(speed int) Option {
	return func(p *Pipeline) {
		p.speed = clampSpeed(speed)
	}
}

// WithSleeper は待機処理を差し替える（テスト用）
func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) {
		p.clock.sleep = s
	}
}

// NewPipeline は新しい Pipeline を作成する
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		speed: DefaultSpeed,
		log:   logger.GetLogger(),
	}
	p.clock = &Clock{speed: p.Speed, sleep: contextSleep}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue は Step をキューの末尾に追加する
func (p *Pipeline) Enqueue(s Step) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, s)
}

// Len はキュー内の Step 数を返す
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}

// Clear は未実行の Step をすべて破棄する
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = p.steps[:0]
}

// SetSpeed は速度を 0..100 に丸めて設定する
// 実行中の Step も次のフレームから新しい速度を使う
func (p *Pipeline) SetSpeed(speed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = clampSpeed(speed)
}

// Speed は現在の速度を返す
func (p *Pipeline) Speed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// pop は先頭の Step を取り出す
func (p *Pipeline) pop() (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.steps) == 0 {
		return nil, false
	}
	s := p.steps[0]
	p.steps[0] = nil
	p.steps = p.steps[1:]
	return s, true
}

// AwaitDrain はキューが空になるまで Step を先頭から順に実行する
// 実行中に追加された Step も消化する
// Step が失敗した場合は残りを破棄して *AnimationError を返す
func (p *Pipeline) AwaitDrain(ctx context.Context) error {
	p.drain.Lock()
	defer p.drain.Unlock()

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			p.Clear()
			return err
		}

		s, ok := p.pop()
		if !ok {
			break
		}

		if err := p.run(ctx, s); err != nil {
			p.Clear()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Error("Animation step failed", "index", count, "error", err)
			return &AnimationError{Index: count, Err: err}
		}
		count++
	}

	if count > 0 {
		p.log.Debug("Animation drained", "steps", count, "speed", p.Speed())
	}
	return nil
}

// run は1つの Step を実行する。panic はエラーに変換する
func (p *Pipeline) run(ctx context.Context, s Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Animate(ctx, p.clock)
}

func clampSpeed(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
