// Package turtle はネクロマンサーの亀（描画カーソル）を実装する
//
// 状態は2つある。
//   - 論理状態: コマンド呼び出しで即座に更新される。ゲーム判定はこちらを使う
//   - 表示状態: アニメーションキューの Step だけが更新する。描画はこちらを使う
//
// AwaitDrain の後は両者が一致する。
package turtle

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/zurustar/necroturtle/pkg/animation"
	"github.com/zurustar/necroturtle/pkg/logger"
)

const (
	// DefaultWidth はキャンバスの既定の幅
	DefaultWidth = 800
	// DefaultHeight はキャンバスの既定の高さ
	DefaultHeight = 600
	// DefaultColor は既定の線の色
	DefaultColor = "#00ff88"
	// DefaultLineWidth は既定の線の太さ
	DefaultLineWidth = 2.0

	pixelsPerFrame  = 4.0
	degreesPerFrame = 6.0
	maxMoveFrames   = 60
	maxTurnFrames   = 30
)

// Point は座標
type Point struct {
	X, Y float64
}

// State は亀の姿勢とペン
// Angle は度数法で 0 が上、時計回りが正
type State struct {
	Position  Point
	Angle     float64
	PenDown   bool
	Color     string
	LineWidth float64
}

// Segment は軌跡の1本の線分
type Segment struct {
	From, To Point
	Color    string
	Width    float64
}

// Snapshot は描画用の表示状態のコピー
type Snapshot struct {
	State
	Trail  []Segment
	Width  int
	Height int
}

// Turtle は論理状態と表示状態を持つ描画カーソル
type Turtle struct {
	width, height int
	start         Point
	startAngle    float64

	logical State // コマンドのみが更新

	display State
	trail   []Segment
	mu      sync.RWMutex // display と trail を保護

	pipeline *animation.Pipeline
	log      *slog.Logger
}

// Option は Turtle の設定
type Option func(*Turtle)

// WithCanvas はキャンバスの大きさを設定する
func WithCanvas(width, height int) Option {
	return func(t *Turtle) {
		if width > 0 && height > 0 {
			t.width, t.height = width, height
		}
	}
}

// WithPipeline はアニメーションキューを設定する
func WithPipeline(p *animation.Pipeline) Option {
	return func(t *Turtle) {
		t.pipeline = p
	}
}

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(t *Turtle) {
		t.log = log
	}
}

// New は中央で上を向いた亀を作成する
func New(opts ...Option) *Turtle {
	t := &Turtle{
		width:  DefaultWidth,
		height: DefaultHeight,
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.pipeline == nil {
		t.pipeline = animation.NewPipeline(animation.WithLogger(t.log))
	}
	t.start = Point{X: float64(t.width) / 2, Y: float64(t.height) / 2}
	t.logical = t.initialState()
	t.display = t.logical
	return t
}

func (t *Turtle) initialState() State {
	return State{
		Position:  t.start,
		Angle:     t.startAngle,
		PenDown:   true,
		Color:     DefaultColor,
		LineWidth: DefaultLineWidth,
	}
}

// Pipeline は亀が所有するアニメーションキューを返す
func (t *Turtle) Pipeline() *animation.Pipeline {
	return t.pipeline
}

// AwaitDrain は積まれたアニメーションをすべて再生する
func (t *Turtle) AwaitDrain(ctx context.Context) error {
	return t.pipeline.AwaitDrain(ctx)
}

// SetAnimationSpeed はアニメーション速度を 0..100 で設定する
func (t *Turtle) SetAnimationSpeed(speed int) {
	t.pipeline.SetSpeed(speed)
}

// State は論理状態を返す
func (t *Turtle) State() State {
	return t.logical
}

// Position は論理位置を返す
func (t *Turtle) Position() Point {
	return t.logical.Position
}

// Snapshot は表示状態のコピーを返す
func (t *Turtle) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	trail := make([]Segment, len(t.trail))
	copy(trail, t.trail)
	return Snapshot{State: t.display, Trail: trail, Width: t.width, Height: t.height}
}

// heading は角度から進行方向の単位ベクトルを求める
func heading(angle float64) (dx, dy float64) {
	rad := (angle - 90) * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}

// Forward は向いている方向に distance だけ進む
func (t *Turtle) Forward(distance float64) {
	from := t.logical.Position
	dx, dy := heading(t.logical.Angle)
	to := Point{X: from.X + distance*dx, Y: from.Y + distance*dy}
	t.logical.Position = to

	pen := t.logical.PenDown
	color, width := t.logical.Color, t.logical.LineWidth
	frames := frameCount(math.Abs(distance), pixelsPerFrame, maxMoveFrames)

	t.pipeline.Enqueue(animation.StepFunc(func(ctx context.Context, c *animation.Clock) error {
		seg := -1
		t.mu.Lock()
		if pen {
			t.trail = append(t.trail, Segment{From: from, To: from, Color: color, Width: width})
			seg = len(t.trail) - 1
		}
		t.mu.Unlock()

		return c.Frames(ctx, frames, func(p float64) {
			pos := lerpPoint(from, to, p)
			t.mu.Lock()
			t.display.Position = pos
			if seg >= 0 && seg < len(t.trail) {
				t.trail[seg].To = pos
			}
			t.mu.Unlock()
		})
	}))
}

// Backward は後ろに distance だけ進む
func (t *Turtle) Backward(distance float64) {
	t.Forward(-distance)
}

// TurnLeft は反時計回りに回る
func (t *Turtle) TurnLeft(angle float64) {
	t.turn(-angle)
}

// TurnRight は時計回りに回る
func (t *Turtle) TurnRight(angle float64) {
	t.turn(angle)
}

func (t *Turtle) turn(delta float64) {
	from := t.logical.Angle
	to := from + delta
	t.logical.Angle = to
	frames := frameCount(math.Abs(delta), degreesPerFrame, maxTurnFrames)

	t.pipeline.Enqueue(animation.StepFunc(func(ctx context.Context, c *animation.Clock) error {
		return c.Frames(ctx, frames, func(p float64) {
			t.mu.Lock()
			t.display.Angle = from + (to-from)*p
			t.mu.Unlock()
		})
	}))
}

// Teleport は線を引かずに (x, y) へ移動する
func (t *Turtle) Teleport(x, y float64) {
	to := Point{X: x, Y: y}
	t.logical.Position = to
	t.apply(func() { t.display.Position = to })
}

// PenUp はペンを上げる
func (t *Turtle) PenUp() {
	t.logical.PenDown = false
	t.apply(func() { t.display.PenDown = false })
}

// PenDown はペンを下ろす
func (t *Turtle) PenDown() {
	t.logical.PenDown = true
	t.apply(func() { t.display.PenDown = true })
}

// SetColor は以降の線の色を設定する
func (t *Turtle) SetColor(color string) {
	t.logical.Color = color
	t.apply(func() { t.display.Color = color })
}

// SetLineWidth は以降の線の太さを設定する
func (t *Turtle) SetLineWidth(width float64) {
	t.logical.LineWidth = width
	t.apply(func() { t.display.LineWidth = width })
}

// Clear は軌跡を消す。位置と向きはそのまま
func (t *Turtle) Clear() {
	t.apply(func() { t.trail = nil })
}

// Reset は軌跡を消して初期状態に戻す
func (t *Turtle) Reset() {
	initial := t.initialState()
	t.logical = initial
	t.apply(func() {
		t.display = initial
		t.trail = nil
	})
}

// SetStart は Reset で戻る位置と向きを変更し、即座にそこへ移動する
// クエスト開始時に使う
func (t *Turtle) SetStart(p Point, angle float64) {
	t.start = p
	t.startAngle = angle
	t.Restart()
}

// Restart は未再生のアニメーションを破棄し、表示状態も含めて即座に初期状態へ戻す
func (t *Turtle) Restart() {
	t.pipeline.Clear()
	t.logical = t.initialState()
	t.mu.Lock()
	t.display = t.logical
	t.trail = nil
	t.mu.Unlock()
}

// apply は表示状態を即座に書き換える Step を積む
func (t *Turtle) apply(fn func()) {
	t.pipeline.Enqueue(animation.StepFunc(func(ctx context.Context, c *animation.Clock) error {
		t.mu.Lock()
		fn()
		t.mu.Unlock()
		return nil
	}))
}

func frameCount(amount, perFrame float64, max int) int {
	n := int(math.Ceil(amount / perFrame))
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

func lerpPoint(a, b Point, p float64) Point {
	return Point{X: a.X + (b.X-a.X)*p, Y: a.Y + (b.Y-a.Y)*p}
}
