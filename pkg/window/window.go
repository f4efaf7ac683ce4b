package window

import (
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/necroturtle/pkg/graphics"
	"github.com/zurustar/necroturtle/pkg/logger"
	"github.com/zurustar/necroturtle/pkg/turtle"
)

const (
	// PanelWidth はソース表示パネルの幅
	PanelWidth = 320

	lineHeight   = 16
	panelPadding = 10
	statusHeight = 24 // 最下部のステータス行
)

var (
	panelColor     = color.RGBA{0x14, 0x10, 0x1E, 0xFF}
	highlightColor = color.RGBA{0x3A, 0x28, 0x5A, 0xFF}
	lineNoColor    = color.RGBA{0x70, 0x70, 0x80, 0xFF}
	failureColor   = color.RGBA{0xFF, 0x44, 0x44, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// SceneFunc は毎フレームの描画内容を返す
type SceneFunc func() graphics.Scene

// Viewer はEbitengineのゲームインターフェースを実装する
// 左にキャンバス、右に実行中のソースを表示する
type Viewer struct {
	scene   SceneFunc
	timeout time.Duration
	start   time.Time
	log     *slog.Logger

	onClose func()
	onSpeed func(delta int)

	mu      sync.RWMutex
	lines   []string
	current int // 実行中の行（0始まり、-1 は未実行）
	status  string
	failed  bool
	command string // 最後に唱えた呪文
}

// Option は Viewer の設定
type Option func(*Viewer)

// WithTimeout は指定時間後にウィンドウを閉じる
func WithTimeout(d time.Duration) Option {
	return func(v *Viewer) {
		v.timeout = d
	}
}

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(v *Viewer) {
		v.log = log
	}
}

// WithOnClose はウィンドウを閉じるときに呼ばれる関数を設定する
func WithOnClose(fn func()) Option {
	return func(v *Viewer) {
		v.onClose = fn
	}
}

// WithSpeedControl は +/- キーで呼ばれる速度変更関数を設定する
func WithSpeedControl(fn func(delta int)) Option {
	return func(v *Viewer) {
		v.onSpeed = fn
	}
}

// New Viewerを作成
func New(scene SceneFunc, opts ...Option) *Viewer {
	v := &Viewer{
		scene:   scene,
		start:   time.Now(),
		log:     logger.GetLogger(),
		current: -1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetSource は表示するソースを設定し、ハイライトを消す
func (v *Viewer) SetSource(src string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = strings.Split(src, "\n")
	v.current = -1
	v.status = ""
	v.failed = false
	v.command = ""
}

// SetLine は実行中の行を設定する（エンジンの行コールバックから呼ばれる）
func (v *Viewer) SetLine(line int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = line
}

// SetStatus は実行結果を表示する
func (v *Viewer) SetStatus(msg string, success bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = msg
	v.failed = !success
}

// SetCommand は唱えている呪文の名前を設定する（呪文のコールバックから呼ばれる）
func (v *Viewer) SetCommand(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.command = name
}

// statusText はステータス行の文字列を返す
// 結果が出るまでは唱えている呪文を表示する
func (v *Viewer) statusText() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.status == "" && v.command != "" {
		return "Casting: " + v.command + "()", false
	}
	return v.status, v.failed
}

// Line は現在ハイライトしている行を返す
func (v *Viewer) Line() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (v *Viewer) Update() error {
	// タイムアウトチェック
	if v.timeout > 0 && time.Since(v.start) >= v.timeout {
		v.close()
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		v.close()
		return ebiten.Termination
	}

	if v.onSpeed != nil {
		if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
			v.onSpeed(10)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
			v.onSpeed(-10)
		}
	}
	return nil
}

func (v *Viewer) close() {
	if v.onClose != nil {
		v.onClose()
	}
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(graphics.BackgroundColor)
	s := v.scene()
	drawScene(screen, s)
	v.drawPanel(screen, s.Width)
}

// Layout 画面サイズを返す
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := v.scene()
	return canvasSize(s.Width, s.Height)
}

func canvasSize(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		w, h = turtle.DefaultWidth, turtle.DefaultHeight
	}
	return w + PanelWidth, h
}

func drawScene(screen *ebiten.Image, s graphics.Scene) {
	for _, e := range s.Entities {
		if !e.Active {
			continue
		}
		style := graphics.StyleOf(e.Type)
		x, y := float32(e.Position.X), float32(e.Position.Y)
		vector.DrawFilledCircle(screen, x, y, float32(e.Radius), graphics.WithAlpha(style.Glow, 0.15), true)
		vector.DrawFilledCircle(screen, x, y, float32(e.Radius*0.5), graphics.WithAlpha(style.Glow, 0.6), true)
		if style.Label == "" {
			vector.StrokeCircle(screen, x, y, float32(e.Radius), 2, color.RGBA{0x66, 0x66, 0x66, 0xFF}, true)
			continue
		}
		drawText(screen, style.Label, float64(x)-3, float64(y)-6, graphics.TextColor)
	}

	for _, seg := range s.Trail {
		c := graphics.ColorOr(seg.Color, graphics.TurtleColor)
		vector.StrokeLine(screen,
			float32(seg.From.X), float32(seg.From.Y),
			float32(seg.To.X), float32(seg.To.Y),
			float32(seg.Width), c, true)
	}

	vector.DrawFilledCircle(screen, float32(s.Position.X), float32(s.Position.Y), 20,
		graphics.WithAlpha(graphics.TurtleColor, 0.25), true)
	fillTriangle(screen, graphics.TurtleShape(s.Position, s.Angle), graphics.TurtleColor)

	for i, line := range s.HUD {
		drawText(screen, line, 10, float64(10+i*lineHeight), graphics.TextColor)
	}
}

func (v *Viewer) drawPanel(screen *ebiten.Image, canvasWidth int) {
	w, h := canvasSize(canvasWidth, screen.Bounds().Dy())
	left := float32(w - PanelWidth)
	vector.DrawFilledRect(screen, left, 0, PanelWidth, float32(h), panelColor, false)

	v.mu.RLock()
	lines := v.lines
	current := v.current
	v.mu.RUnlock()
	status, failed := v.statusText()

	rows := (h - statusHeight - panelPadding*2) / lineHeight
	first, last := visibleLines(len(lines), current, rows)
	for i := first; i < last; i++ {
		y := float64(panelPadding + (i-first)*lineHeight)
		if i == current {
			vector.DrawFilledRect(screen, left, float32(y)-2, PanelWidth, lineHeight, highlightColor, false)
		}
		drawText(screen, fmt.Sprintf("%3d", i+1), float64(left)+panelPadding, y, lineNoColor)
		drawText(screen, clip(lines[i], (PanelWidth-panelPadding*2)/7-4), float64(left)+panelPadding+28, y, graphics.TextColor)
	}

	if status != "" {
		c := color.Color(graphics.TurtleColor)
		if failed {
			c = failureColor
		}
		drawText(screen, clip(status, (w-panelPadding*2)/7), panelPadding, float64(h-statusHeight+4), c)
	}
}

// visibleLines は current が見えるように表示範囲 [first, last) を決める
func visibleLines(total, current, rows int) (int, int) {
	if rows <= 0 || total <= 0 {
		return 0, 0
	}
	if total <= rows {
		return 0, total
	}
	first := 0
	if current >= 0 {
		first = current - rows/2
	}
	first = max(0, min(first, total-rows))
	return first, first + rows
}

// clip は n 文字を超える行を切り詰める
func clip(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func drawText(screen *ebiten.Image, s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, defaultFace, op)
}

func fillTriangle(dst *ebiten.Image, pts [3]turtle.Point, c color.Color) {
	var path vector.Path
	path.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	path.LineTo(float32(pts[1].X), float32(pts[1].Y))
	path.LineTo(float32(pts[2].X), float32(pts[2].Y))
	path.Close()

	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	r, g, b, a := c.RGBA()
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(r) / 0xffff
		vs[i].ColorG = float32(g) / 0xffff
		vs[i].ColorB = float32(b) / 0xffff
		vs[i].ColorA = float32(a) / 0xffff
	}
	dst.DrawTriangles(vs, is, whiteImage(), &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

// whiteImage は DrawTriangles 用の単色画像（最初の描画時に作る）
var whiteImage = sync.OnceValue(func() *ebiten.Image {
	img := ebiten.NewImage(3, 3)
	img.Fill(color.White)
	return img
})

// Run GUIモードでウィンドウを実行する（ウィンドウが閉じるまで戻らない）
func Run(v *Viewer, title string) error {
	w, h := v.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	v.log.Info("Opening viewer", "width", w, "height", h)
	if err := ebiten.RunGame(v); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}
