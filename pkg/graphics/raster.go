package graphics

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/zurustar/necroturtle/pkg/turtle"
)

const circleSegments = 48

// Canvas は x/image/vector で描画する RGBA 画像
type Canvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewCanvas は width x height の Canvas を作成する
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		z:   vector.NewRasterizer(width, height),
	}
}

// Image は描画先の画像を返す
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Fill は全体を塗りつぶす
func (c *Canvas) Fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// FillPolygon は多角形を塗りつぶす
func (c *Canvas) FillPolygon(pts []turtle.Point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = draw.Over
	c.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.X), float32(p.Y))
	}
	c.z.ClosePath()
	c.z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// FillCircle は円を塗りつぶす
func (c *Canvas) FillCircle(center turtle.Point, radius float64, col color.Color) {
	if radius <= 0 {
		return
	}
	c.FillPolygon(circle(center, radius), col)
}

// StrokeCircle は円周を描く
func (c *Canvas) StrokeCircle(center turtle.Point, radius, width float64, col color.Color) {
	pts := circle(center, radius)
	for i := range pts {
		c.StrokeLine(pts[i], pts[(i+1)%len(pts)], width, col)
	}
}

// StrokeLine は太さ width の線分を丸い端点つきで描く
func (c *Canvas) StrokeLine(a, b turtle.Point, width float64, col color.Color) {
	if width <= 0 {
		return
	}
	half := width / 2
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length > 0 {
		nx, ny := -dy/length*half, dx/length*half
		c.FillPolygon([]turtle.Point{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		}, col)
	}
	if half >= 1 {
		c.FillCircle(a, half, col)
		c.FillCircle(b, half, col)
	}
}

// DrawText は basicfont で文字列を描く。(x, y) は左上
func (c *Canvas) DrawText(x, y int, s string, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + face.Ascent)},
	}
	d.DrawString(s)
}

// MeasureText は basicfont での文字列の幅を返す
func MeasureText(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// Render は Scene を新しい画像に描画する
func Render(s Scene) *image.RGBA {
	w, h := s.Width, s.Height
	if w <= 0 || h <= 0 {
		w, h = turtle.DefaultWidth, turtle.DefaultHeight
	}
	c := NewCanvas(w, h)
	c.Draw(s)
	return c.Image()
}

// Draw は Scene を重ねて描画する
// 順序: 背景、エンティティ、軌跡、亀、HUD
func (c *Canvas) Draw(s Scene) {
	c.Fill(BackgroundColor)

	for _, e := range s.Entities {
		if !e.Active {
			continue
		}
		style := StyleOf(e.Type)
		center := turtle.Point{X: e.Position.X, Y: e.Position.Y}
		c.FillCircle(center, e.Radius, WithAlpha(style.Glow, 0.15))
		c.FillCircle(center, e.Radius*0.5, WithAlpha(style.Glow, 0.6))
		if style.Label == "" {
			c.StrokeCircle(center, e.Radius, 2, color.RGBA{0x66, 0x66, 0x66, 0xFF})
			continue
		}
		c.DrawText(int(center.X)-MeasureText(style.Label)/2, int(center.Y)-6, style.Label, TextColor)
	}

	for _, seg := range s.Trail {
		c.StrokeLine(seg.From, seg.To, seg.Width, ColorOr(seg.Color, TurtleColor))
	}

	c.FillCircle(s.Position, 20, WithAlpha(TurtleColor, 0.25))
	tri := TurtleShape(s.Position, s.Angle)
	c.FillPolygon(tri[:], TurtleColor)

	for i, line := range s.HUD {
		c.DrawText(10, 10+i*16, line, TextColor)
	}
}

func circle(center turtle.Point, radius float64) []turtle.Point {
	pts := make([]turtle.Point, circleSegments)
	for i := range pts {
		a := float64(i) * 2 * math.Pi / circleSegments
		pts[i] = turtle.Point{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	return pts
}

// rotate は亀のローカル座標 (lx, ly) をキャンバス座標に変換する
// ローカルの +x が進行方向
func rotate(origin turtle.Point, lx, ly, angle float64) turtle.Point {
	rad := (angle - 90) * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return turtle.Point{
		X: origin.X + lx*cos - ly*sin,
		Y: origin.Y + lx*sin + ly*cos,
	}
}
