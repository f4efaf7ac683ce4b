package graphics

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// 既定の配色
var (
	BackgroundColor = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	TurtleColor     = color.RGBA{0x00, 0xFF, 0x88, 0xFF}
	TextColor       = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	AccentColor     = color.RGBA{0xBB, 0x88, 0xFF, 0xFF}
)

var namedColors = map[string]color.RGBA{
	"black":  {0x00, 0x00, 0x00, 0xFF},
	"white":  {0xFF, 0xFF, 0xFF, 0xFF},
	"red":    {0xFF, 0x00, 0x00, 0xFF},
	"green":  {0x00, 0x80, 0x00, 0xFF},
	"lime":   {0x00, 0xFF, 0x00, 0xFF},
	"blue":   {0x00, 0x00, 0xFF, 0xFF},
	"yellow": {0xFF, 0xFF, 0x00, 0xFF},
	"cyan":   {0x00, 0xFF, 0xFF, 0xFF},
	"purple": {0x80, 0x00, 0x80, 0xFF},
	"orange": {0xFF, 0xA5, 0x00, 0xFF},
	"gray":   {0x80, 0x80, 0x80, 0xFF},
	"grey":   {0x80, 0x80, 0x80, 0xFF},
}

// ParseColor は CSS 風の色指定を color.RGBA に変換する
// 対応形式: #rgb, #rrggbb, #rrggbbaa, 基本色名
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("invalid color: %q", s)
	}

	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("invalid color: %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// ColorOr は ParseColor に失敗したとき fallback を返す
func ColorOr(s string, fallback color.RGBA) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

// WithAlpha は不透明度を変えた色を返す（乗算済みアルファ）
func WithAlpha(c color.RGBA, alpha float64) color.RGBA {
	alpha = max(0, min(1, alpha))
	scale := func(v uint8) uint8 { return uint8(float64(v) * alpha) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: scale(c.A)}
}
