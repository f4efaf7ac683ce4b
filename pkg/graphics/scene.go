// Package graphics はワールド（軌跡・亀・エンティティ・HUD）を画像に描画する
//
// ビューアとヘッドレス出力の両方が同じ Scene を使う。
package graphics

import (
	"fmt"
	"image/color"

	"github.com/zurustar/necroturtle/pkg/game"
	"github.com/zurustar/necroturtle/pkg/turtle"
)

// Scene は1フレーム分の描画内容
type Scene struct {
	turtle.Snapshot
	Entities []game.Entity
	HUD      []string
}

// Capture は亀の表示状態とゲーム状態から Scene を作る
func Capture(t *turtle.Turtle, g *game.Manager) Scene {
	s := Scene{Snapshot: t.Snapshot()}
	if g != nil {
		st := g.State()
		s.Entities = st.Entities
		s.HUD = HUDLines(st)
	}
	return s
}

// HUDLines はゲーム状態の表示用の行を返す
func HUDLines(s game.State) []string {
	lines := []string{
		fmt.Sprintf("Score: %d", s.Score),
		fmt.Sprintf("Souls: %d  Demons: %d", s.SoulsCollected, s.DemonsBanished),
		fmt.Sprintf("Commands: %d", s.CommandsUsed),
	}
	if s.Quest != nil {
		lines = append(lines, "Quest: "+s.Quest.Name)
		for _, o := range s.Quest.Objectives {
			mark := "[ ]"
			if o.Completed {
				mark = "[x]"
			}
			lines = append(lines, fmt.Sprintf("%s %s (%d/%d)", mark, o.Description, o.Current, o.Count))
		}
	} else {
		lines = append(lines, "Mode: "+string(s.Mode))
	}
	return lines
}

// EntityStyle はエンティティ種別ごとの塗り色とラベル
type EntityStyle struct {
	Glow  color.RGBA
	Label string
}

// StyleOf はエンティティの描画スタイルを返す
func StyleOf(t game.EntityType) EntityStyle {
	switch t {
	case game.EntitySoul:
		return EntityStyle{Glow: color.RGBA{0x00, 0xFF, 0x88, 0xFF}, Label: "S"}
	case game.EntityDemon:
		return EntityStyle{Glow: color.RGBA{0xFF, 0x44, 0x44, 0xFF}, Label: "D"}
	case game.EntityBuilding:
		return EntityStyle{Glow: color.RGBA{0xBB, 0x88, 0xFF, 0xFF}, Label: "G"}
	default:
		return EntityStyle{Glow: color.RGBA{0x64, 0x64, 0x64, 0xFF}, Label: ""}
	}
}

// TurtleShape は亀の三角形の頂点を返す（先端が進行方向）
func TurtleShape(p turtle.Point, angle float64) [3]turtle.Point {
	return [3]turtle.Point{
		rotate(p, 15, 0, angle),
		rotate(p, -8, -8, angle),
		rotate(p, -8, 8, angle),
	}
}
