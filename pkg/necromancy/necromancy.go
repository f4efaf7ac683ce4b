// Package necromancy は亀とゲーム状態を操作するコマンド群（呪文）を提供する
//
// 各コマンドは論理状態を即座に更新し、見た目の変化を亀のアニメーションキューに積む。
// 呼び出し側はすべてのコマンドを実行した後に AwaitDrain を呼ぶ。
package necromancy

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/game"
	"github.com/zurustar/necroturtle/pkg/logger"
	"github.com/zurustar/necroturtle/pkg/turtle"
	"github.com/zurustar/necroturtle/pkg/value"
)

// CommandCallback はコマンド実行時に呼ばれる（エフェクト表示用）
type CommandCallback func(name string)

// API はネクロマンシーのコマンド群
type API struct {
	turtle   *turtle.Turtle
	game     *game.Manager
	onCmd    CommandCallback
	log      *slog.Logger
	registry command.Registry
}

// Option は API の設定
type Option func(*API)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		a.log = log
	}
}

// New は亀とゲーム状態を操作する API を作成する
func New(t *turtle.Turtle, g *game.Manager, opts ...Option) *API {
	a := &API{
		turtle: t,
		game:   g,
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.registry = a.buildRegistry()
	return a
}

// Turtle は操作対象の亀を返す
func (a *API) Turtle() *turtle.Turtle {
	return a.turtle
}

// Game はゲーム状態を返す
func (a *API) Game() *game.Manager {
	return a.game
}

// SetAnimationSpeed はアニメーション速度を 0..100 で設定する
func (a *API) SetAnimationSpeed(speed int) {
	a.turtle.SetAnimationSpeed(speed)
}

// SetCommandCallback はコマンド実行時のコールバックを設定する
func (a *API) SetCommandCallback(cb CommandCallback) {
	a.onCmd = cb
}

// AwaitDrain はアニメーションをすべて再生した後、亀が建物に到達したか判定する
func (a *API) AwaitDrain(ctx context.Context) error {
	if err := a.turtle.AwaitDrain(ctx); err != nil {
		return err
	}
	a.game.CheckReachedBuilding(toGame(a.turtle.Position()))
	return nil
}

// LoadQuest はクエストを開始し、亀をクエストの開始位置に置く
func (a *API) LoadQuest(q game.Quest) {
	a.game.LoadQuest(q)
	a.turtle.SetStart(turtle.Point{X: q.Start.X, Y: q.Start.Y}, q.StartAngle)
}

// Reset は亀とゲーム状態を初期状態に戻す
func (a *API) Reset() {
	a.turtle.Restart()
	a.game.Reset()
}

// Commands はコマンドレジストリを返す
func (a *API) Commands() command.Registry {
	return a.registry
}

func (a *API) notify(name string) {
	if a.onCmd != nil {
		a.onCmd(name)
	}
}

func toGame(p turtle.Point) game.Point {
	return game.Point{X: p.X, Y: p.Y}
}

// number は args[i] を数値として取り出す
func number(verb string, args []any, i int, name string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s: missing %s", verb, name)
	}
	f, ok := value.ToNumber(args[i])
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %s must be a number, got %s", verb, name, value.ToString(args[i]))
	}
	return f, nil
}
