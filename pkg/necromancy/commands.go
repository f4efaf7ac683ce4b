package necromancy

import (
	"fmt"
	"math"

	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/game"
	"github.com/zurustar/necroturtle/pkg/value"
)

// MaxRitualCount は ritual の繰り返し回数の上限
const MaxRitualCount = 10000

func (a *API) buildRegistry() command.Registry {
	return command.Registry{
		// 移動
		"summon":            a.move("summon", 1, true),
		"banish":            a.move("banish", -1, true),
		"spin":              a.rotate("spin", -1, true),
		"twist":             a.rotate("twist", 1, true),
		"turnLeft":          a.rotate("turnLeft", -1, true),
		"turnRight":         a.rotate("turnRight", 1, true),
		"rotateWiddershins": a.rotate("rotateWiddershins", -1, false),
		"rotateDeosil":      a.rotate("rotateDeosil", 1, false),
		"turnToShadows":     a.rotate("turnToShadows", -1, false),
		"turnToLight":       a.rotate("turnToLight", 1, false),
		"haunt":             a.haunt,
		// 描画
		"raiseSpirit":  a.raiseSpirit,
		"bindSpirit":   a.bindSpirit,
		"conjureColor": a.conjureColor,
		"setLineWidth": a.setLineWidth,
		// ユーティリティ
		"ritual":     a.ritual,
		"clearGrave": a.clearGrave,
		"resurrect":  a.resurrect,
		// ゲーム
		"castSpell":        a.castSpell,
		"collectSoul":      a.collectSoul,
		"banishDemon":      a.banishDemon,
		"checkQuest":       a.checkQuest,
		"getPosition":      a.getPosition,
		"getSoulPositions": a.getSoulPositions,
	}
}

// move は前進（sign=1）または後退（sign=-1）のコマンドを作る
func (a *API) move(name string, sign float64, notify bool) command.Func {
	return func(args ...any) (any, error) {
		d, err := number(name, args, 0, "distance")
		if err != nil {
			return nil, err
		}
		if notify {
			a.notify(name)
		}
		a.turtle.Forward(sign * d)
		a.game.IncrementCommands()
		return nil, nil
	}
}

// rotate は左回り（sign=-1）または右回り（sign=1）のコマンドを作る
// 別名の rotateWiddershins などはコールバックを呼ばない
func (a *API) rotate(name string, sign float64, notify bool) command.Func {
	return func(args ...any) (any, error) {
		angle, err := number(name, args, 0, "angle")
		if err != nil {
			return nil, err
		}
		if notify {
			a.notify(name)
		}
		if sign < 0 {
			a.turtle.TurnLeft(angle)
		} else {
			a.turtle.TurnRight(angle)
		}
		a.game.IncrementCommands()
		return nil, nil
	}
}

func (a *API) haunt(args ...any) (any, error) {
	x, err := number("haunt", args, 0, "x")
	if err != nil {
		return nil, err
	}
	y, err := number("haunt", args, 1, "y")
	if err != nil {
		return nil, err
	}
	a.notify("haunt")
	a.turtle.Teleport(x, y)
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) raiseSpirit(args ...any) (any, error) {
	a.notify("raiseSpirit")
	a.turtle.PenUp()
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) bindSpirit(args ...any) (any, error) {
	a.notify("bindSpirit")
	a.turtle.PenDown()
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) conjureColor(args ...any) (any, error) {
	if len(args) == 0 || args[0] == nil {
		return nil, fmt.Errorf("conjureColor: missing color")
	}
	a.notify("conjureColor")
	a.turtle.SetColor(value.ToString(args[0]))
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) setLineWidth(args ...any) (any, error) {
	w, err := number("setLineWidth", args, 0, "width")
	if err != nil {
		return nil, err
	}
	if w < 0 {
		return nil, fmt.Errorf("setLineWidth: width must not be negative, got %s", value.FormatNumber(w))
	}
	a.notify("setLineWidth")
	a.turtle.SetLineWidth(w)
	a.game.IncrementCommands()
	return nil, nil
}

// ritual は callback を count 回呼び出す
func (a *API) ritual(args ...any) (any, error) {
	n, err := number("ritual", args, 0, "count")
	if err != nil {
		return nil, err
	}
	if len(args) < 2 || !value.IsCallable(args[1]) {
		return nil, fmt.Errorf("ritual: second argument must be a function")
	}
	if n > MaxRitualCount {
		return nil, fmt.Errorf("ritual: count %s exceeds %d", value.FormatNumber(n), MaxRitualCount)
	}
	count := int(math.Ceil(n))

	a.notify("ritual")
	for i := 0; i < count; i++ {
		if _, err := value.Call(args[1]); err != nil {
			return nil, err
		}
	}
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) clearGrave(args ...any) (any, error) {
	a.notify("clearGrave")
	a.turtle.Clear()
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) resurrect(args ...any) (any, error) {
	a.notify("resurrect")
	a.turtle.Reset()
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) castSpell(args ...any) (any, error) {
	a.notify("castSpell")
	name := "undefined"
	if len(args) > 0 {
		name = value.ToString(args[0])
	}
	a.log.Info("Casting spell", "spell", name)
	a.game.IncrementCommands()
	return nil, nil
}

func (a *API) collectSoul(args ...any) (any, error) {
	a.notify("collectSoul")
	pos := toGame(a.turtle.Position())
	collected := a.game.CollectSoulAt(pos)
	if collected {
		a.log.Info("Soul collected! +10 points", "x", pos.X, "y", pos.Y)
	} else {
		a.log.Info("No soul at this location", "x", pos.X, "y", pos.Y)
	}
	a.game.IncrementCommands()
	return collected, nil
}

func (a *API) banishDemon(args ...any) (any, error) {
	a.notify("banishDemon")
	pos := toGame(a.turtle.Position())
	banished := a.game.BanishDemonAt(pos)
	if banished {
		a.log.Info("Demon banished! +20 points", "x", pos.X, "y", pos.Y)
	} else {
		a.log.Info("No demon at this location", "x", pos.X, "y", pos.Y)
	}
	a.game.IncrementCommands()
	return banished, nil
}

func (a *API) checkQuest(args ...any) (any, error) {
	a.notify("checkQuest")
	status := a.game.QuestStatus()
	a.log.Info("Quest status", "status", status)
	a.game.IncrementCommands()
	return status, nil
}

// getPosition は論理位置を {x, y} で返す。手数には数えない
func (a *API) getPosition(args ...any) (any, error) {
	a.notify("getPosition")
	p := a.turtle.Position()
	obj := value.NewObject()
	obj.Set("x", p.X)
	obj.Set("y", p.Y)
	return obj, nil
}

// getSoulPositions は未回収の魂の位置を整数に丸めて返す。手数には数えない
func (a *API) getSoulPositions(args ...any) (any, error) {
	a.notify("getSoulPositions")
	souls := a.game.ActiveEntities(game.EntitySoul)
	out := make([]any, len(souls))
	for i, s := range souls {
		obj := value.NewObject()
		obj.Set("x", math.Round(s.Position.X))
		obj.Set("y", math.Round(s.Position.Y))
		out[i] = obj
	}
	a.log.Debug("Soul positions", "count", len(out))
	return value.NewArray(out...), nil
}
