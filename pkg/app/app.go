package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/zurustar/necroturtle/pkg/animation"
	"github.com/zurustar/necroturtle/pkg/cli"
	"github.com/zurustar/necroturtle/pkg/engine"
	"github.com/zurustar/necroturtle/pkg/game"
	"github.com/zurustar/necroturtle/pkg/graphics"
	"github.com/zurustar/necroturtle/pkg/logger"
	"github.com/zurustar/necroturtle/pkg/necromancy"
	"github.com/zurustar/necroturtle/pkg/repl"
	"github.com/zurustar/necroturtle/pkg/ritual"
	"github.com/zurustar/necroturtle/pkg/script"
	"github.com/zurustar/necroturtle/pkg/turtle"
	"github.com/zurustar/necroturtle/pkg/window"
)

// ErrRitualFailed は儀式が失敗したことを表す（メッセージは表示済み）
var ErrRitualFailed = errors.New("ritual failed")

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdin  io.Reader
	stdout io.Writer

	rituals *ritual.Catalog
	quests  []game.Quest

	turtle *turtle.Turtle
	game   *game.Manager
	api    *necromancy.API
}

// New Applicationを作成
func New(stdin io.Reader, stdout io.Writer) *Application {
	return &Application{
		stdin:  stdin,
		stdout: stdout,
	}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Debug("Application started", "speed", app.config.Speed, "headless", app.config.Headless)

	// 3. 同梱の儀式とクエストの読み込み
	if err := app.loadCatalogs(); err != nil {
		return fmt.Errorf("failed to load catalogs: %w", err)
	}

	if app.config.List {
		app.printList()
		return nil
	}

	// 4. 亀とゲーム状態の準備
	if err := app.buildWorld(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if app.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()
	}

	if app.config.REPL {
		return app.runREPL(ctx)
	}

	// 5. スクリプトの読み込み
	src, err := app.loadSource()
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	app.log.Info("Script loaded", "name", src.Name, "size", src.Size)

	// 6. 実行
	var res engine.Result
	if app.config.Headless {
		res = app.runHeadless(ctx, src.Content)
	} else {
		res, err = app.runViewer(ctx, src)
		if err != nil {
			return err
		}
	}

	if app.config.PNGPath != "" {
		if err := graphics.SavePNG(app.config.PNGPath, graphics.Capture(app.turtle, app.game)); err != nil {
			return err
		}
		app.log.Info("Canvas saved", "path", app.config.PNGPath)
	}

	if !res.Success {
		return ErrRitualFailed
	}
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// loadCatalogs 同梱の儀式とクエスト、--world のクエストを読み込む
func (app *Application) loadCatalogs() error {
	rituals, err := ritual.Builtin()
	if err != nil {
		return err
	}
	app.rituals = rituals

	quests, err := game.BuiltinQuests()
	if err != nil {
		return err
	}

	if app.config.WorldFile != "" {
		f, err := os.Open(app.config.WorldFile)
		if err != nil {
			return fmt.Errorf("failed to open world file: %w", err)
		}
		defer f.Close()
		extra, err := game.LoadQuests(f)
		if err != nil {
			return fmt.Errorf("%s: %w", app.config.WorldFile, err)
		}
		// 同じIDは --world の定義で上書きする
		for _, q := range extra {
			replaced := false
			for i := range quests {
				if quests[i].ID == q.ID {
					quests[i] = q
					replaced = true
				}
			}
			if !replaced {
				quests = append(quests, q)
			}
		}
		app.log.Info("World file loaded", "path", app.config.WorldFile, "quests", len(extra))
	}
	app.quests = quests
	return nil
}

// printList 儀式とクエストの一覧を表示
func (app *Application) printList() {
	fmt.Fprintln(app.stdout, "Rituals:")
	for _, r := range app.rituals.All() {
		fmt.Fprintf(app.stdout, "  %-20s %s - %s\n", r.ID, r.Name, r.Description)
	}
	fmt.Fprintln(app.stdout, "Quests:")
	for _, q := range app.quests {
		fmt.Fprintf(app.stdout, "  %-20s %s - %s\n", q.ID, q.Name, q.Description)
		for _, hint := range q.Hints {
			fmt.Fprintf(app.stdout, "  %-20s hint: %s\n", "", hint)
		}
	}
}

// buildWorld 亀・ゲーム状態・呪文を組み立て、--quest を適用する
func (app *Application) buildWorld() error {
	pipeline := animation.NewPipeline(
		animation.WithSpeed(app.config.Speed),
		animation.WithLogger(app.log),
	)
	app.turtle = turtle.New(turtle.WithPipeline(pipeline), turtle.WithLogger(app.log))
	app.game = game.NewManager(app.log)
	app.api = necromancy.New(app.turtle, app.game, necromancy.WithLogger(app.log))

	if app.config.Quest != "" {
		q, ok := game.FindQuest(app.quests, app.config.Quest)
		if !ok {
			return fmt.Errorf("unknown quest: %s (try --list)", app.config.Quest)
		}
		app.api.LoadQuest(q)
		app.log.Info("Quest started", "id", q.ID, "name", q.Name)
	}
	return nil
}

// loadSource スクリプトファイル、標準入力、同梱の儀式のいずれかを読み込む
func (app *Application) loadSource() (*script.Script, error) {
	switch {
	case app.config.Example != "":
		r, ok := app.rituals.Find(app.config.Example)
		if !ok {
			return nil, fmt.Errorf("unknown example: %s (try --list)", app.config.Example)
		}
		return &script.Script{Name: r.ID, Content: r.Code, Size: int64(len(r.Code))}, nil
	case app.config.ScriptPath == "-":
		data, err := io.ReadAll(app.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		content, err := script.Decode(data)
		if err != nil {
			return nil, err
		}
		return &script.Script{Name: "stdin", Content: content, Size: int64(len(data))}, nil
	case app.config.ScriptPath != "":
		return script.LoadFile(app.config.ScriptPath)
	default:
		return nil, errors.New("no script given (use a file, --example or --repl; see --help)")
	}
}

// newInterpreter 行コールバックつきの Interpreter を作る
func (app *Application) newInterpreter(onLine engine.LineCallback) *engine.Interpreter {
	return engine.New(app.api, app.api,
		engine.WithLogger(app.log),
		engine.WithLineCallback(onLine),
	)
}

// tracer は --trace 用に実行中の行を表示するコールバックを返す
func (app *Application) tracer(content string) engine.LineCallback {
	if !app.config.Trace {
		return nil
	}
	lines := strings.Split(content, "\n")
	return func(line int) {
		text := ""
		if line >= 0 && line < len(lines) {
			text = strings.TrimSpace(lines[line])
		}
		fmt.Fprintf(app.stdout, "%4d | %s\n", line+1, text)
	}
}

// runHeadless ウィンドウなしで実行し、結果と状態を表示する
func (app *Application) runHeadless(ctx context.Context, content string) engine.Result {
	interp := app.newInterpreter(app.tracer(content))
	res := interp.Execute(ctx, content)
	app.report(res)
	return res
}

// report 結果とHUDを表示する
func (app *Application) report(res engine.Result) {
	fmt.Fprintln(app.stdout, res.Message)
	for _, line := range graphics.HUDLines(app.game.State()) {
		fmt.Fprintln(app.stdout, line)
	}
	st := app.game.State()
	if st.Quest == nil {
		return
	}
	if app.game.QuestComplete() {
		if st.Quest.SuccessMessage != "" {
			fmt.Fprintln(app.stdout, st.Quest.SuccessMessage)
		}
		return
	}
	// 未達成ならヒントを出す
	for _, hint := range st.Quest.Hints {
		fmt.Fprintf(app.stdout, "Hint: %s\n", hint)
	}
}

// runViewer ウィンドウを開いて実行する
// ebiten はメインゴルーチンで動かす必要があるので、儀式は別ゴルーチンで実行する
func (app *Application) runViewer(ctx context.Context, src *script.Script) (engine.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	viewer := window.New(
		func() graphics.Scene { return graphics.Capture(app.turtle, app.game) },
		window.WithTimeout(app.config.Timeout),
		window.WithLogger(app.log),
		window.WithOnClose(cancel),
		window.WithSpeedControl(func(delta int) {
			app.api.SetAnimationSpeed(app.turtle.Pipeline().Speed() + delta)
		}),
	)
	viewer.SetSource(src.Content)
	app.api.SetCommandCallback(viewer.SetCommand)
	defer app.api.SetCommandCallback(nil)

	trace := app.tracer(src.Content)
	interp := app.newInterpreter(func(line int) {
		viewer.SetLine(line)
		if trace != nil {
			trace(line)
		}
	})

	var (
		res engine.Result
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res = interp.Execute(ctx, src.Content)
		viewer.SetStatus(res.Message, res.Success)
		app.report(res)
	}()

	err := window.Run(viewer, "necroturtle - "+src.Name)
	cancel()
	wg.Wait()
	return res, err
}

// runREPL 対話モード
func (app *Application) runREPL(ctx context.Context) error {
	interp := app.newInterpreter(nil)
	opts := []repl.Option{
		repl.WithReset(app.api.Reset),
		repl.WithSpeed(app.api.SetAnimationSpeed),
		repl.WithState(app.stateSummary),
		repl.WithLogger(app.log),
	}
	if f, ok := app.stdin.(*os.File); ok && f == os.Stdin {
		return repl.New(interp.Execute, opts...).RunTerminal(ctx)
	}
	opts = append(opts, repl.WithIO(app.stdin, app.stdout))
	return repl.New(interp.Execute, opts...).Run(ctx)
}

// stateSummary 亀とゲームの状態を1つの文字列にまとめる
func (app *Application) stateSummary() string {
	st := app.turtle.State()
	pen := "up"
	if st.PenDown {
		pen = "down"
	}
	lines := []string{
		fmt.Sprintf("Turtle: (%.1f, %.1f) facing %.1f, pen %s, color %s, width %.1f",
			st.Position.X, st.Position.Y, st.Angle, pen, st.Color, st.LineWidth),
		fmt.Sprintf("Speed: %d", app.turtle.Pipeline().Speed()),
	}
	lines = append(lines, graphics.HUDLines(app.game.State())...)
	return strings.Join(lines, "\n")
}
