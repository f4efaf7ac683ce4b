package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/necroturtle/pkg/animation"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ScriptPath string        // 実行するスクリプトのパス（"-" は標準入力）
	Example    string        // 同梱の儀式の名前
	Quest      string        // 開始するクエストID
	WorldFile  string        // 追加のクエスト定義（YAML）
	PNGPath    string        // 終了時の画面を書き出すPNGファイル
	Speed      int           // アニメーション速度（0-100、0は即時）
	Timeout    time.Duration // タイムアウト時間（0は無制限）
	LogLevel   string        // ログレベル（debug, info, warn, error）
	Headless   bool          // ヘッドレスモード
	List       bool          // 同梱の儀式とクエストを一覧表示
	REPL       bool          // 対話モード
	Trace      bool          // 実行行を標準出力に表示
	ShowHelp   bool          // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"headless": true,
	"list":     true,
	"repl":     true,
	"trace":    true,
	"help":     true,
	"h":        true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("necroturtle", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	speed := -1
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.IntVar(&speed, "speed", -1, "アニメーション速度（0-100）")
	fs.IntVar(&speed, "s", -1, "アニメーション速度（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.Quest, "quest", "", "クエストID")
	fs.StringVar(&config.Quest, "q", "", "クエストID（短縮形）")
	fs.StringVar(&config.WorldFile, "world", "", "クエスト定義ファイル（YAML）")
	fs.StringVar(&config.PNGPath, "png", "", "PNG出力先")
	fs.StringVar(&config.Example, "example", "", "同梱の儀式")
	fs.StringVar(&config.Example, "e", "", "同梱の儀式（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.List, "list", false, "儀式とクエストの一覧")
	fs.BoolVar(&config.REPL, "repl", false, "対話モード")
	fs.BoolVar(&config.Trace, "trace", false, "実行行を表示")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// 環境変数から速度を取得（コマンドラインフラグが優先）
	if speed < 0 {
		speed = animation.DefaultSpeed
		if speedEnv := os.Getenv("NECRO_SPEED"); speedEnv != "" {
			s, err := strconv.Atoi(speedEnv)
			if err != nil {
				return nil, fmt.Errorf("invalid NECRO_SPEED: %s", speedEnv)
			}
			speed = s
		}
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// 速度の検証
	if speed < animation.MinSpeed || speed > animation.MaxSpeed {
		return nil, fmt.Errorf("speed must be between %d and %d, got %d", animation.MinSpeed, animation.MaxSpeed, speed)
	}
	config.Speed = speed

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// 位置引数（スクリプトのパス）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}
	if fs.NArg() == 1 {
		config.ScriptPath = fs.Arg(0)
	}

	if config.ScriptPath != "" && config.Example != "" {
		return nil, fmt.Errorf("a script path and --example cannot be used together")
	}
	if config.REPL && (config.ScriptPath != "" || config.Example != "") {
		return nil, fmt.Errorf("--repl cannot be combined with a script")
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
// 単独の "-" は標準入力を表す位置引数として扱う
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}

			// 次の引数が値である可能性をチェック
			// （-t 5 のような場合）
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `necroturtle - necromantic turtle graphics

Usage:
  necroturtle [options] [script]

Arguments:
  script        実行するスクリプトのパス（"-" で標準入力）
                省略した場合は --example か --repl を使う

Options:
  -e, --example <name>        同梱の儀式を実行（--list で一覧）
  -q, --quest <id>            クエストを開始してから実行
  --world <file.yaml>         クエスト定義を追加で読み込む
  -s, --speed <0-100>         アニメーション速度（0 は即時、デフォルト: 50）
  --png <file>                終了時の画面をPNGで保存
  --trace                     実行中の行を表示
  --repl                      対話モード（空行で実行）
  --list                      同梱の儀式とクエストを表示
  -t, --timeout <seconds>     指定秒数後に中断（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし）
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  NECRO_SPEED=<0-100>         アニメーション速度

Examples:
  necroturtle circle.ritual                   スクリプトを実行
  necroturtle --example summoning-circle      同梱の儀式を実行
  necroturtle --headless --png out.png -e spirit-path
  necroturtle --quest soul-collector quest.ritual
  necroturtle --repl --speed 0
`)
}
