package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/necroturtle/pkg/animation"
)

// clearEnv は環境変数の影響を受けないようにする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "NECRO_SPEED"} {
		t.Setenv(key, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "デフォルト設定",
			args: []string{},
			expected: Config{
				Speed:    animation.DefaultSpeed,
				LogLevel: "info",
			},
		},
		{
			name: "スクリプトパス指定",
			args: []string{"circle.ritual"},
			expected: Config{
				ScriptPath: "circle.ritual",
				Speed:      animation.DefaultSpeed,
				LogLevel:   "info",
			},
		},
		{
			name: "標準入力",
			args: []string{"-", "--speed", "0"},
			expected: Config{
				ScriptPath: "-",
				Speed:      0,
				LogLevel:   "info",
			},
		},
		{
			name: "タイムアウト指定",
			args: []string{"--timeout", "10"},
			expected: Config{
				Timeout:  10 * time.Second,
				Speed:    animation.DefaultSpeed,
				LogLevel: "info",
			},
		},
		{
			name: "タイムアウト指定（短縮形）",
			args: []string{"-t", "5"},
			expected: Config{
				Timeout:  5 * time.Second,
				Speed:    animation.DefaultSpeed,
				LogLevel: "info",
			},
		},
		{
			name: "速度指定（短縮形）",
			args: []string{"-s", "100"},
			expected: Config{
				Speed:    100,
				LogLevel: "info",
			},
		},
		{
			name: "ログレベル指定（短縮形）",
			args: []string{"-l", "error"},
			expected: Config{
				Speed:    animation.DefaultSpeed,
				LogLevel: "error",
			},
		},
		{
			name: "同梱の儀式とクエスト",
			args: []string{"-e", "spirit-path", "--quest", "soul-collector"},
			expected: Config{
				Example:  "spirit-path",
				Quest:    "soul-collector",
				Speed:    animation.DefaultSpeed,
				LogLevel: "info",
			},
		},
		{
			name: "ヘッドレスでPNG出力",
			args: []string{"--headless", "--png", "out.png", "--world", "quests.yaml", "grave.ritual"},
			expected: Config{
				ScriptPath: "grave.ritual",
				WorldFile:  "quests.yaml",
				PNGPath:    "out.png",
				Speed:      animation.DefaultSpeed,
				LogLevel:   "info",
				Headless:   true,
			},
		},
		{
			name: "値を取らないフラグの後の位置引数",
			args: []string{"--trace", "grave.ritual", "--list"},
			expected: Config{
				ScriptPath: "grave.ritual",
				Speed:      animation.DefaultSpeed,
				LogLevel:   "info",
				List:       true,
				Trace:      true,
			},
		},
		{
			name: "対話モード",
			args: []string{"--repl", "--speed=20"},
			expected: Config{
				Speed:    20,
				LogLevel: "info",
				REPL:     true,
			},
		},
		{
			name: "ヘルプ表示（短縮形）",
			args: []string{"-h"},
			expected: Config{
				Speed:    animation.DefaultSpeed,
				LogLevel: "info",
				ShowHelp: true,
			},
		},
		{
			name: "位置引数が最初（順序に関係なく動作）",
			args: []string{"grave.ritual", "--timeout", "10", "--headless", "-log-level", "debug"},
			expected: Config{
				ScriptPath: "grave.ritual",
				Timeout:    10 * time.Second,
				Speed:      animation.DefaultSpeed,
				LogLevel:   "debug",
				Headless:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("ParseArgs(%q) = %+v, want %+v", tt.args, *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEADLESS", "true")
	t.Setenv("TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("NECRO_SPEED", "0")

	config, err := ParseArgs([]string{"grave.ritual"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !config.Headless || config.Timeout != 7*time.Second || config.LogLevel != "warn" || config.Speed != 0 {
		t.Errorf("environment not applied: %+v", *config)
	}

	// コマンドラインフラグが優先
	config, err = ParseArgs([]string{"--speed", "90", "-t", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Speed != 90 || config.Timeout != 2*time.Second {
		t.Errorf("flags should win over the environment: %+v", *config)
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  string
	}{
		{name: "負のタイムアウト", args: []string{"--timeout", "-10"}},
		{name: "無効なログレベル", args: []string{"--log-level", "invalid"}},
		{name: "無効なログレベル（短縮形）", args: []string{"-l", "trace"}},
		{name: "速度が範囲外", args: []string{"--speed", "101"}},
		{name: "数値でない速度", args: []string{"--speed", "fast"}},
		{name: "環境変数の速度が不正", env: "slow"},
		{name: "未定義のフラグ", args: []string{"--fly"}},
		{name: "位置引数が多すぎる", args: []string{"a.ritual", "b.ritual"}},
		{name: "スクリプトと同梱の儀式", args: []string{"a.ritual", "-e", "spirit-path"}},
		{name: "対話モードとスクリプト", args: []string{"--repl", "a.ritual"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.env != "" {
				t.Setenv("NECRO_SPEED", tt.env)
			}
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"x.ritual", "--trace", "-s", "10", "--png=out.png", "-"})
	want := []string{"--trace", "-s", "10", "--png=out.png", "x.ritual", "-"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("reorderArgs() = %q, want %q", got, want)
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, flag := range []string{"--speed", "--quest", "--world", "--png", "--example", "--repl", "NECRO_SPEED"} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("help should mention %s", flag)
		}
	}
}
