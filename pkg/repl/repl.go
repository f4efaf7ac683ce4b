// Package repl は対話的に儀式を入力して実行する
//
// 行を入力し、空行で実行する。":" で始まる行はメタコマンド。
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/zurustar/necroturtle/pkg/engine"
	"github.com/zurustar/necroturtle/pkg/logger"
)

const (
	// Prompt は最初の行のプロンプト
	Prompt = "necro> "
	// ContinuationPrompt は2行目以降のプロンプト
	ContinuationPrompt = "  ...> "
)

// Executor は儀式を実行する
type Executor func(ctx context.Context, text string) engine.Result

// lineReader は1行ずつ読む入力
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// REPL は対話ループ
type REPL struct {
	exec     Executor
	reset    func()
	setSpeed func(int)
	state    func() string
	log      *slog.Logger

	in  lineReader
	out io.Writer
}

// Option は REPL の設定
type Option func(*REPL)

// WithIO は入出力を設定する（既定は標準入出力）
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.in = &plainReader{scanner: bufio.NewScanner(in), out: out}
		r.out = out
	}
}

// WithReset は :reset で呼ばれる関数を設定する
func WithReset(fn func()) Option {
	return func(r *REPL) {
		r.reset = fn
	}
}

// WithSpeed は :speed N で呼ばれる関数を設定する
func WithSpeed(fn func(int)) Option {
	return func(r *REPL) {
		r.setSpeed = fn
	}
}

// WithState は :state で表示する文字列を返す関数を設定する
func WithState(fn func() string) Option {
	return func(r *REPL) {
		r.state = fn
	}
}

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(r *REPL) {
		r.log = log
	}
}

// New REPLを作成
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		exec: exec,
		log:  logger.GetLogger(),
	}
	WithIO(os.Stdin, os.Stdout)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunTerminal は標準入力が端末なら x/term の行編集つきで Run を実行する
// 端末でなければ通常の Run と同じ
func (r *REPL) RunTerminal(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return r.Run(ctx)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, Prompt)
	if w, h, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(w, h)
	}
	r.in = t
	r.out = t
	return r.Run(ctx)
}

// Run は入力が終わるか :quit まで繰り返す
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "Necroturtle REPL. Enter a ritual, then a blank line to cast it. :help for commands.")

	var buf []string
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if len(buf) == 0 {
			r.in.SetPrompt(Prompt)
		} else {
			r.in.SetPrompt(ContinuationPrompt)
		}

		line, err := r.in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// 入力の終わりに溜まっている分は実行する
				if len(buf) > 0 {
					r.cast(ctx, buf)
				}
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		trimmed := strings.TrimSpace(line)
		if len(buf) == 0 && strings.HasPrefix(trimmed, ":") {
			if quit := r.command(trimmed); quit {
				return nil
			}
			continue
		}

		if trimmed == "" {
			if len(buf) > 0 {
				r.cast(ctx, buf)
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, line)
	}
}

func (r *REPL) cast(ctx context.Context, lines []string) {
	text := strings.Join(lines, "\n")
	r.log.Debug("Casting from REPL", "lines", len(lines))
	res := r.exec(ctx, text)
	fmt.Fprintln(r.out, res.Message)
}

// command はメタコマンドを処理する。終了するなら true を返す
func (r *REPL) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, "  :reset      clear the canvas and the score")
		fmt.Fprintln(r.out, "  :speed N    set the animation speed (0-100, 0 = instant)")
		fmt.Fprintln(r.out, "  :state      show the turtle and quest state")
		fmt.Fprintln(r.out, "  :quit       leave the REPL")
	case ":reset":
		if r.reset != nil {
			r.reset()
		}
		fmt.Fprintln(r.out, "The grave is cleared.")
	case ":speed":
		if len(fields) != 2 {
			fmt.Fprintln(r.out, "usage: :speed N")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(r.out, "invalid speed: %s\n", fields[1])
			return false
		}
		if r.setSpeed != nil {
			r.setSpeed(n)
		}
		fmt.Fprintf(r.out, "Speed set to %d\n", n)
	case ":state":
		if r.state != nil {
			fmt.Fprintln(r.out, r.state())
		}
	default:
		fmt.Fprintf(r.out, "unknown command: %s (try :help)\n", fields[0])
	}
	return false
}

// plainReader は端末でない入力用
type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

func (p *plainReader) SetPrompt(prompt string) {
	p.prompt = prompt
}

func (p *plainReader) ReadLine() (string, error) {
	fmt.Fprint(p.out, p.prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}
