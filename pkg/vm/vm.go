// Package vm is the fallback evaluator for rituals that use callbacks,
// arrow functions or function declarations.
//
// Scripts are parsed into an AST and walked directly. The only names in
// scope are the registry verbs, each wrapped so that a call first reports
// the source line it came from, plus whatever the script declares itself.
// There is no ambient global object.
package vm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/compiler"
	"github.com/zurustar/necroturtle/pkg/compiler/ast"
	"github.com/zurustar/necroturtle/pkg/compiler/lexer"
	"github.com/zurustar/necroturtle/pkg/compiler/parser"
	"github.com/zurustar/necroturtle/pkg/logger"
)

// MaxStackDepth is the default maximum call depth before stack overflow.
const MaxStackDepth = 1000

// DefaultMaxSteps is the default evaluation budget of one run.
const DefaultMaxSteps = 1_000_000

// LineNotifier receives the 0-based source line of each traced verb call.
type LineNotifier func(line int)

// VM evaluates extended-grammar scripts against a command registry.
type VM struct {
	registry command.Registry
	onLine   LineNotifier
	maxSteps int
	maxDepth int
	log      *slog.Logger
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithLineNotifier sets the callback that receives traced source lines.
func WithLineNotifier(fn LineNotifier) Option {
	return func(vm *VM) {
		vm.onLine = fn
	}
}

// WithMaxSteps sets the evaluation budget. Zero or less disables it.
func WithMaxSteps(n int) Option {
	return func(vm *VM) {
		vm.maxSteps = n
	}
}

// WithMaxCallDepth sets the maximum function call depth.
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// New creates a VM over registry. The registry is never modified.
func New(registry command.Registry, opts ...Option) *VM {
	vm := &VM{
		registry: registry,
		maxSteps: DefaultMaxSteps,
		maxDepth: MaxStackDepth,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Parse parses source, reporting the first syntax error as a
// *compiler.CompileError with source context.
func Parse(source string) (*ast.Program, error) {
	p := parser.New(lexer.New(source))
	program, errs := p.ParseProgram()
	if len(errs) > 0 {
		var pe *parser.ParserError
		if errors.As(errs[0], &pe) {
			return nil, compiler.NewParserErrorWithContext(pe.Message, pe.Line, pe.Column, source)
		}
		return nil, errs[0]
	}
	return program, nil
}

// Run evaluates source until it finishes, fails or ctx is cancelled.
// Capabilities run synchronously; any animation work they queue is left for
// the caller to drain.
func (vm *VM) Run(ctx context.Context, source string) error {
	program, err := Parse(source)
	if err != nil {
		return err
	}

	r := vm.newRun(ctx, source)
	vm.log.Debug("Fallback evaluation started", "lines", len(r.lines), "verbs", len(vm.registry))

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	_, _, err = r.execBlock(program.Statements, r.global)
	if err != nil {
		vm.log.Debug("Fallback evaluation failed", "error", err, "steps", r.steps)
		return err
	}

	vm.log.Debug("Fallback evaluation finished", "steps", r.steps)
	return nil
}

// run is the state of one evaluation.
type run struct {
	vm       *VM
	ctx      context.Context
	lines    []string
	consumed []bool
	global   *Scope
	steps    int
	depth    int
}

func (vm *VM) newRun(ctx context.Context, source string) *run {
	r := &run{
		vm:     vm,
		ctx:    ctx,
		lines:  strings.Split(source, "\n"),
		global: NewScope(nil),
	}
	r.consumed = make([]bool, len(r.lines))

	for _, name := range vm.registry.Names() {
		fn, ok := vm.registry.Lookup(name)
		if !ok {
			continue
		}
		_ = r.global.Declare(name, r.wrap(name, fn), "const")
	}
	return r
}

// wrap returns the in-script binding of a verb: it reports the call's
// source line, then delegates to the capability with the arguments and
// return value unchanged.
func (r *run) wrap(name string, fn command.Func) command.Func {
	needle := name + "("
	return func(args ...any) (any, error) {
		if err := r.ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		if line := r.claimLine(needle); line >= 0 && r.vm.onLine != nil {
			r.vm.onLine(line)
		}
		return command.Call(name, fn, args...)
	}
}

// claimLine finds the first line not yet reported in this run that
// contains needle. Calls inside loops and callbacks share one textual call
// site, so once every matching line is claimed a call reports the first
// matching line again. It returns -1 only when no line contains needle.
func (r *run) claimLine(needle string) int {
	first := -1
	for i, line := range r.lines {
		if !strings.Contains(line, needle) {
			continue
		}
		if !r.consumed[i] {
			r.consumed[i] = true
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// tick charges one evaluation step and polls for cancellation.
func (r *run) tick() error {
	r.steps++
	if r.vm.maxSteps > 0 && r.steps > r.vm.maxSteps {
		return NewStepLimitError(r.vm.maxSteps)
	}
	if r.steps&0x3ff == 0 {
		if err := r.ctx.Err(); err != nil {
			return cancelled(err)
		}
	}
	return nil
}

func cancelled(err error) *RuntimeError {
	return &RuntimeError{Type: ErrorCancelled, Message: "ritual cancelled", Line: -1, Err: err}
}
