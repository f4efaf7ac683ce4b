// Package engine coordinates one ritual run: validation, classification,
// compilation or fallback evaluation, traced dispatch, and the final wait
// for the animation to finish.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/compiler"
	"github.com/zurustar/necroturtle/pkg/logger"
	"github.com/zurustar/necroturtle/pkg/validator"
	"github.com/zurustar/necroturtle/pkg/vm"
)

// Drainer plays every queued animation step and returns when none is left.
type Drainer interface {
	AwaitDrain(ctx context.Context) error
}

// LineCallback receives the 0-based source line of each traced call,
// always before the call itself.
type LineCallback func(line int)

// Interpreter runs rituals against a command registry.
type Interpreter struct {
	provider command.Provider
	drainer  Drainer
	onLine   LineCallback
	maxSteps int
	log      *slog.Logger

	busy atomic.Bool

	mu           sync.RWMutex
	state        State
	cursor       Cursor
	instructions []compiler.Instruction
	lastErr      error
}

// Option is a functional option for configuring the Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(i *Interpreter) {
		i.log = log
	}
}

// WithLineCallback sets the line trace callback.
func WithLineCallback(fn LineCallback) Option {
	return func(i *Interpreter) {
		i.onLine = fn
	}
}

// WithMaxSteps sets the evaluation budget of the fallback evaluator.
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) {
		i.maxSteps = n
	}
}

// New creates an Interpreter. drainer may be nil when capabilities queue no
// animation.
func New(provider command.Provider, drainer Drainer, opts ...Option) *Interpreter {
	i := &Interpreter{
		provider: provider,
		drainer:  drainer,
		maxSteps: vm.DefaultMaxSteps,
		log:      logger.GetLogger(),
		cursor:   Cursor{Line: -1},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// State returns the phase of the current or last run.
func (i *Interpreter) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Cursor returns the dispatch progress of the current or last run.
func (i *Interpreter) Cursor() Cursor {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.cursor
}

// Instructions returns a copy of the last compiled instruction sequence.
// It is empty after an extended-grammar run.
func (i *Interpreter) Instructions() []compiler.Instruction {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]compiler.Instruction, len(i.instructions))
	copy(out, i.instructions)
	return out
}

// Err returns the error that ended the last run, or nil.
func (i *Interpreter) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastErr
}

// Execute runs text to a terminal state. It never panics; every failure is
// reported through the Result. Only one Execute may be in flight at a time;
// a concurrent call fails at once with ErrBusy.
func (i *Interpreter) Execute(ctx context.Context, text string) (result Result) {
	if !i.busy.CompareAndSwap(false, true) {
		return Result{Success: false, Message: FailurePrefix + ErrBusy.Error()}
	}
	defer i.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			i.log.Error("Ritual panicked", "panic", r)
			result = i.finish(fmt.Errorf("internal error: %v", r))
		}
	}()

	i.reset()
	err := i.run(ctx, text)
	if err != nil && i.drainer != nil {
		// Effects issued before the failure stay applied; let the display
		// catch up. A cancelled ctx just discards the queue.
		if derr := i.drainer.AwaitDrain(ctx); derr != nil {
			i.log.Debug("Drain after failure", "error", derr)
		}
	}
	return i.finish(err)
}

func (i *Interpreter) reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = Idle
	i.cursor = Cursor{Line: -1}
	i.instructions = nil
	i.lastErr = nil
}

func (i *Interpreter) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
	i.log.Debug("Ritual state", "state", s.String())
}

func (i *Interpreter) run(ctx context.Context, text string) error {
	registry := i.provider.Commands()

	i.setState(Validating)
	verdict := validator.Validate(text, registry.Names())
	if !verdict.Valid {
		return &ValidationError{Message: verdict.Error}
	}

	i.setState(Classifying)
	grammar := compiler.Classify(text)
	i.log.Debug("Ritual classified", "grammar", grammar.String())

	if grammar == compiler.Extended {
		i.setState(Dispatching)
		if err := i.runExtended(ctx, registry, text); err != nil {
			return err
		}
	} else {
		i.setState(Compiling)
		instructions, err := compiler.Compile(text)
		if err != nil {
			return err
		}
		i.mu.Lock()
		i.instructions = instructions
		i.cursor.Total = len(instructions)
		i.mu.Unlock()

		i.setState(Dispatching)
		if err := i.dispatch(ctx, registry, instructions); err != nil {
			return err
		}
	}

	i.setState(Draining)
	if i.drainer != nil {
		if err := i.drainer.AwaitDrain(ctx); err != nil {
			return err
		}
	}
	return nil
}

// dispatch invokes each instruction in order. The trace event for an
// instruction always precedes its call.
func (i *Interpreter) dispatch(ctx context.Context, registry command.Registry, instructions []compiler.Instruction) error {
	for idx, in := range instructions {
		if err := ctx.Err(); err != nil {
			return err
		}

		i.trace(idx, in.Line)
		i.log.Debug("Dispatch", "index", idx, "line", in.Line, "verb", in.Verb)

		if _, err := registry.Invoke(in.Verb, in.Args...); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) runExtended(ctx context.Context, registry command.Registry, text string) error {
	traced := 0
	machine := vm.New(registry,
		vm.WithLogger(i.log),
		vm.WithMaxSteps(i.maxSteps),
		vm.WithLineNotifier(func(line int) {
			i.trace(traced, line)
			traced++
		}),
	)
	return machine.Run(ctx, text)
}

func (i *Interpreter) trace(idx, line int) {
	i.mu.Lock()
	i.cursor.Index = idx
	i.cursor.Line = line
	i.mu.Unlock()
	if i.onLine != nil {
		i.onLine(line)
	}
}

// finish records the terminal state and builds the Result.
func (i *Interpreter) finish(err error) Result {
	state := Succeeded
	var res Result

	switch {
	case err == nil:
		res = Result{Success: true, Message: SuccessMessage}
	case errors.Is(err, compiler.ErrNoCommands):
		state = Failed
		res = Result{Message: compiler.ErrNoCommands.Error()}
	default:
		state = Failed
		if cause := interruption(err); cause != nil {
			state = Cancelled
			err = fmt.Errorf("%w: %w", cause, err)
			res = Result{Message: FailurePrefix + cause.Error()}
		} else {
			res = Result{Message: FailurePrefix + err.Error()}
		}
	}

	i.mu.Lock()
	i.state = state
	i.lastErr = err
	i.mu.Unlock()

	if err != nil {
		i.log.Info("Ritual failed", "state", state.String(), "error", err)
	} else {
		i.log.Info("Ritual succeeded")
	}
	return res
}
