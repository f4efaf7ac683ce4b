package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zurustar/necroturtle/pkg/command"
)

// recorder は呼ばれた動詞を順に記録する
type recorder struct {
	mu     sync.Mutex
	calls  []string
	events *[]string
}

func (r *recorder) verb(name string) command.Func {
	return func(args ...any) (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		if r.events != nil {
			*r.events = append(*r.events, "call:"+name)
		}
		return nil, nil
	}
}

func (r *recorder) Commands() command.Registry {
	reg := command.Registry{}
	for _, name := range []string{"summon", "twist", "banish", "spin"} {
		reg[name] = r.verb(name)
	}
	reg["fail"] = func(args ...any) (any, error) {
		return nil, errors.New("the spirits refuse")
	}
	reg["ritual"] = func(args ...any) (any, error) {
		n := int(args[0].(float64))
		for i := 0; i < n; i++ {
			if _, err := args[1].(command.Callable).Call(float64(i)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return reg
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fakeDrainer は AwaitDrain の呼び出しを記録する
type fakeDrainer struct {
	drained int
	events  *[]string
	block   chan struct{}
	err     error
}

func (d *fakeDrainer) AwaitDrain(ctx context.Context) error {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.drained++
	if d.events != nil {
		*d.events = append(*d.events, "drain")
	}
	return d.err
}

func TestExecute_SuccessDrainsBeforeReporting(t *testing.T) {
	var events []string
	rec := &recorder{events: &events}
	dr := &fakeDrainer{events: &events}
	in := New(rec, dr)

	res := in.Execute(context.Background(), "summon(100);\ntwist(90);\nsummon(50);")
	if !res.Success || res.Message != SuccessMessage {
		t.Fatalf("Execute() = %+v", res)
	}
	want := []string{"call:summon", "call:twist", "call:summon", "drain"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if in.State() != Succeeded {
		t.Errorf("State() = %v, want succeeded", in.State())
	}
	if c := in.Cursor(); c.Index != 2 || c.Total != 3 || c.Line != 2 {
		t.Errorf("Cursor() = %+v", c)
	}
	if got := len(in.Instructions()); got != 3 {
		t.Errorf("Instructions() has %d entries, want 3", got)
	}
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		message   string
		calls     int
		state     State
		checkType func(error) bool
	}{
		{
			name:    "forbidden pattern",
			text:    "summon(10);\neval('x');",
			message: FailurePrefix + `forbidden pattern "eval"`,
			state:   Failed,
			checkType: func(err error) bool {
				var ve *ValidationError
				return errors.As(err, &ve)
			},
		},
		{
			name:    "unknown spell",
			text:    "summon(10);\nfly(20);",
			message: FailurePrefix + "unknown spell: fly",
			state:   Failed,
		},
		{
			name:    "empty input",
			text:    "// nothing here\n",
			message: "No valid commands found. Check your syntax.",
			state:   Failed,
		},
		{
			name:    "capability error stops dispatch",
			text:    "summon(10);\nfail();\nsummon(20);",
			message: FailurePrefix + "the spirits refuse",
			calls:   1,
			state:   Failed,
			checkType: func(err error) bool {
				var ce *CapabilityError
				return errors.As(err, &ce)
			},
		},
		{
			name:    "undeclared call inside a ritual",
			text:    "summon(10);\nritual(2, () => { missing(); });",
			message: FailurePrefix + "unknown spell: missing",
			state:   Failed,
		},
		{
			name:    "reference error",
			text:    "ritual(1, () => { summon(nothing); });",
			message: FailurePrefix + "nothing is not defined",
			state:   Failed,
			checkType: func(err error) bool {
				var re *RuntimeError
				return errors.As(err, &re)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			dr := &fakeDrainer{}
			in := New(rec, dr)

			res := in.Execute(context.Background(), tt.text)
			if res.Success {
				t.Fatalf("Execute() succeeded, want failure")
			}
			if !strings.Contains(res.Message, tt.message) {
				t.Errorf("Message = %q, want %q", res.Message, tt.message)
			}
			if got := len(rec.Calls()); got != tt.calls {
				t.Errorf("%d capabilities ran, want %d", got, tt.calls)
			}
			if in.State() != tt.state {
				t.Errorf("State() = %v, want %v", in.State(), tt.state)
			}
			if tt.checkType != nil && !tt.checkType(in.Err()) {
				t.Errorf("Err() = %T %v", in.Err(), in.Err())
			}
		})
	}
}

func TestExecute_ExtendedTracesLines(t *testing.T) {
	var lines []int
	rec := &recorder{}
	in := New(rec, &fakeDrainer{}, WithLineCallback(func(line int) { lines = append(lines, line) }))

	text := "ritual(2, (i) => {\n  summon(10);\n  twist(90);\n});"
	res := in.Execute(context.Background(), text)
	if !res.Success {
		t.Fatalf("Execute() = %+v", res)
	}
	if want := []string{"summon", "twist", "summon", "twist"}; !reflect.DeepEqual(rec.Calls(), want) {
		t.Errorf("calls = %v, want %v", rec.Calls(), want)
	}
	// ritual, then every repetition of summon and twist
	if want := []int{0, 1, 2, 1, 2}; !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
	if c := in.Cursor(); c.Index != len(lines)-1 || c.Line != 2 {
		t.Errorf("Cursor() = %+v, want index %d on line 2", c, len(lines)-1)
	}
	if len(in.Instructions()) != 0 {
		t.Error("extended runs produce no instruction sequence")
	}
}

func TestExecute_TraceBeforeCall(t *testing.T) {
	var events []string
	rec := &recorder{events: &events}
	in := New(rec, nil, WithLineCallback(func(line int) {
		events = append(events, "line")
	}))

	in.Execute(context.Background(), "summon(1);\nbanish(1);")
	want := []string{"line", "call:summon", "line", "call:banish"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestExecute_Busy(t *testing.T) {
	rec := &recorder{}
	dr := &fakeDrainer{block: make(chan struct{})}
	in := New(rec, dr)

	done := make(chan Result)
	go func() {
		done <- in.Execute(context.Background(), "summon(1);")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for in.State() != Draining && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	res := in.Execute(context.Background(), "summon(2);")
	if res.Success || !strings.Contains(res.Message, ErrBusy.Error()) {
		t.Errorf("concurrent Execute() = %+v, want busy", res)
	}

	close(dr.block)
	if res := <-done; !res.Success {
		t.Errorf("first Execute() = %+v", res)
	}
	if got := rec.Calls(); len(got) != 1 {
		t.Errorf("calls = %v, the busy run must not dispatch", got)
	}
}

func TestExecute_Cancel(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		message string
	}{
		{
			name: "cancelled",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithCancel(context.Background())
			},
			message: FailurePrefix + ErrInterrupted.Error(),
		},
		{
			name: "deadline",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			message: FailurePrefix + ErrTimedOut.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := &fakeDrainer{block: make(chan struct{})}
			in := New(&recorder{}, dr)
			ctx, cancel := tt.ctx()
			defer cancel()

			if tt.name == "cancelled" {
				go func() {
					time.Sleep(10 * time.Millisecond)
					cancel()
				}()
			}

			res := in.Execute(ctx, "summon(1);")
			if res.Success || res.Message != tt.message {
				t.Errorf("Execute() = %+v, want %q", res, tt.message)
			}
			if in.State() != Cancelled {
				t.Errorf("State() = %v, want cancelled", in.State())
			}
		})
	}
}

func TestExecute_CancelledBeforeDispatch(t *testing.T) {
	rec := &recorder{}
	in := New(rec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := in.Execute(ctx, "summon(1);\nsummon(2);")
	if res.Success || len(rec.Calls()) != 0 {
		t.Errorf("Execute() = %+v with %d calls", res, len(rec.Calls()))
	}
}

func TestExecute_DrainErrorFails(t *testing.T) {
	in := New(&recorder{}, &fakeDrainer{err: &AnimationError{Index: 0, Err: errors.New("frame lost")}})
	res := in.Execute(context.Background(), "summon(1);")
	if res.Success || !strings.Contains(res.Message, "frame lost") {
		t.Errorf("Execute() = %+v", res)
	}
}

func TestExecute_StepLimit(t *testing.T) {
	in := New(&recorder{}, nil, WithMaxSteps(500))
	res := in.Execute(context.Background(), "ritual(1, () => { while (true) { } });")
	if res.Success {
		t.Fatal("an endless loop should exhaust the step budget")
	}
	if in.State() != Failed {
		t.Errorf("State() = %v, want failed", in.State())
	}
}

func TestExecute_ResetsBetweenRuns(t *testing.T) {
	in := New(&recorder{}, nil)
	in.Execute(context.Background(), "fail();")
	if in.Err() == nil {
		t.Fatal("first run should record an error")
	}
	res := in.Execute(context.Background(), "summon(1);")
	if !res.Success || in.Err() != nil || in.State() != Succeeded {
		t.Errorf("second run: %+v err=%v state=%v", res, in.Err(), in.State())
	}
}

func TestStateString(t *testing.T) {
	for s := Idle; s <= Cancelled; s++ {
		if s.String() == "unknown" {
			t.Errorf("state %d has no name", s)
		}
	}
	if !Succeeded.Terminal() || Draining.Terminal() {
		t.Error("Terminal() is wrong")
	}
}
