package engine

// State is the phase of the current (or last) run.
type State int

const (
	Idle State = iota
	Validating
	Classifying
	Compiling
	Dispatching
	Draining
	Succeeded
	Failed
	Cancelled
)

var stateNames = [...]string{
	Idle:        "idle",
	Validating:  "validating",
	Classifying: "classifying",
	Compiling:   "compiling",
	Dispatching: "dispatching",
	Draining:    "draining",
	Succeeded:   "succeeded",
	Failed:      "failed",
	Cancelled:   "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// Cursor is a snapshot of dispatch progress.
// Line is -1 until the first traced call.
type Cursor struct {
	Index int // position in the instruction sequence, or count of traced calls in extended mode
	Total int // length of the instruction sequence, 0 in extended mode
	Line  int // 0-based source line of the last traced call
}

// Result is what Execute reports to its caller.
type Result struct {
	Success bool
	Message string
}
