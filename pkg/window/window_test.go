package window

import (
	"testing"

	"github.com/zurustar/necroturtle/pkg/graphics"
	"github.com/zurustar/necroturtle/pkg/turtle"
)

func TestVisibleLines(t *testing.T) {
	tests := []struct {
		name                 string
		total, current, rows int
		first, last          int
	}{
		{"fits", 5, 2, 10, 0, 5},
		{"not started", 50, -1, 10, 0, 10},
		{"centered", 50, 25, 10, 20, 30},
		{"near the end", 50, 48, 10, 40, 50},
		{"near the start", 50, 2, 10, 0, 10},
		{"no rows", 50, 2, 0, 0, 0},
		{"empty", 0, -1, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := visibleLines(tt.total, tt.current, tt.rows)
			if first != tt.first || last != tt.last {
				t.Errorf("visibleLines(%d, %d, %d) = [%d, %d), want [%d, %d)",
					tt.total, tt.current, tt.rows, first, last, tt.first, tt.last)
			}
		})
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"summon(100);", 20, "summon(100);"},
		{"summon(100);", 9, "summon..."},
		{"魂を集める儀式", 5, "魂を..."},
		{"abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		if got := clip(tt.in, tt.n); got != tt.want {
			t.Errorf("clip(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestViewerState(t *testing.T) {
	v := New(func() graphics.Scene { return graphics.Scene{} })
	if v.Line() != -1 {
		t.Errorf("initial line = %d, want -1", v.Line())
	}

	v.SetSource("summon(1);\ntwist(90);")
	v.SetLine(1)
	v.SetStatus("done", true)
	if v.Line() != 1 || len(v.lines) != 2 || v.status != "done" || v.failed {
		t.Errorf("unexpected viewer state: line=%d lines=%v status=%q", v.Line(), v.lines, v.status)
	}

	v.SetSource("banish(5);")
	if v.Line() != -1 || v.status != "" {
		t.Error("SetSource should clear the highlight and status")
	}
}

func TestStatusText(t *testing.T) {
	v := New(func() graphics.Scene { return graphics.Scene{} })
	if got, _ := v.statusText(); got != "" {
		t.Errorf("initial status = %q, want empty", got)
	}

	v.SetCommand("summon")
	v.SetCommand("twist")
	if got, failed := v.statusText(); got != "Casting: twist()" || failed {
		t.Errorf("statusText() = %q, %v", got, failed)
	}

	// 結果は呪文名より優先
	v.SetStatus("The ritual has failed: boom", false)
	if got, failed := v.statusText(); got != "The ritual has failed: boom" || !failed {
		t.Errorf("statusText() = %q, %v", got, failed)
	}

	v.SetSource("summon(1);")
	if got, _ := v.statusText(); got != "" {
		t.Errorf("SetSource should clear the command, got %q", got)
	}
}

func TestLayout(t *testing.T) {
	v := New(func() graphics.Scene {
		return graphics.Scene{Snapshot: turtle.Snapshot{Width: 640, Height: 480}}
	})
	if w, h := v.Layout(0, 0); w != 640+PanelWidth || h != 480 {
		t.Errorf("Layout() = %d, %d", w, h)
	}

	v = New(func() graphics.Scene { return graphics.Scene{} })
	if w, h := v.Layout(0, 0); w != turtle.DefaultWidth+PanelWidth || h != turtle.DefaultHeight {
		t.Errorf("default Layout() = %d, %d", w, h)
	}
}

func TestUpdate_Timeout(t *testing.T) {
	closed := false
	v := New(func() graphics.Scene { return graphics.Scene{} },
		WithTimeout(1), WithOnClose(func() { closed = true }))
	v.start = v.start.Add(-1e9)
	if err := v.Update(); err == nil || !closed {
		t.Errorf("Update() after timeout = %v, closed = %v", err, closed)
	}
}
