package compiler

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Grammar
	}{
		{"direct calls", "summon(100);\nbanish(50);", Restricted},
		{"counted loop", "for (let i = 0; i < 3; i++) {\n  summon(i);\n}", Restricted},
		{"ritual block", "ritual(4, () => {\n  summon(10);\n});", Extended},
		{"arrow only", "const f = () => 1;", Extended},
		{"function declaration", "function square() {}", Extended},
		{"function inside a comment", "// no function here\nsummon(1);", Extended},
		{"empty", "", Restricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_DirectCalls(t *testing.T) {
	got, err := Compile("summon(100);\nbanish(50);")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := []Instruction{
		{Line: 0, Verb: "summon", Args: []any{100.0}, Text: "summon(100);"},
		{Line: 1, Verb: "banish", Args: []any{50.0}, Text: "banish(50);"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compile() = %v, want %v", got, want)
	}
}

func TestCompile_CountedLoop(t *testing.T) {
	got, err := Compile("for (let i = 0; i < 3; i++) {\n  summon(i * 10);\n}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(got))
	}
	for k, in := range got {
		if in.Line != 1 {
			t.Errorf("instruction %d line = %d, want 1", k, in.Line)
		}
		if in.Verb != "summon" {
			t.Errorf("instruction %d verb = %q", k, in.Verb)
		}
		if want := float64(k * 10); !reflect.DeepEqual(in.Args, []any{want}) {
			t.Errorf("instruction %d args = %v, want [%v]", k, in.Args, want)
		}
	}
}

func TestCompile_LoopBodyKeepsSourceLines(t *testing.T) {
	src := `for (let i = 0; i < 2; i++) {
  summon(50);

  // turn
  twist(90);
}
banish(10);`

	got, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var lines []int
	var verbs []string
	for _, in := range got {
		lines = append(lines, in.Line)
		verbs = append(verbs, in.Verb)
	}
	if want := []int{1, 4, 1, 4, 6}; !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
	if want := []string{"summon", "twist", "summon", "twist", "banish"}; !reflect.DeepEqual(verbs, want) {
		t.Errorf("verbs = %v, want %v", verbs, want)
	}
}

func TestCompile_NestedLoops(t *testing.T) {
	src := `for (let i = 0; i < 3; i++) {
  for (let j = 0; j < i; j++) {
    summon(i * 10 + j);
  }
  twist(i);
}`

	got, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var args []any
	for _, in := range got {
		args = append(args, in.Args[0])
	}
	// i=0: twist(0); i=1: summon(10) twist(1); i=2: summon(20) summon(21) twist(2)
	want := []any{0.0, 10.0, 1.0, 20.0, 21.0, 2.0}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
	if got[1].Line != 2 || got[2].Line != 4 {
		t.Errorf("unexpected lines %d and %d", got[1].Line, got[2].Line)
	}
}

func TestCompile_BraceOnNextLine(t *testing.T) {
	src := "for (let i = 0; i < 2; i++)\n{\n  summon(i);\n}\nbanish(5);"

	got, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := []Instruction{
		{Line: 2, Verb: "summon", Args: []any{0.0}, Text: "summon(0)"},
		{Line: 2, Verb: "summon", Args: []any{1.0}, Text: "summon(1)"},
		{Line: 4, Verb: "banish", Args: []any{5.0}, Text: "banish(5);"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compile() = %v, want %v", got, want)
	}
}

func TestCompile_NestedBraceOnNextLine(t *testing.T) {
	src := `for (let i = 0; i < 2; i++)
{
  for (let j = 0; j < 2; j++)

  {
    summon(i * 10 + j);
  }
  twist(i);
}
banish(1);`

	got, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	var verbs []string
	var args []any
	for _, in := range got {
		verbs = append(verbs, in.Verb)
		args = append(args, in.Args[0])
	}
	wantVerbs := []string{"summon", "summon", "twist", "summon", "summon", "twist", "banish"}
	wantArgs := []any{0.0, 1.0, 0.0, 10.0, 11.0, 1.0, 1.0}
	if !reflect.DeepEqual(verbs, wantVerbs) || !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("Compile() verbs = %v args = %v", verbs, args)
	}
}

func TestCompile_WholeWordSubstitution(t *testing.T) {
	got, err := Compile("for (let i = 1; i < 2; i++) {\n  conjureColor('i', i, 'pi');\n}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	// Quoted text is not protected from substitution.
	want := []any{"1", 1.0, "pi"}
	if !reflect.DeepEqual(got[0].Args, want) {
		t.Errorf("args = %v, want %v", got[0].Args, want)
	}
}

func TestCompile_EmptyLoopBodyIsSkipped(t *testing.T) {
	got, err := Compile("for (let i = 0; i < 5; i++) {\n}\nsummon(1);")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(got) != 1 || got[0].Line != 2 {
		t.Errorf("Compile() = %v, want a single summon on line 2", got)
	}
}

func TestCompile_SkipsUnmatchedLines(t *testing.T) {
	got, err := Compile("let x = 5;\n}\nsummon(1)\n;")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(got) != 1 || got[0].Verb != "summon" {
		t.Errorf("Compile() = %v", got)
	}
}

func TestCompile_NoCommands(t *testing.T) {
	for _, input := range []string{"", "   \n\t\n", "// only a comment", "let x = 1;"} {
		t.Run(input, func(t *testing.T) {
			got, err := Compile(input)
			if err == nil {
				t.Fatalf("expected error, got %v", got)
			}
			if !errors.Is(err, ErrNoCommands) {
				t.Errorf("error %v is not ErrNoCommands", err)
			}
			if !IsCompileError(err) {
				t.Errorf("error %T is not a CompileError", err)
			}
			if err.Error() != "No valid commands found. Check your syntax." {
				t.Errorf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestCompile_ExpansionLimit(t *testing.T) {
	_, err := Compile("for (let i = 0; i < 200000; i++) {\n  summon(i);\n}")
	if err == nil {
		t.Fatal("expected expansion error")
	}
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not a CompileError", err)
	}
	if ce.Line != 2 || !strings.Contains(ce.Message, "exceeds") {
		t.Errorf("unexpected error %v", ce)
	}
}

func TestCompile_LoopHeaderMustUseOneVariable(t *testing.T) {
	// i < 3 with j++ is not a canonical counted loop; only the body call survives.
	got, err := Compile("for (let i = 0; i < 3; j++) {\n  summon(1);\n}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 instruction, got %d", len(got))
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []any
	}{
		{"", []any{}},
		{"100", []any{100.0}},
		{"-2.5", []any{-2.5}},
		{"'#bb88ff'", []any{"#bb88ff"}},
		{`"it's"`, []any{"it's"}},
		{"true, false", []any{true, false}},
		{"2 * 3 + 1", []any{7.0}},
		{"(10 - 4) / 4", []any{1.5}},
		{"2 ** 3", []any{8.0}},
		{"1 < 2 && 3 > 2", []any{true}},
		{"'a' + 1", []any{"a1"}},
		{"size", []any{"size"}},
		{"summon(1)", []any{"summon(1)"}},
		{"1 / 0", []any{math.Inf(1)}},
		{"-1 / 0", []any{math.Inf(-1)}},
		{"0 / 0", []any{"0 / 0"}},
		{"'a,b', 3", []any{"a,b", 3.0}},
		{"max(1, 2), 3", []any{"max(1, 2)", 3.0}},
		{"[1, 2], 3", []any{"[1, 2]", 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseArgs(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseArgs(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b", []string{"a", "b"}},
		{"f(a, b), c", []string{"f(a, b)", " c"}},
		{"'x,y', {a: 1, b: 2}", []string{"'x,y'", " {a: 1, b: 2}"}},
		{`"a\",b", c`, []string{`"a\",b"`, " c"}},
		{"", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SplitTopLevel(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitTopLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateErrorContext(t *testing.T) {
	source := "summon(1);\ntwist(2);\nsummon(;\nbanish(3);"
	got := GenerateErrorContext(source, 3, 8)

	want := "  1 | summon(1);\n" +
		"  2 | twist(2);\n" +
		"> 3 | summon(;\n" +
		strings.Repeat(" ", 13) + "^\n" +
		"  4 | banish(3);\n"
	if got != want {
		t.Errorf("GenerateErrorContext() =\n%s\nwant\n%s", got, want)
	}

	if GenerateErrorContext(source, 0, 1) != "" || GenerateErrorContext(source, 10, 1) != "" {
		t.Error("out of range lines should produce no context")
	}
}

func TestCompileError_Error(t *testing.T) {
	err := NewCompilerErrorWithContext("bad loop", 2, 1, "a\nb")
	if !strings.HasPrefix(err.Error(), "compiler error at line 2, column 1: bad loop\n") {
		t.Errorf("unexpected error text %q", err.Error())
	}
}
