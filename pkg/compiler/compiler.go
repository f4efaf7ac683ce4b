// Package compiler turns restricted-grammar ritual text into a flat
// instruction sequence.
//
// The restricted grammar is line oriented:
//   - direct calls: summon(100);
//   - counted loops: for (let i = 0; i < 4; i++) { ... }
//
// Loops are unrolled at compile time. Anything else is skipped line by line;
// text that needs callbacks or functions is classified Extended and handed to
// the vm package instead.
package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxInstructions bounds the size of an unrolled instruction sequence.
const MaxInstructions = 100000

// Grammar is the result of Classify.
type Grammar int

const (
	// Restricted text can be compiled to instructions.
	Restricted Grammar = iota
	// Extended text needs the fallback evaluator.
	Extended
)

func (g Grammar) String() string {
	if g == Extended {
		return "extended"
	}
	return "restricted"
}

// Classify decides which execution path text takes. It is a textual
// heuristic: a ritual block, an arrow or the function keyword anywhere
// (comments included) force the extended path.
func Classify(text string) Grammar {
	if strings.Contains(text, "ritual(") ||
		strings.Contains(text, "=>") ||
		strings.Contains(text, "function") {
		return Extended
	}
	return Restricted
}

// Instruction is one traceable capability call.
type Instruction struct {
	Line int    // 0-based source line
	Verb string // capability name
	Args []any  // float64, string or bool
	Text string // the (substituted) source text
}

func (in Instruction) String() string {
	parts := make([]string, len(in.Args))
	for i, a := range in.Args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("%d: %s(%s)", in.Line, in.Verb, strings.Join(parts, ", "))
}

var (
	callPattern = regexp.MustCompile(`^(\w+)\((.*)\);?$`)
	loopPattern = regexp.MustCompile(`^for\s*\(\s*let\s+(\w+)\s*=\s*(\d+)\s*;\s*(\w+)\s*<\s*(\d+)\s*;\s*(\w+)\+\+\s*\)\s*\{?$`)
)

// sourceLine is a trimmed line with its 0-based position in the script.
type sourceLine struct {
	no   int
	text string
}

// Compile converts restricted-grammar text to instructions.
// An empty result is reported as ErrNoCommands.
func Compile(text string) ([]Instruction, error) {
	raw := strings.Split(text, "\n")
	lines := make([]sourceLine, len(raw))
	for i, l := range raw {
		lines[i] = sourceLine{no: i, text: strings.TrimSpace(l)}
	}

	c := &unroller{source: text}
	if err := c.compileLines(lines); err != nil {
		return nil, err
	}
	if len(c.out) == 0 {
		return nil, &CompileError{Phase: "compiler", Message: ErrNoCommands.Error(), Err: ErrNoCommands}
	}
	return c.out, nil
}

type unroller struct {
	source string
	out    []Instruction
}

func (c *unroller) emit(in Instruction) error {
	if len(c.out) >= MaxInstructions {
		return NewCompilerErrorWithContext(
			fmt.Sprintf("loop expansion exceeds %d instructions", MaxInstructions),
			in.Line+1, 1, c.source)
	}
	c.out = append(c.out, in)
	return nil
}

func (c *unroller) compileLines(lines []sourceLine) error {
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if isBlankOrComment(line.text) {
			continue
		}

		if header, ok := matchLoop(line.text); ok {
			body, closing := loopBody(lines, bodyStart(lines, i))
			i = closing
			if len(body) == 0 {
				continue
			}
			if err := c.unroll(header, body); err != nil {
				return err
			}
			continue
		}

		if in, ok := parseCall(line); ok {
			if err := c.emit(in); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *unroller) unroll(h loopHeader, body []sourceLine) error {
	word := regexp.MustCompile(`\b` + regexp.QuoteMeta(h.variable) + `\b`)
	for v := h.start; v < h.end; v++ {
		lit := strconv.Itoa(v)
		iteration := make([]sourceLine, len(body))
		for k, b := range body {
			iteration[k] = sourceLine{no: b.no, text: word.ReplaceAllString(b.text, lit)}
		}
		if err := c.compileLines(iteration); err != nil {
			return err
		}
	}
	return nil
}

type loopHeader struct {
	variable   string
	start, end int
}

// matchLoop recognises `for (let v = a; v < b; v++) {` where all three
// mentions of v name the same variable.
func matchLoop(text string) (loopHeader, bool) {
	m := loopPattern.FindStringSubmatch(text)
	if m == nil || m[1] != m[3] || m[1] != m[5] {
		return loopHeader{}, false
	}
	start, err1 := strconv.Atoi(m[2])
	end, err2 := strconv.Atoi(m[4])
	if err1 != nil || err2 != nil {
		return loopHeader{}, false
	}
	return loopHeader{variable: m[1], start: start, end: end}, true
}

// bodyStart returns the index of the first line after the opening brace of
// the loop headed at lines[i]. The brace may close the header line or stand
// alone on a later line.
func bodyStart(lines []sourceLine, i int) int {
	if strings.HasSuffix(lines[i].text, "{") {
		return i + 1
	}
	j := i + 1
	for j < len(lines) && isBlankOrComment(lines[j].text) {
		j++
	}
	if j < len(lines) && lines[j].text == "{" {
		return j + 1
	}
	return i + 1
}

// loopBody collects the lines after a loop header up to its matching
// closing brace. It returns the body (blank and comment lines dropped,
// trailing semicolons stripped) and the index of the closing line.
func loopBody(lines []sourceLine, from int) ([]sourceLine, int) {
	var body []sourceLine
	depth := 1
	j := from
	for ; j < len(lines); j++ {
		text := lines[j].text
		if strings.HasPrefix(text, "}") {
			depth--
			if depth == 0 {
				break
			}
		}
		if strings.HasSuffix(text, "{") {
			depth++
		}
		if isBlankOrComment(text) {
			continue
		}
		body = append(body, sourceLine{no: lines[j].no, text: strings.TrimSuffix(text, ";")})
	}
	return body, j
}

func isBlankOrComment(text string) bool {
	return text == "" || strings.HasPrefix(text, "//")
}

func parseCall(line sourceLine) (Instruction, bool) {
	m := callPattern.FindStringSubmatch(line.text)
	if m == nil {
		return Instruction{}, false
	}
	return Instruction{
		Line: line.no,
		Verb: m[1],
		Args: ParseArgs(m[2]),
		Text: line.text,
	}, true
}
