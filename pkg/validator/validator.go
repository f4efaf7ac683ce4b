// Package validator rejects unsafe or unknown constructs in ritual text
// before anything is parsed or executed.
//
// Validation is lexical. It is not a sandbox: the evaluator only ever sees
// registry verbs, and this package makes sure the text does not even try to
// reach anything else.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Verdict is the result of a validation.
type Verdict struct {
	Valid bool
	Error string
}

// Rule is one entry of the deny table.
type Rule struct {
	Name        string
	Description string
	pattern     *regexp.Regexp
}

func deny(name, pattern, description string) Rule {
	return Rule{
		Name:        name,
		Description: description,
		pattern:     regexp.MustCompile(`(?i)\b` + pattern + `\b`),
	}
}

// denyRules is checked in order; the first match wins.
var denyRules = []Rule{
	deny("eval", `eval`, "dynamic code evaluation"),
	deny("new Function", `new\s+Function`, "dynamic code evaluation"),
	deny("setTimeout", `setTimeout`, "timers"),
	deny("setInterval", `setInterval`, "timers"),
	deny("setImmediate", `setImmediate`, "timers"),
	deny("requestAnimationFrame", `requestAnimationFrame`, "timers"),
	deny("document.cookie", `document\s*\.\s*cookie`, "storage access"),
	deny("window", `window`, "global object access"),
	deny("document", `document`, "global object access"),
	deny("globalThis", `globalThis`, "global object access"),
	deny("global", `global`, "global object access"),
	deny("self", `self`, "global object access"),
	deny("localStorage", `localStorage`, "storage access"),
	deny("sessionStorage", `sessionStorage`, "storage access"),
	deny("indexedDB", `indexedDB`, "storage access"),
	deny("fetch", `fetch`, "network access"),
	deny("XMLHttpRequest", `XMLHttpRequest`, "network access"),
	deny("WebSocket", `WebSocket`, "network access"),
	deny("EventSource", `EventSource`, "network access"),
	deny("navigator", `navigator`, "network access"),
	deny("import", `import`, "module loading"),
	deny("require", `require`, "module loading"),
	deny("process", `process`, "module loading"),
	deny("__proto__", `__proto__`, "prototype manipulation"),
	deny("prototype", `prototype`, "prototype manipulation"),
	deny("constructor", `constructor`, "prototype manipulation"),
	deny("alert", `alert`, "interactive dialogs"),
	deny("confirm", `confirm`, "interactive dialogs"),
	deny("prompt", `prompt`, "interactive dialogs"),
	deny("location", `location`, "navigation"),
	deny("Worker", `Worker`, "background workers"),
}

// Rules returns a copy of the deny table.
func Rules() []Rule {
	out := make([]Rule, len(denyRules))
	copy(out, denyRules)
	return out
}

// permitted are general-purpose names that may appear before "(" without
// being registry verbs.
var permitted = map[string]bool{
	"for": true, "while": true, "if": true, "switch": true,
	"forEach": true, "map": true, "filter": true, "reduce": true,
	"some": true, "every": true, "find": true,
	// language keywords that can precede a parenthesis
	"return": true, "typeof": true, "function": true,
}

var (
	callToken    = regexp.MustCompile(`([A-Za-z_$][\w$]*)\(`)
	declaredFunc = regexp.MustCompile(`\bfunction\s+([A-Za-z_$][\w$]*)`)
	declaredVar  = regexp.MustCompile(`\b(?:let|const|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:function\b|\([^()]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`)
)

// Validator checks text against the deny table and an allow-list of verbs.
type Validator struct {
	allowed map[string]bool
}

// New creates a Validator that accepts calls to the given verbs.
func New(allowed []string) *Validator {
	v := &Validator{allowed: make(map[string]bool, len(allowed))}
	for _, name := range allowed {
		v.allowed[name] = true
	}
	return v
}

// Validate is shorthand for New(allowed).Validate(text).
func Validate(text string, allowed []string) Verdict {
	return New(allowed).Validate(text)
}

// Validate inspects text. It has no side effects and never panics.
func (v *Validator) Validate(text string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{Valid: false, Error: fmt.Sprintf("validation failed: %v", r)}
		}
	}()

	// Full-width and other compatibility forms are checked as their ASCII
	// equivalents.
	text = norm.NFKC.String(text)

	stripped, code := scan(text)

	for _, rule := range denyRules {
		if rule.pattern.MatchString(stripped) {
			return Verdict{
				Valid: false,
				Error: fmt.Sprintf("forbidden pattern %q: %s is not allowed", rule.Name, rule.Description),
			}
		}
	}

	declared := declaredNames(code)
	for _, m := range callToken.FindAllStringSubmatch(code, -1) {
		name := m[1]
		if v.allowed[name] || permitted[name] || declared[name] {
			continue
		}
		return Verdict{Valid: false, Error: fmt.Sprintf("unknown spell: %s", name)}
	}

	return Verdict{Valid: true}
}

func declaredNames(code string) map[string]bool {
	names := make(map[string]bool)
	for _, m := range declaredFunc.FindAllStringSubmatch(code, -1) {
		names[m[1]] = true
	}
	for _, m := range declaredVar.FindAllStringSubmatch(code, -1) {
		names[m[1]] = true
	}
	return names
}

// StripComments removes // and /* */ comments, leaving string literals and
// line breaks intact.
func StripComments(text string) string {
	stripped, _ := scan(text)
	return stripped
}

// scan returns text without comments, and a second view that also blanks
// out the contents of string literals so that text inside quotes is never
// mistaken for a call.
func scan(text string) (stripped, code string) {
	var s, c strings.Builder
	s.Grow(len(text))
	c.Grow(len(text))

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				s.WriteByte('\n')
				c.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			i += 2
			for i < len(text) && !(text[i] == '*' && i+1 < len(text) && text[i+1] == '/') {
				if text[i] == '\n' {
					s.WriteByte('\n')
					c.WriteByte('\n')
				}
				i++
			}
			i++ // land on '/'; the loop increment moves past it
			s.WriteByte(' ')
			c.WriteByte(' ')
		case ch == '"' || ch == '\'' || ch == '`':
			quote := ch
			s.WriteByte(ch)
			c.WriteByte(ch)
			for i++; i < len(text) && text[i] != quote && text[i] != '\n'; i++ {
				if text[i] == '\\' && i+1 < len(text) {
					s.WriteByte(text[i])
					i++
				}
				s.WriteByte(text[i])
			}
			if i < len(text) {
				s.WriteByte(text[i])
				c.WriteByte(text[i])
			}
		default:
			s.WriteByte(ch)
			c.WriteByte(ch)
		}
	}
	return s.String(), c.String()
}
