// Package evaluator runs console input for the Runtime domain. Each Console
// keeps its own variable bindings and buffers multi-line input until it is
// complete. Expressions are compiled and run with github.com/expr-lang/expr.
//
// Besides plain expressions a console accepts assignments of the form
// "name = expression", which bind a variable for later input, and the
// print(...) function, whose output goes to the console's log function.
package evaluator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
)

// Outcome is the result of pushing one line of input.
type Outcome struct {
	// Value is the result of a complete expression. HasValue is false for
	// assignments, blank input and expressions that evaluate to nil.
	Value    any
	HasValue bool

	// Err is set when the input failed to compile or run.
	Err error

	// Partial is set when more input is needed before anything runs.
	Partial bool
}

// LogFunc receives the output of print(...).
type LogFunc func(text string)

var assignment = regexp.MustCompile(`(?s)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*|)$`)

// Console is one evaluation environment. Safe for concurrent use, though
// input from concurrent callers interleaves in the line buffer.
type Console struct {
	mu      sync.Mutex
	env     map[string]any
	pending []string
	log     LogFunc
}

// New creates a console with an empty environment. log may be nil.
func New(log LogFunc) *Console {
	c := &Console{env: make(map[string]any), log: log}
	c.env["print"] = c.print
	return c
}

// Push feeds one line. An empty line ends buffered multi-line input.
func (c *Console) Push(line string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	blank := strings.TrimSpace(line) == ""
	if blank && len(c.pending) == 0 {
		return Outcome{}
	}
	if !blank {
		c.pending = append(c.pending, line)
	}

	source := strings.Join(c.pending, "\n")
	if !blank && Incomplete(source) {
		return Outcome{Partial: true}
	}
	c.pending = nil

	return c.run(source)
}

// Reset discards buffered input. Bindings are kept.
func (c *Console) Reset() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// Set binds name to value.
func (c *Console) Set(name string, value any) {
	c.mu.Lock()
	c.env[name] = value
	c.mu.Unlock()
}

// Names returns the bound variable names, sorted.
func (c *Console) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.env))
	for name := range c.env {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Console) run(source string) Outcome {
	target := ""
	if m := assignment.FindStringSubmatch(source); m != nil {
		target, source = m[1], m[2]
		if strings.TrimSpace(source) == "" {
			return Outcome{Err: fmt.Errorf("missing value in assignment to %s", target)}
		}
	}

	program, err := expr.Compile(source, expr.Env(c.env))
	if err != nil {
		return Outcome{Err: err}
	}
	value, err := runProgram(program, c.env)
	if err != nil {
		return Outcome{Err: err}
	}

	if target != "" {
		c.env[target] = value
		return Outcome{}
	}
	return Outcome{Value: value, HasValue: value != nil}
}

func (c *Console) print(args ...any) any {
	if c.log == nil {
		return nil
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}
	c.log(strings.Join(parts, " "))
	return nil
}
