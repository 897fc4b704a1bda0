// Package calc evaluates the arithmetic expressions behind the "solve"
// trigger. It supports the usual operators, a small set of functions and
// constants, and user variables with assignment ("x = 5", then "x * 2").
// Evaluation never panics; malformed input comes back as an error.
package calc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Calculator holds user variables between evaluations.
type Calculator struct {
	mu        sync.Mutex
	variables map[string]float64
}

// New returns a Calculator with no variables defined.
func New() *Calculator {
	return &Calculator{variables: make(map[string]float64)}
}

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
var allowedRe = regexp.MustCompile(`^[\w+\-*/().^=,]+$`)

// Eval evaluates an expression or performs an assignment. Assignments
// return a confirmation string; plain expressions return the formatted
// result.
func (c *Calculator) Eval(expression string) (string, error) {
	expression = strings.ReplaceAll(expression, " ", "")
	if expression == "" {
		return "", fmt.Errorf("empty expression")
	}
	if !allowedRe.MatchString(expression) {
		return "", fmt.Errorf("invalid characters in the expression")
	}
	if strings.Count(expression, "(") != strings.Count(expression, ")") {
		return "", fmt.Errorf("unbalanced brackets")
	}

	if name, rhs, ok := splitAssignment(expression); ok {
		if !identRe.MatchString(name) {
			return "", fmt.Errorf("invalid variable name: %s", name)
		}
		val, err := c.evaluate(rhs)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.variables[name] = val
		c.mu.Unlock()
		return fmt.Sprintf("Variable %s = %s", name, formatNumber(val)), nil
	}

	val, err := c.evaluate(expression)
	if err != nil {
		return "", err
	}
	return formatNumber(val), nil
}

// splitAssignment detects "name = expr", ignoring comparison operators.
func splitAssignment(expr string) (name, rhs string, ok bool) {
	idx := strings.Index(expr, "=")
	if idx < 0 {
		return "", "", false
	}
	// ==, !=, <=, >= are comparisons, not assignments.
	if idx+1 < len(expr) && expr[idx+1] == '=' {
		return "", "", false
	}
	if idx > 0 && (expr[idx-1] == '!' || expr[idx-1] == '<' || expr[idx-1] == '>') {
		return "", "", false
	}
	return expr[:idx], expr[idx+1:], true
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ---- expression evaluation (recursive descent) ----

type parser struct {
	calc  *Calculator
	input string
	pos   int
}

func (c *Calculator) evaluate(expr string) (float64, error) {
	expr = strings.ReplaceAll(expr, "^", "**")
	p := &parser{calc: c, input: expr}
	val, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return val, nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseAddSub() (float64, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseMulDiv()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseMulDiv()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMulDiv() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.peek() == '*' && !strings.HasPrefix(p.input[p.pos:], "**"):
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if strings.HasPrefix(p.input[p.pos:], "**") {
		p.pos += 2
		// Right-associative.
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	if p.peek() == '+' {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.pos++
		v, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing bracket")
		}
		p.pos++
		return v, nil
	case ch >= '0' && ch <= '9' || ch == '.':
		return p.parseNumber()
	case ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_':
		return p.parseIdentifier()
	}
	return 0, fmt.Errorf("unexpected end of expression")
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch >= '0' && ch <= '9' || ch == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *parser) parseIdentifier() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' ||
			ch >= '0' && ch <= '9' || ch == '_' {
			p.pos++
			continue
		}
		break
	}
	name := p.input[start:p.pos]

	if p.peek() == '(' {
		return p.parseCall(name)
	}

	switch name {
	case "pi":
		return math.Pi, nil
	case "e":
		return math.E, nil
	}

	p.calc.mu.Lock()
	v, ok := p.calc.variables[name]
	p.calc.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown variable or function %s", name)
	}
	return v, nil
}

func (p *parser) parseCall(name string) (float64, error) {
	p.pos++ // consume '('
	var args []float64
	if p.peek() != ')' {
		for {
			v, err := p.parseAddSub()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("missing closing bracket in call to %s", name)
	}
	p.pos++

	one := func(f func(float64) float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("incorrect number of arguments to %s", name)
		}
		return f(args[0]), nil
	}

	switch name {
	case "sin":
		return one(math.Sin)
	case "cos":
		return one(math.Cos)
	case "tan":
		return one(math.Tan)
	case "cot":
		return one(func(x float64) float64 { return 1 / math.Tan(x) })
	case "sqrt":
		return one(math.Sqrt)
	case "ln":
		return one(math.Log)
	case "log10":
		return one(math.Log10)
	case "log2":
		return one(math.Log2)
	case "log":
		switch len(args) {
		case 1:
			return math.Log(args[0]), nil
		case 2:
			if args[1] <= 0 || args[1] == 1 {
				return 0, fmt.Errorf("invalid logarithm base")
			}
			return math.Log(args[0]) / math.Log(args[1]), nil
		default:
			return 0, fmt.Errorf("incorrect number of arguments to log")
		}
	}
	return 0, fmt.Errorf("unknown variable or function %s", name)
}
