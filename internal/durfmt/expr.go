package durfmt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ExprErrorText replaces the output of a %js{} block that does not evaluate.
const ExprErrorText = "#EXPR!"

const maxExprDepth = 64

var (
	errDivisionByZero = errors.New("division by zero")
	errExprTooDeep    = errors.New("expression nested too deeply")
)

func evalText(src string) string {
	v, err := Evaluate(src)
	if err != nil {
		return ExprErrorText
	}
	return formatNumber(v)
}

// Evaluate computes an arithmetic expression of numbers, + - * / and
// parentheses. Nothing else is accepted.
func Evaluate(src string) (float64, error) {
	p := &exprParser{src: src}
	v, err := p.parseSum(0)
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return 0, p.errorf("unexpected %q", p.src[p.pos])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result out of range")
	}
	return v, nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) parseSum(depth int) (float64, error) {
	left, err := p.parseProduct(depth)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		op := p.src[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct(depth)
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseProduct(depth int) (float64, error) {
	left, err := p.parseUnary(depth)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		op := p.src[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary(depth)
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, errDivisionByZero
		}
		left /= right
	}
}

func (p *exprParser) parseUnary(depth int) (float64, error) {
	if depth > maxExprDepth {
		return 0, errExprTooDeep
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '-':
			p.pos++
			v, err := p.parseUnary(depth + 1)
			return -v, err
		case '+':
			p.pos++
			return p.parseUnary(depth + 1)
		}
	}
	return p.parsePrimary(depth)
}

func (p *exprParser) parsePrimary(depth int) (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, p.errorf("unexpected end of expression")
	}
	if p.src[p.pos] == '(' {
		p.pos++
		v, err := p.parseSum(depth + 1)
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return 0, p.errorf("missing )")
		}
		p.pos++
		return v, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("unexpected %q", p.src[p.pos])
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("bad number %q", p.src[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}
