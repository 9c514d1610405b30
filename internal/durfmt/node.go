// Package durfmt compiles duration templates into formatting pipelines.
package durfmt

import (
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Node.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindSign
	KindUnit
	KindOptional
	KindExpr
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindSign:
		return "sign"
	case KindUnit:
		return "unit"
	case KindOptional:
		return "optional"
	case KindExpr:
		return "expr"
	default:
		return "unknown"
	}
}

// SignMode selects how a sign directive renders.
type SignMode uint8

const (
	// SignMinus renders "-" for negative input and nothing otherwise (%sign).
	SignMinus SignMode = iota
	// SignLoud renders "-" or "+" (%SIGN).
	SignLoud
	// SignNone renders nothing (%nosign).
	SignNone
)

// Unit is a time unit a directive can display.
type Unit uint8

// Units are ordered from coarsest to finest.
const (
	Days Unit = iota
	Hours
	Minutes
	Seconds
	Tenths
)

const (
	msTenth  int64 = 100
	msSecond int64 = 1000
	msMinute       = 60 * msSecond
	msHour         = 60 * msMinute
	msDay          = 24 * msHour
)

// Millis returns the length of one unit in milliseconds.
func (u Unit) Millis() int64 {
	switch u {
	case Days:
		return msDay
	case Hours:
		return msHour
	case Minutes:
		return msMinute
	case Seconds:
		return msSecond
	default:
		return msTenth
	}
}

// String returns the unit name.
func (u Unit) String() string {
	switch u {
	case Days:
		return "days"
	case Hours:
		return "hours"
	case Minutes:
		return "minutes"
	case Seconds:
		return "seconds"
	case Tenths:
		return "tenths"
	default:
		return "unknown"
	}
}

// Scope selects whether a unit shows a flattened total or a remainder.
type Scope uint8

const (
	// Modulo units drop the coarser units present in the template.
	Modulo Scope = iota
	// Total units never subtract anything.
	Total
)

type unitSet uint8

func (s unitSet) has(u Unit) bool {
	return s&(1<<u) != 0
}

func (s unitSet) with(u Unit) unitSet {
	return s | 1<<u
}

// coarserThan returns every unit larger than u.
func coarserThan(u Unit) unitSet {
	var s unitSet
	for c := Days; c < u; c++ {
		s = s.with(c)
	}
	return s
}

// Node is one element of a compiled pipeline. Only the fields relevant to Kind
// are set.
type Node struct {
	Kind     Kind
	Text     string
	Sign     SignMode
	Unit     Unit
	Scope    Scope
	Digits   int
	Children []Node

	// Resolved once per template after every directive is known.
	subtract  unitSet
	printSign bool
}

func literal(text string) Node {
	return Node{Kind: KindLiteral, Text: text}
}

// Render formats millis according to the node.
func (n Node) Render(millis int64) string {
	switch n.Kind {
	case KindLiteral:
		return n.Text
	case KindSign:
		return n.renderSign(millis)
	case KindUnit:
		return n.renderUnit(millis)
	case KindOptional:
		text := renderNodes(n.Children, millis)
		if text == renderNodes(n.Children, 0) {
			return ""
		}
		return text
	case KindExpr:
		return evalText(renderNodes(n.Children, millis))
	default:
		return ""
	}
}

// Precision returns the finest unit in milliseconds the node displays.
func (n Node) Precision() (int64, bool) {
	switch n.Kind {
	case KindUnit:
		return n.Unit.Millis(), true
	case KindOptional, KindExpr:
		return minPrecision(n.Children)
	default:
		return 0, false
	}
}

func (n Node) renderSign(millis int64) string {
	switch n.Sign {
	case SignMinus:
		if millis < 0 {
			return "-"
		}
		return ""
	case SignLoud:
		if millis < 0 {
			return "-"
		}
		return "+"
	default:
		return ""
	}
}

func (n Node) renderUnit(millis int64) string {
	m := absMillis(millis)
	if n.Scope == Modulo {
		for c := Days; c < n.Unit; c++ {
			if n.subtract.has(c) {
				m %= uint64(c.Millis())
			}
		}
	}
	value := m / uint64(n.Unit.Millis())
	digits := strconv.FormatUint(value, 10)
	if pad := n.Digits - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	if n.printSign && millis < 0 && value != 0 {
		return "-" + digits
	}
	return digits
}

func absMillis(millis int64) uint64 {
	if millis < 0 {
		return uint64(-(millis + 1)) + 1
	}
	return uint64(millis)
}

func renderNodes(nodes []Node, millis int64) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(n.Render(millis))
	}
	return b.String()
}

func minPrecision(nodes []Node) (int64, bool) {
	var best int64
	found := false
	for _, n := range nodes {
		p, ok := n.Precision()
		if !ok {
			continue
		}
		if !found || p < best {
			best = p
			found = true
		}
	}
	return best, found
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Children = cloneNodes(n.Children)
		out[i] = n
	}
	return out
}
