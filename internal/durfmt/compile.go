package durfmt

import (
	"regexp"
	"strings"
	"time"
)

// DefaultMaxDepth bounds block nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 32

// DefaultTickInterval is used for templates without any unit directive.
const DefaultTickInterval = time.Second

// Options tunes compilation.
type Options struct {
	// NeglectHigherUnits makes every modulo unit drop all coarser units, even the
	// ones the template doesn't show. With 2 days left %h then reads 0 instead of 48.
	NeglectHigherUnits bool

	// MaxDepth limits nesting of %js{} and [] blocks.
	MaxDepth int
}

// Pipeline is a compiled template. It is immutable and safe for concurrent use.
type Pipeline struct {
	template     string
	nodes        []Node
	precision    int64
	hasPrecision bool
}

// Compile compiles template with default options.
func Compile(template string) (*Pipeline, error) {
	return CompileWithOptions(template, Options{})
}

// MustCompile is like Compile but panics on error.
func MustCompile(template string) *Pipeline {
	p, err := Compile(template)
	if err != nil {
		panic("durfmt: Compile(" + template + "): " + err.Error())
	}
	return p
}

// CompileWithOptions turns template into a pipeline. Unknown directives are kept
// as literal text; only unterminated or too deeply nested blocks fail.
// \[ and \] are literal brackets and \\ is a literal backslash.
func CompileWithOptions(template string, opts Options) (*Pipeline, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	c := &compiler{opts: opts}
	nodes, err := c.compileBlock(template, 0)
	if err != nil {
		return nil, err
	}
	unescapeLiterals(nodes)

	present := presentUnits(nodes)
	resolveUnits(nodes, present, opts.NeglectHigherUnits, !containsSign(nodes))

	p := &Pipeline{template: template, nodes: nodes}
	p.precision, p.hasPrecision = minPrecision(nodes)
	return p, nil
}

// Format renders millis, which may be negative.
func (p *Pipeline) Format(millis int64) string {
	return renderNodes(p.nodes, millis)
}

// Precision returns the finest unit the template displays, in milliseconds.
// ok is false for templates without unit directives.
func (p *Pipeline) Precision() (millis int64, ok bool) {
	return p.precision, p.hasPrecision
}

// TickInterval returns how often a live display of this template must refresh.
func (p *Pipeline) TickInterval() time.Duration {
	if !p.hasPrecision {
		return DefaultTickInterval
	}
	return time.Duration(p.precision) * time.Millisecond
}

// Template returns the source template.
func (p *Pipeline) Template() string {
	return p.template
}

// Nodes returns a copy of the compiled nodes.
func (p *Pipeline) Nodes() []Node {
	return cloneNodes(p.nodes)
}

type compiler struct {
	opts Options
}

// matcher consumes the tokens it recognizes in text. ok is false when text
// holds none of them.
type matcher func(c *compiler, text string, depth int) (nodes []Node, ok bool, err error)

var matchers []matcher

// Order is precedence. Blocks come first so a directive matcher never splits
// a block in half, and %sign must be tried before %s. Assigned in init because
// the block matchers recurse into compile.
func init() {
	matchers = []matcher{
		matchBlocks,
		directiveMatcher(signDirectives, "nosign", "sign", "SIGN"),
		directiveMatcher(unitDirectives, "tts", "TTS", "ts", "TS"),
		directiveMatcher(unitDirectives, "ss", "SS", "s", "S"),
		directiveMatcher(unitDirectives, "mm", "MM", "m", "M"),
		directiveMatcher(unitDirectives, "hh", "HH", "h", "H"),
		directiveMatcher(unitDirectives, "d", "D"),
	}
}

// compile runs the first matcher that recognizes something in text and then
// recompiles every literal it left behind. ok is false when nothing matched.
func (c *compiler) compile(text string, depth int) ([]Node, bool, error) {
	for _, m := range matchers {
		nodes, ok, err := m(c, text, depth)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		out := make([]Node, 0, len(nodes))
		for _, n := range nodes {
			if n.Kind != KindLiteral {
				out = append(out, n)
				continue
			}
			if n.Text == "" {
				continue
			}
			sub, matched, err := c.compile(n.Text, depth)
			if err != nil {
				return nil, false, err
			}
			if matched {
				out = append(out, sub...)
			} else {
				out = append(out, n)
			}
		}
		return out, true, nil
	}
	return nil, false, nil
}

// compileBlock compiles text that always yields nodes, falling back to a single literal.
func (c *compiler) compileBlock(text string, depth int) ([]Node, error) {
	if depth > c.opts.MaxDepth {
		return nil, newNestingError(c.opts.MaxDepth, text)
	}
	nodes, matched, err := c.compile(text, depth)
	if err != nil {
		return nil, err
	}
	if matched {
		return nodes, nil
	}
	if text == "" {
		return nil, nil
	}
	return []Node{literal(text)}, nil
}

const exprOpen = "%js{"

// matchBlocks splits every top-level %js{} and [] block out of text in one
// left-to-right pass. Only block bodies are compiled further, one level deeper.
func matchBlocks(c *compiler, text string, depth int) ([]Node, bool, error) {
	var nodes []Node
	prev := 0
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\\':
			i++
		case text[i] == '[':
			end := closingIndex(text, i, '[', ']', true)
			if end < 0 {
				return nil, false, newUnterminatedError("[", text[i:])
			}
			children, err := c.compileBlock(text[i+1:end], depth+1)
			if err != nil {
				return nil, false, err
			}
			nodes = append(nodes, literal(text[prev:i]), Node{Kind: KindOptional, Children: children})
			prev, i = end+1, end
		case strings.HasPrefix(text[i:], exprOpen):
			brace := i + len(exprOpen) - 1
			end := closingIndex(text, brace, '{', '}', false)
			if end < 0 {
				return nil, false, newUnterminatedError(exprOpen, text[i:])
			}
			children, err := c.compileBlock(text[brace+1:end], depth+1)
			if err != nil {
				return nil, false, err
			}
			nodes = append(nodes, literal(text[prev:i]), Node{Kind: KindExpr, Children: children})
			prev, i = end+1, end
		}
	}
	if nodes == nil {
		return nil, false, nil
	}
	return append(nodes, literal(text[prev:])), true, nil
}

// closingIndex returns the index of the bracket closing the one at open, or -1.
// With escapes set, a backslash makes the next byte literal.
func closingIndex(text string, open int, left, right byte, escapes bool) int {
	depth := 0
	for i := open; i < len(text); i++ {
		if escapes && text[i] == '\\' {
			i++
			continue
		}
		switch text[i] {
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var signDirectives = map[string]Node{
	"sign":   {Kind: KindSign, Sign: SignMinus},
	"SIGN":   {Kind: KindSign, Sign: SignLoud},
	"nosign": {Kind: KindSign, Sign: SignNone},
}

var unitDirectives = map[string]Node{
	"ts":  unitDirective(Tenths, Modulo, 1),
	"tts": unitDirective(Tenths, Modulo, 2),
	"TS":  unitDirective(Tenths, Total, 1),
	"TTS": unitDirective(Tenths, Total, 2),
	"s":   unitDirective(Seconds, Modulo, 1),
	"ss":  unitDirective(Seconds, Modulo, 2),
	"S":   unitDirective(Seconds, Total, 1),
	"SS":  unitDirective(Seconds, Total, 2),
	"m":   unitDirective(Minutes, Modulo, 1),
	"mm":  unitDirective(Minutes, Modulo, 2),
	"M":   unitDirective(Minutes, Total, 1),
	"MM":  unitDirective(Minutes, Total, 2),
	"h":   unitDirective(Hours, Modulo, 1),
	"hh":  unitDirective(Hours, Modulo, 2),
	"H":   unitDirective(Hours, Total, 1),
	"HH":  unitDirective(Hours, Total, 2),
	"d":   unitDirective(Days, Total, 1),
	"D":   unitDirective(Days, Total, 1),
}

func unitDirective(u Unit, scope Scope, digits int) Node {
	return Node{Kind: KindUnit, Unit: u, Scope: scope, Digits: digits}
}

// directiveMatcher matches %name and %{name} for the given names. Names must be
// listed longest first: the regexp picks the first alternative that matches.
func directiveMatcher(table map[string]Node, names ...string) matcher {
	alts := make([]string, 0, len(names)*2)
	for _, name := range names {
		alts = append(alts, `%\{`+regexp.QuoteMeta(name)+`\}`)
	}
	for _, name := range names {
		alts = append(alts, "%"+regexp.QuoteMeta(name))
	}
	re := regexp.MustCompile(strings.Join(alts, "|"))

	return func(_ *compiler, text string, _ int) ([]Node, bool, error) {
		locs := re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			return nil, false, nil
		}
		nodes := make([]Node, 0, len(locs)*2+1)
		prev := 0
		for _, loc := range locs {
			nodes = append(nodes, literal(text[prev:loc[0]]))
			name := strings.Trim(text[loc[0]+1:loc[1]], "{}")
			nodes = append(nodes, table[name])
			prev = loc[1]
		}
		nodes = append(nodes, literal(text[prev:]))
		return nodes, true, nil
	}
}

var bracketEscapes = strings.NewReplacer(`\\`, `\`, `\[`, "[", `\]`, "]")

func unescapeLiterals(nodes []Node) {
	for i := range nodes {
		if nodes[i].Kind == KindLiteral {
			nodes[i].Text = bracketEscapes.Replace(nodes[i].Text)
		}
		unescapeLiterals(nodes[i].Children)
	}
}

func presentUnits(nodes []Node) unitSet {
	var s unitSet
	for _, n := range nodes {
		if n.Kind == KindUnit {
			s = s.with(n.Unit)
		}
		s |= presentUnits(n.Children)
	}
	return s
}

func containsSign(nodes []Node) bool {
	for _, n := range nodes {
		if n.Kind == KindSign || containsSign(n.Children) {
			return true
		}
	}
	return false
}

func resolveUnits(nodes []Node, present unitSet, neglect, printSign bool) {
	for i := range nodes {
		n := &nodes[i]
		if n.Kind == KindUnit {
			n.printSign = printSign
			if n.Scope == Modulo {
				n.subtract = coarserThan(n.Unit)
				if !neglect {
					n.subtract &= present
				}
			}
		}
		resolveUnits(n.Children, present, neglect, printSign)
	}
}
