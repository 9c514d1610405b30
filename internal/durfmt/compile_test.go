package durfmt

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	twoDaysThreeHours = 2*msDay + 3*msHour + 5*msMinute + 7*msSecond + 300
)

func format(t *testing.T, template string, millis int64) string {
	t.Helper()
	p, err := Compile(template)
	require.NoError(t, err)
	return p.Format(millis)
}

func TestSignDirectives(t *testing.T) {
	tests := []struct {
		template string
		millis   int64
		want     string
	}{
		{"%sign%S", -5000, "-5"},
		{"%sign%S", 5000, "5"},
		{"%SIGN%S", -5000, "-5"},
		{"%SIGN%S", 5000, "+5"},
		{"%SIGN%S", 0, "+0"},
		{"%nosign%S", -5000, "5"},
		{"%nosign%S", 5000, "5"},
		{"%{sign}%S", -5000, "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.template+"/"+strconv.FormatInt(tt.millis, 10), func(t *testing.T) {
			assert.Equal(t, tt.want, format(t, tt.template, tt.millis))
		})
	}
}

func TestUnitSignWithoutDirective(t *testing.T) {
	assert.Equal(t, "-5", format(t, "%S", -5000))
	assert.Equal(t, "0", format(t, "%S", -500), "zero value carries no sign")
	assert.Equal(t, "-1:-05", format(t, "%m:%ss", -65000))
	assert.Equal(t, "-1:05", format(t, "%sign%m:%ss", -65000))
}

func TestPresenceSensitiveDecomposition(t *testing.T) {
	assert.Equal(t, "51:05:07", format(t, "%h:%mm:%ss", twoDaysThreeHours))
	assert.Equal(t, "2 3:05:07", format(t, "%d %h:%mm:%ss", twoDaysThreeHours))
	assert.Equal(t, "3065", format(t, "%m", twoDaysThreeHours))
	assert.Equal(t, "3065:07", format(t, "%m:%ss", twoDaysThreeHours))
	assert.Equal(t, "73", format(t, "%ts", 7300))
	assert.Equal(t, "7.3", format(t, "%S.%ts", 7300))
	assert.Equal(t, "7.03", format(t, "%s.%tts", 7340))
}

func TestNeglectHigherUnits(t *testing.T) {
	p, err := CompileWithOptions("%h:%mm", Options{NeglectHigherUnits: true})
	require.NoError(t, err)
	assert.Equal(t, "3:05", p.Format(twoDaysThreeHours))

	p, err = CompileWithOptions("%ts", Options{NeglectHigherUnits: true})
	require.NoError(t, err)
	assert.Equal(t, "3", p.Format(7300))

	// Total units are unaffected by the flag.
	p, err = CompileWithOptions("%H", Options{NeglectHigherUnits: true})
	require.NoError(t, err)
	assert.Equal(t, "51", p.Format(twoDaysThreeHours))
}

func TestTotalUnits(t *testing.T) {
	assert.Equal(t, "51", format(t, "%H", twoDaysThreeHours))
	assert.Equal(t, "51 3065", format(t, "%H %M", twoDaysThreeHours))
	assert.Equal(t, "05", format(t, "%SS", 5000))
	assert.Equal(t, "2", format(t, "%D", twoDaysThreeHours))
	assert.Equal(t, "73", format(t, "%TS", 7300))
	assert.Equal(t, "07", format(t, "%TTS", 700))
}

func TestRoundTripDecomposition(t *testing.T) {
	p, err := Compile("%d|%h|%m|%s|%ts")
	require.NoError(t, err)

	values := []int64{0, 99, 100, 59_999, 60_000, 3_599_999, msDay - 1, msDay, twoDaysThreeHours, 987_654_321_012}
	for _, millis := range values {
		parts := strings.Split(p.Format(millis), "|")
		require.Len(t, parts, 5)
		weights := []int64{msDay, msHour, msMinute, msSecond, msTenth}
		var total int64
		for i, part := range parts {
			v, err := strconv.ParseInt(part, 10, 64)
			require.NoError(t, err)
			total += v * weights[i]
		}
		assert.Equal(t, millis-millis%msTenth, total, "millis=%d", millis)
	}
}

func TestOptionalCollapse(t *testing.T) {
	assert.Equal(t, "", format(t, "[%d]", 0))
	assert.Equal(t, "", format(t, "[%d]", 12*msHour))
	assert.Equal(t, "2", format(t, "[%d]", twoDaysThreeHours))
	assert.Equal(t, "22", format(t, "[%d%D]", twoDaysThreeHours))

	assert.Equal(t, "3:05", format(t, "[%d days ]%h:%mm", 3*msHour+5*msMinute))
	assert.Equal(t, "2 days 3:05", format(t, "[%d days ]%h:%mm", twoDaysThreeHours))
}

func TestOptionalNested(t *testing.T) {
	tpl := "[%H h [%m m]]"
	assert.Equal(t, "", format(t, tpl, 30*msSecond))
	assert.Equal(t, "0 h 5 m", format(t, tpl, 5*msMinute))
	assert.Equal(t, "2 h ", format(t, tpl, 2*msHour))
}

func TestBracedSpellings(t *testing.T) {
	assert.Equal(t, "2d 3h", format(t, "%{d}d %{h}h", twoDaysThreeHours))
	assert.Equal(t, "7s", format(t, "%{s}s", 7000))
	assert.Equal(t, "07", format(t, "%{ss}", 7000))
	assert.Equal(t, "2ays", format(t, "%{d}ays", twoDaysThreeHours))
}

func TestEscapedBrackets(t *testing.T) {
	assert.Equal(t, "[7]", format(t, `\[%s\]`, 7000))
	assert.Equal(t, "[2]", format(t, `[\[%d\]]`, twoDaysThreeHours))
	assert.Equal(t, "", format(t, `[\[%d\]]`, 0))
}

func TestBackslashBeforeBlock(t *testing.T) {
	assert.Equal(t, `\`, format(t, `\\[%d]`, 0))
	assert.Equal(t, `\2`, format(t, `\\[%d]`, twoDaysThreeHours))
	assert.Equal(t, `\[7]`, format(t, `\\\[%s\]`, 7000))
	assert.Equal(t, `a\b`, format(t, `a\\b`, 0))
}

func TestUnknownDirectivesAreLiteral(t *testing.T) {
	for _, tpl := range []string{"hello %x world", "100%", "%", "%q%z", "plain"} {
		p, err := Compile(tpl)
		require.NoError(t, err)
		for _, millis := range []int64{0, 1, -1, 7300, -65000, twoDaysThreeHours, math.MaxInt64} {
			assert.Equal(t, tpl, p.Format(millis))
		}
		_, ok := p.Precision()
		assert.False(t, ok)
		assert.Equal(t, DefaultTickInterval, p.TickInterval())
	}
}

func TestEmptyTemplate(t *testing.T) {
	p, err := Compile("")
	require.NoError(t, err)
	assert.Equal(t, "", p.Format(12345))
	assert.Empty(t, p.Nodes())
}

func TestCompileDeterministic(t *testing.T) {
	tpl := "%SIGN[%d days ]%hh:%mm:%ss.%ts %js{%S/2}"
	a, err := Compile(tpl)
	require.NoError(t, err)
	b, err := Compile(tpl)
	require.NoError(t, err)
	for _, millis := range []int64{0, 1, -1, 999, 7300, -65000, twoDaysThreeHours, -twoDaysThreeHours} {
		assert.Equal(t, a.Format(millis), b.Format(millis))
	}
	assert.Equal(t, a.Nodes(), b.Nodes())
}

func TestUnterminatedBlocks(t *testing.T) {
	for _, tpl := range []string{"%js{1+2", "[%d", "a [b [c] d", "%js{{1}"} {
		p, err := Compile(tpl)
		require.Error(t, err, tpl)
		assert.Nil(t, p)
		assert.True(t, IsCompileError(err))

		var ce *CompileError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, ErrCodeUnterminatedBlock, ce.Code)
	}
}

func TestNestingLimit(t *testing.T) {
	deep := strings.Repeat("[", 40) + "%s" + strings.Repeat("]", 40)

	_, err := Compile(deep)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeNestingTooDeep, ce.Code)

	p, err := CompileWithOptions(deep, Options{MaxDepth: 64})
	require.NoError(t, err)
	assert.Equal(t, "7", p.Format(7000))

	_, err = Compile(strings.Repeat("[", 32) + "%s" + strings.Repeat("]", 32))
	assert.NoError(t, err)
}

func TestSequentialBlocksCompileInLinearTime(t *testing.T) {
	const n = 20_000
	tpl := strings.Repeat("[x%s]", n) + strings.Repeat("%js{1}", n)

	start := time.Now()
	p, err := Compile(tpl)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Len(t, p.Nodes(), 2*n)
	assert.Equal(t, strings.Repeat("1", n), p.Format(0))
	assert.Equal(t, strings.Repeat("x7", n)+strings.Repeat("1", n), p.Format(7000))
}

func TestPrecision(t *testing.T) {
	tests := []struct {
		template string
		want     int64
	}{
		{"%h:%mm", msMinute},
		{"%s%ts", msTenth},
		{"[%tts]%s", msTenth},
		{"%js{%S}", msSecond},
		{"%D", msDay},
	}
	for _, tt := range tests {
		p, err := Compile(tt.template)
		require.NoError(t, err)
		got, ok := p.Precision()
		assert.True(t, ok, tt.template)
		assert.Equal(t, tt.want, got, tt.template)
	}
	assert.Equal(t, "100ms", MustCompile("%s.%ts").TickInterval().String())
}

func TestNodesIsCopy(t *testing.T) {
	p := MustCompile("[%d]%s")
	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, KindOptional, nodes[0].Kind)
	assert.Equal(t, KindUnit, nodes[1].Kind)

	nodes[0].Children[0].Unit = Seconds
	assert.Equal(t, Days, p.Nodes()[0].Children[0].Unit)
	assert.Equal(t, "[%d]%s", p.Template())
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("[") })
}

func TestExtremeValues(t *testing.T) {
	p := MustCompile("%d %hh:%mm:%ss.%ts")
	assert.NotPanics(t, func() {
		p.Format(math.MinInt64)
		p.Format(math.MaxInt64)
	})
	assert.Equal(t, "-106751991167", MustCompile("%D").Format(math.MinInt64))
}
