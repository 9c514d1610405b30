package durfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1+2", 3},
		{" 1 + 2 * 3 ", 7},
		{"(1+2)*3", 9},
		{"10/4", 2.5},
		{"-3", -3},
		{"--3", 3},
		{"+4-1", 3},
		{"2*-3", -6},
		{"1.5*2", 3},
		{".5+.25", 0.75},
		{"8/2/2", 2},
		{"10-3-2", 5},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Evaluate(tt.src)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, src := range []string{"", "1+", "(1", "1)", "1/0", "2*(3-3)/1/0", "abc", "1 2", "Math.floor(1)", "1..2", "{1}"} {
		_, err := Evaluate(src)
		assert.Error(t, err, "%q", src)
	}

	_, err := Evaluate(strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100))
	assert.ErrorIs(t, err, errExprTooDeep)

	_, err = Evaluate("1/0")
	assert.ErrorIs(t, err, errDivisionByZero)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", formatNumber(3))
	assert.Equal(t, "-10", formatNumber(-10))
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "1.25", formatNumber(1.25))
	assert.Equal(t, "0.1", formatNumber(0.1))
	assert.Equal(t, "1000000000000000", formatNumber(1e15))
}

func TestExprBlock(t *testing.T) {
	assert.Equal(t, "10", format(t, "%js{%S*2}", 5000))
	assert.Equal(t, "-10", format(t, "%js{%S*2}", -5000))
	assert.Equal(t, "10", format(t, "%sign%js{%S*2}", -5000)[1:])
	assert.Equal(t, "1.25", format(t, "%js{%S/4}", 5000))
	assert.Equal(t, "120", format(t, "%js{(%M+1)*60}", 90_000))
	assert.Equal(t, "t-3}", format(t, "t-%js{1+2}}", 0))
	assert.Equal(t, "[5]", format(t, `\[%js{%S}\]`, 5000))
}

func TestExprBlockFailureRendersPlaceholder(t *testing.T) {
	p, err := Compile("left %js{%S/0} right")
	require.NoError(t, err)
	assert.Equal(t, "left "+ExprErrorText+" right", p.Format(5000))

	p, err = Compile("%js{Date.now()}")
	require.NoError(t, err)
	assert.Equal(t, ExprErrorText, p.Format(0))
}

func TestExprInsideOptional(t *testing.T) {
	tpl := "[%js{%H*60} min]"
	assert.Equal(t, "", format(t, tpl, 30*msMinute))
	assert.Equal(t, "120 min", format(t, tpl, 2*msHour))
}
