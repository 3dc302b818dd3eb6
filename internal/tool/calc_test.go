package tool_test

import (
	"math"
	"testing"

	"github.com/zcox/messagedb-agent/internal/tool"
)

func TestCalculateArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2 + 3", 5},
		{"55 + 10", 65},
		{"10 * (5 - 2)", 30},
		{"2 ** 8", 256},
		{"-5 + 3", -2},
		{"+7", 7},
		{"7 / 2", 3.5},
		{"7 // 2", 3},
		{"-7 // 2", -4},
		{"7 % 3", 1},
		{"-7 % 3", 2},
		{"2 ** -1", 0.5},
		{"-2 ** 2", -4},
		{"2 ** 3 ** 2", 512},
		{"1.5 * 4", 6},
		{"((1 + 2) * (3 + 4))", 21},
		{"1 - 2 - 3", -4},
	}

	for _, tc := range cases {
		got, err := tool.Calculate(tc.expr)
		if err != nil {
			t.Errorf("Calculate(%q): %v", tc.expr, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Calculate(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

// Anything that is not pure arithmetic must fail at parse time, never
// evaluate.
func TestCalculateRejectsNonArithmetic(t *testing.T) {
	exprs := []string{
		"__import__('os').system('ls')",
		"import os",
		"exec('1')",
		"abs(-1)",
		"x + 1",
		"1; 2",
		"'a' + 'b'",
		"\"text\"",
		"1 if 2 else 3",
		"lambda: 1",
		"a.b",
		"[1,2]",
		"{}",
		"1 & 2",
		"1 | 2",
		"1 << 2",
		"~1",
		"1 == 1",
	}

	for _, expr := range exprs {
		if got, err := tool.Calculate(expr); err == nil {
			t.Errorf("Calculate(%q) = %v, want error", expr, got)
		}
	}
}

func TestCalculateRejectsMalformedSyntax(t *testing.T) {
	for _, expr := range []string{"", "   ", "1 +", "(1 + 2", "1 + 2)", "* 3", "1..2", "()"} {
		if got, err := tool.Calculate(expr); err == nil {
			t.Errorf("Calculate(%q) = %v, want error", expr, got)
		}
	}
}

func TestCalculateDivisionByZero(t *testing.T) {
	for _, expr := range []string{"1 / 0", "1 // 0", "1 % 0", "1 / (2 - 2)"} {
		if got, err := tool.Calculate(expr); err == nil {
			t.Errorf("Calculate(%q) = %v, want division by zero error", expr, got)
		}
	}
}
