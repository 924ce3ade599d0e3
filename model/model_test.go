package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFitsMoney(t *testing.T) {
	cases := map[string]bool{
		"10":      true,
		"10.5":    true,
		"-3.25":   true,
		"0.005":   false,
		"1.234":   false,
		"12.3400": true,
	}
	for in, want := range cases {
		if got := FitsMoney(decimal.RequireFromString(in)); got != want {
			t.Errorf("FitsMoney(%s)=%v want=%v", in, got, want)
		}
	}
}
