package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinOptions = 2
	MaxOptions = 6
)

// NormalizeOptions trims every option and checks the option-list rules:
// 2..6 entries, none blank, no duplicates after trimming (case-sensitive).
func NormalizeOptions(options []string) ([]string, error) {
	if len(options) < MinOptions || len(options) > MaxOptions {
		return nil, Invalid("Options must be between 2 and 6")
	}
	out := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		t := strings.TrimSpace(o)
		if t == "" {
			return nil, Invalid("All options must be non-empty")
		}
		if _, dup := seen[t]; dup {
			return nil, Invalid("Options must be unique (no duplicates)")
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// CheckCorrectAnswer verifies that answer is one of options.
func CheckCorrectAnswer(options []string, answer string) error {
	for _, o := range options {
		if o == answer {
			return nil
		}
	}
	return Invalid("correct_answer must be one of the options")
}

// CheckPoints enforces points >= 1.
func CheckPoints(points int) error {
	if points < 1 {
		return Invalid("points must be at least 1")
	}
	return nil
}

// Percent returns part/whole*100 rounded to two decimals, or 0 when whole is 0.
func Percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		Round(2).
		InexactFloat64()
}

// Round2 rounds f to two decimals.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
