package util

import (
	"regexp"
	"strconv"
	"strings"
)

var amountRegex = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// ParseAmount extracts the first decimal amount from a price string such as
// "₹1,299.00" or "$ 19.99". Thousands separators are dropped. ok is false when
// no number can be found.
func ParseAmount(s string) (float64, bool) {
	m := amountRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SplitList splits a comma separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
