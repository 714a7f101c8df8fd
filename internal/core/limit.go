package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Limit is a numeric setting with JavaScript number semantics. It may hold NaN
// when the operator typed something that is not a number.
type Limit float64

// ParseLimit parses text the way parseInt(text, 10) does: leading whitespace
// and an optional sign are skipped, then the longest run of decimal digits is
// read. Text without leading digits yields NaN.
func ParseLimit(text string) Limit {
	s := strings.TrimLeftFunc(text, isJSSpace)

	sign := 1.0
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return Limit(math.NaN())
	}

	// digits only: the one possible error is out of range, which already yields +Inf
	v, _ := strconv.ParseFloat(s[:end], 64)
	return Limit(sign * v)
}

// isJSSpace reports whether r is ECMAScript WhiteSpace or LineTerminator.
// unicode.IsSpace is wider: it also accepts U+0085.
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func (l Limit) IsNaN() bool {
	return math.IsNaN(float64(l))
}

func (l Limit) String() string {
	f := float64(l)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON writes NaN and infinities as null, like JSON.stringify.
func (l Limit) MarshalJSON() ([]byte, error) {
	f := float64(l)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func (l *Limit) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*l = Limit(f)
	return nil
}
