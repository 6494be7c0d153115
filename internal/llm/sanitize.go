package llm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

var reNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// blankValues are placeholders models print instead of null.
var blankValues = map[string]struct{}{
	"": {}, "null": {}, "none": {}, "n/a": {}, "na": {}, "-": {}, "--": {}, "?": {},
}

// SanitizeFragment coerces a decoded model reply towards FragmentSchema:
// missing or malformed family arrays become empty, non-object rows are
// dropped, unknown keys are removed, blank placeholders are removed and
// values are converted to the field's JSON type where that is unambiguous.
// It returns the keys it dropped as "family.field(reason)".
func SanitizeFragment(m map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(hvac.Families))
	var dropped []string

	for _, family := range hvac.Families {
		fields := familyFields[family]
		rows, ok := m[family].([]any)
		if !ok {
			if v, present := m[family]; present && v != nil {
				dropped = append(dropped, family+"(type)")
			}
			out[family] = []any{}
			continue
		}

		clean := make([]any, 0, len(rows))
		for _, row := range rows {
			rec, ok := row.(map[string]any)
			if !ok {
				dropped = append(dropped, family+"(row)")
				continue
			}
			r := make(map[string]any, len(rec))
			for key, v := range rec {
				kind, known := fields[key]
				if !known {
					dropped = append(dropped, fmt.Sprintf("%s.%s(unknown)", family, key))
					continue
				}
				if v == nil {
					continue
				}
				cv, ok := coerce(v, kind)
				if !ok {
					dropped = append(dropped, fmt.Sprintf("%s.%s(%v)", family, key, v))
					continue
				}
				if cv != nil {
					r[key] = cv
				}
			}
			clean = append(clean, r)
		}
		out[family] = clean
	}
	return out, dropped
}

// coerce converts v to kind. A nil result with ok=true means "treat as null".
func coerce(v any, kind fieldKind) (any, bool) {
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		if _, blank := blankValues[strings.ToLower(s)]; blank {
			return nil, true
		}
		v = s
	}

	switch kind {
	case kindString:
		switch t := v.(type) {
		case string:
			return t, true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	case kindInt:
		if f, ok := number(v); ok {
			return int64(math.Round(f)), true
		}
	case kindFloat:
		if f, ok := number(v); ok {
			return f, true
		}
	case kindBool:
		switch t := v.(type) {
		case bool:
			return t, true
		case float64:
			return t != 0, true
		case string:
			switch strings.ToLower(t) {
			case "true", "yes", "y", "x":
				return true, true
			case "false", "no", "n":
				return false, true
			}
		}
	}
	return nil, false
}

// number reads a JSON number or the first number in a string such as
// "1,200 CFM" or "4.0 kW".
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		match := reNumber.FindString(strings.ReplaceAll(t, ",", ""))
		if match == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(match, 64)
		return f, err == nil
	}
	return 0, false
}
