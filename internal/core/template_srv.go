package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// VariableValue is the current value of a dashboard variable. Multi-value
// variables hold more than one entry.
type VariableValue []string

// Variables maps variable names to their current values.
type Variables map[string]VariableValue

// NewVariableValue converts a decoded JSON or YAML value (string, number, bool
// or a list of those) into a VariableValue. Scoped variable objects of the
// form {"text": ..., "value": ...} contribute their value.
func NewVariableValue(v interface{}) VariableValue {
	switch v := v.(type) {
	case nil:
		return VariableValue{""}
	case map[string]interface{}:
		return NewVariableValue(v["value"])
	case []interface{}:
		values := make(VariableValue, 0, len(v))
		for _, item := range v {
			values = append(values, scalarString(item))
		}
		return values
	case []string:
		return append(VariableValue(nil), v...)
	default:
		return VariableValue{scalarString(v)}
	}
}

func scalarString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (v *VariableValue) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return err
	}
	*v = NewVariableValue(decoded)
	return nil
}

// TemplateSrv replaces variable references in query text:
// $name, ${name}, ${name:format}, [[name]] and [[name:format]].
// References to unknown variables are left as they are.
type TemplateSrv struct {
	variables Variables
}

var variablePattern = regexp.MustCompile(`\$(\w+)|\[\[(\w+?)(?::(\w+))?\]\]|\$\{(\w+)(?::([^\}]+))?\}`)

func NewTemplateSrv(variables Variables) *TemplateSrv {
	return &TemplateSrv{variables: variables}
}

// Replace expands target. Scoped variables take precedence over the
// service's own variables.
func (s *TemplateSrv) Replace(target string, scoped Variables) string {
	matches := variablePattern.FindAllStringSubmatchIndex(target, -1)
	if len(matches) == 0 {
		return target
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(target[last:m[0]])
		last = m[1]

		name, format := submatch(target, m, 1), ""
		if name == "" {
			name, format = submatch(target, m, 2), submatch(target, m, 3)
		}
		if name == "" {
			name, format = submatch(target, m, 4), submatch(target, m, 5)
		}

		value, ok := s.lookup(name, scoped)
		if !ok {
			b.WriteString(target[m[0]:m[1]])
			continue
		}
		b.WriteString(FormatValue(value, format))
	}
	b.WriteString(target[last:])
	return b.String()
}

func (s *TemplateSrv) lookup(name string, scoped Variables) (VariableValue, bool) {
	if v, ok := scoped[name]; ok {
		return v, true
	}
	v, ok := s.variables[name]
	return v, ok
}

func submatch(s string, m []int, group int) string {
	if m[2*group] < 0 {
		return ""
	}
	return s[m[2*group]:m[2*group+1]]
}

// FormatValue renders a variable value using one of the supported formats.
// An empty or unknown format renders single values raw and multiple values as
// a glob.
func FormatValue(value VariableValue, format string) string {
	if len(value) == 0 {
		return ""
	}

	switch format {
	case "raw", "csv":
		return strings.Join(value, ",")
	case "pipe":
		return strings.Join(value, "|")
	case "json":
		var b []byte
		if len(value) == 1 {
			b, _ = json.Marshal(value[0])
		} else {
			b, _ = json.Marshal([]string(value))
		}
		return string(b)
	case "singlequote":
		return quoteEach(value, "'")
	case "doublequote":
		return quoteEach(value, `"`)
	case "regex":
		escaped := make([]string, len(value))
		for i, v := range value {
			escaped[i] = regexp.QuoteMeta(v)
		}
		if len(escaped) == 1 {
			return escaped[0]
		}
		return "(" + strings.Join(escaped, "|") + ")"
	default:
		if len(value) == 1 {
			return value[0]
		}
		return "{" + strings.Join(value, ",") + "}"
	}
}

func quoteEach(value VariableValue, quote string) string {
	quoted := make([]string, len(value))
	for i, v := range value {
		quoted[i] = quote + strings.ReplaceAll(v, quote, `\`+quote) + quote
	}
	return strings.Join(quoted, ",")
}
