package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrStructural classifies plan responses rejected as a whole.
var ErrStructural = errors.New("structurally invalid plan")

// StructuralError describes why a plan response was rejected.
type StructuralError struct {
	Agent  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("plan from %q: %s", e.Agent, e.Reason)
}

// Is matches ErrStructural.
func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

// Plan is a validated plan response: one action per key, in key order.
type Plan struct {
	Agent   string
	Actions []Action
}

// Kinds returns the planned kinds in response order.
func (p Plan) Kinds() []Kind {
	out := make([]Kind, 0, len(p.Actions))
	for _, a := range p.Actions {
		out = append(out, a.Kind)
	}
	return out
}

// StripCodeFence unwraps a markdown ```json block, or a bare ``` block,
// that is the whole response. Anything else, including prose around a
// fence, is returned trimmed and unchanged.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) < 6 || !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s
	}
	body := s[3 : len(s)-3]
	if rest, ok := strings.CutPrefix(body, "json"); ok && (rest == "" || rest[0] == '\n' || rest[0] == ' ' || rest[0] == '\r') {
		body = rest
	}
	if strings.Contains(body, "```") {
		return s
	}
	return strings.TrimSpace(body)
}

// ParsePlan validates an LLM response against permitted and returns its actions.
//
// The response must be a single JSON object whose keys are permitted kinds,
// appear at most once, and map to arrays of strings. Values of targeted
// kinds must each have the "@target>message" form.
//
// Postcondition: Returns a Plan, or an error matching ErrStructural.
func ParsePlan(agent, raw string, permitted Set) (Plan, error) {
	fail := func(format string, args ...any) (Plan, error) {
		return Plan{}, &StructuralError{Agent: agent, Reason: fmt.Sprintf(format, args...)}
	}

	body := StripCodeFence(raw)
	if body == "" {
		return fail("empty response")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return fail("not JSON: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fail("top-level value is not an object")
	}

	plan := Plan{Agent: agent}
	seen := make(map[Kind]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fail("reading key: %v", err)
		}
		key, _ := tok.(string)
		kind := Kind(key)
		if !permitted[kind] {
			return fail("action %q is not permitted", key)
		}
		if seen[kind] {
			return fail("action %q repeated", key)
		}
		seen[kind] = true

		values, err := readStringArray(dec)
		if err != nil {
			return fail("action %q: %v", key, err)
		}
		if kind.Targeted() {
			for _, v := range values {
				if _, _, ok := ParseTargetMessage(v); !ok {
					return fail("action %q: value %q lacks @target%smessage", key, v, Separator)
				}
			}
		}
		plan.Actions = append(plan.Actions, Action{Kind: kind, Source: agent, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return fail("unterminated object: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fail("trailing data after object")
	}
	return plan, nil
}

func readStringArray(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.New("value is not an array")
	}
	values := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		s, ok := tok.(string)
		if !ok {
			return nil, errors.New("array element is not a string")
		}
		values = append(values, s)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return values, nil
}
