// Package schema implements the process-wide Component Schema Registry
//: structural validation of component payloads via
// compiled JSON Schema documents, plus the handful of cross-field
// invariants JSON Schema alone cannot express (health <= maxHealth,
// min <= max component-wise).
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError names the offending field path so callers can render
// a precise rejection reason.
type ValidationError struct {
	Kind  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s component: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("invalid %s component: field %q: %s", e.Kind, e.Field, e.Msg)
}

type crossFieldCheck func(fields map[string]any) *ValidationError

// Registry compiles one JSON Schema per recognized component kind and
// is immutable after New, except for test-time registration
// (Register).
type Registry struct {
	schemas     map[string]*jsonschema.Schema
	crossChecks map[string]crossFieldCheck
	defaults    map[string]int
}

// New compiles the built-in kind schemas (schemas.go) into a ready
// Registry.
func New() (*Registry, error) {
	r := &Registry{
		schemas:     map[string]*jsonschema.Schema{},
		crossChecks: map[string]crossFieldCheck{},
		defaults:    map[string]int{},
	}
	for kind, def := range builtinDefaults {
		r.defaults[kind] = def
	}
	for kind, text := range builtinSchemas {
		if err := r.compile(kind, text); err != nil {
			return nil, err
		}
	}
	for kind, chk := range builtinCrossChecks {
		r.crossChecks[kind] = chk
	}
	return r, nil
}

func (r *Registry) compile(kind, schemaText string) error {
	c := jsonschema.NewCompiler()
	url := "mem://" + kind + ".schema.json"
	if err := c.AddResource(url, strings.NewReader(schemaText)); err != nil {
		return fmt.Errorf("schema: compile %s: %w", kind, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("schema: compile %s: %w", kind, err)
	}
	r.schemas[kind] = s
	return nil
}

func mustDecode(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		panic(err)
	}
	return v
}

// Register adds or replaces the schema for a kind at test time.
func (r *Registry) Register(kind, schemaText string, defaultCardinality int, check crossFieldCheck) error {
	if err := r.compile(kind, schemaText); err != nil {
		return err
	}
	r.defaults[kind] = defaultCardinality
	if check != nil {
		r.crossChecks[kind] = check
	}
	return nil
}

// Known reports whether kind has a compiled schema.
func (r *Registry) Known(kind string) bool {
	_, ok := r.schemas[kind]
	return ok
}

// Validate checks fields against the compiled schema for kind and any
// registered cross-field invariant. Validation failure is always
// client-visible; it is never downgraded to a warning.
func (r *Registry) Validate(kind string, fields map[string]any) error {
	s, ok := r.schemas[kind]
	if !ok {
		return &ValidationError{Kind: kind, Msg: "unknown component kind"}
	}
	// jsonschema wants JSON-native values; round-trip through
	// encoding/json so numeric types normalize to float64 the way a
	// value decoded off the wire would.
	b, err := json.Marshal(fields)
	if err != nil {
		return &ValidationError{Kind: kind, Msg: err.Error()}
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return &ValidationError{Kind: kind, Msg: err.Error()}
	}
	if err := s.Validate(doc); err != nil {
		return &ValidationError{Kind: kind, Field: firstInstancePath(err), Msg: err.Error()}
	}
	if chk := r.crossChecks[kind]; chk != nil {
		if verr := chk(fields); verr != nil {
			verr.Kind = kind
			return verr
		}
	}
	return nil
}

func firstInstancePath(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return ""
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if len(ve.InstanceLocation) == 0 {
		return ""
	}
	return joinPath(strings.Split(strings.TrimPrefix(ve.InstanceLocation, "/"), "/"))
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// MaxFor resolves the cardinality ceiling for kind: the entity's
// contract_limit override if present, else the global default, else
// unbounded (0 meaning unbounded).
func (r *Registry) MaxFor(contractLimit map[string]any, kind string) int {
	if contractLimit != nil {
		if raw, ok := contractLimit[kind]; ok {
			if n, ok := asPositiveInt(raw); ok {
				return n
			}
		}
	}
	return r.defaults[kind]
}

func asPositiveInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return int(n), true
		}
	case int:
		if n > 0 {
			return n, true
		}
	}
	return 0, false
}

// Kinds returns the recognized kinds in a stable order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
