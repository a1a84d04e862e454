package store

import "fmt"

// Sentinel-style error kinds surfaced to callers
// Each carries enough context to render a *_FAILED reply without the
// session layer needing to re-derive it.

type UnknownEntityError struct{ EntityID string }

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("store: unknown entity %q", e.EntityID)
}

type AlreadyExistsError struct{ EntityID string }

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("store: entity %q already exists", e.EntityID)
}

type InvalidComponentError struct {
	Kind  string
	Field string
	Msg   string
}

func (e *InvalidComponentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("store: invalid %s component: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("store: invalid %s component: field %q: %s", e.Kind, e.Field, e.Msg)
}

type LimitExceededError struct {
	Kind string
	Max  int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("store: cardinality limit exceeded for kind %q (max %d)", e.Kind, e.Max)
}

type UnknownKindError struct{ Kind string }

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("store: unrecognized component kind %q", e.Kind)
}
