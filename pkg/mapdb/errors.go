package mapdb

import (
	"errors"
	"fmt"
)

// ErrUnsupportedSchema is returned when a persisted document declares a
// schema version this build does not know how to load.
var ErrUnsupportedSchema = errors.New("unsupported schema version")

// IntegrityError reports a world-consistency violation: a dangling exit
// target, a duplicate label, or a label pointing at a missing room. Edits
// that would introduce one are rejected before commit.
type IntegrityError struct {
	Vnum   string
	Detail string
}

func (e *IntegrityError) Error() string {
	if e.Vnum != "" {
		return fmt.Sprintf("integrity error in room %s: %s", e.Vnum, e.Detail)
	}
	return fmt.Sprintf("integrity error: %s", e.Detail)
}

// SchemaError reports a corrupt or invalid persisted map/labels file. Fatal
// to loading that file, never to the proxy itself.
type SchemaError struct {
	Path   string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: %s", e.Path, e.Detail)
}
