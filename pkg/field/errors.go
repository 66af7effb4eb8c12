package field

import (
	"errors"
	"fmt"
)

// ErrBinding reports a dot-path that cannot be written because a parent
// segment is missing or not a record. It means the schema and the data
// disagree and there is no safe recovery.
var ErrBinding = errors.New("field: binding error")

// BindingError carries the path that failed to bind.
type BindingError struct {
	Path string
	Op   string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("field: cannot %s %q: parent segment missing or not a record", e.Op, e.Path)
}

// Is lets errors.Is match ErrBinding.
func (e *BindingError) Is(target error) bool {
	return target == ErrBinding
}
