package record

import "fmt"

// FieldNotFoundError reports an access to a field path that does not exist.
type FieldNotFoundError struct {
	Path string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field not found: %s", e.Path)
}

// FieldLockedError reports an attempt to overwrite a locked field.
type FieldLockedError struct {
	Path string
}

func (e *FieldLockedError) Error() string {
	return fmt.Sprintf("field is locked: %s", e.Path)
}
