package export

import (
	"errors"
	"fmt"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

// Error reports a failed export. The output path never holds a partial file.
type Error struct {
	Format Format
	Path   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Format, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
