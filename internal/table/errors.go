package table

import "fmt"

// FormatError indicates the structural layout of a source file does not
// match what the pipeline expects: wrong number of header rows, inconsistent
// field counts, unparseable delimited text. It aborts the stage.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("format error: %s", e.Msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// SchemaError indicates an expected named column is absent from a source
// table. It aborts the stage.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing required column %q", e.Column)
}
