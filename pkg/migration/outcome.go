package migration

// Outcome is the result of migrating one file.
type Outcome struct {
	// ID is the file identifier
	ID string

	// From and To are the absolute paths before and after the move. They
	// are empty when the failure happened before they were known.
	From string
	To   string

	// Err is nil when the file was moved
	Err *RecordError
}

// Moved reports whether the file was moved.
func (o Outcome) Moved() bool {
	return o.Err == nil
}

// Stage returns the failing stage, or 0 for a moved file.
func (o Outcome) Stage() Stage {
	if o.Err == nil {
		return 0
	}
	return o.Err.Stage
}

func failed(id, path string, stage Stage, err error) Outcome {
	return Outcome{ID: id, Err: &RecordError{Stage: stage, ID: id, Path: path, Err: err}}
}
