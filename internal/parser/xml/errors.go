package xmlparser

import (
	"errors"
	"fmt"
)

// ErrSourceNotFound is returned by Open when the input path does not exist.
// It is reported before any byte is decoded.
var ErrSourceNotFound = errors.New("source not found")

// DecodeError reports malformed compressed or XML data. It is fatal for the
// stream that produced it; no partial element is recovered.
type DecodeError struct {
	Tag    string // element tag being streamed
	Offset int64  // decoder input offset when the error surfaced
	Index  int    // number of elements yielded before the failure
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode <%s> at offset %d after %d elements: %v", e.Tag, e.Offset, e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
