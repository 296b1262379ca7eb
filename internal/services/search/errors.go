package search

import (
	"errors"
	"fmt"
)

// RemoteError is a failed remote call during a run. Partial reports whether
// results were still accumulated, which callers use to choose between
// "show what we have with a warning" and "nothing to show".
type RemoteError struct {
	Op      string // search.list or videos.list
	Page    int
	Partial bool
	Err     error
}

func (e *RemoteError) Error() string {
	state := "no results"
	if e.Partial {
		state = "partial results"
	}
	return fmt.Sprintf("%s failed on page %d (%s): %v", e.Op, e.Page, state, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func (e *RemoteError) withPartial(partial bool) *RemoteError {
	if e != nil {
		e.Partial = partial
	}
	return e
}

// orNil keeps a nil *RemoteError from becoming a non-nil error interface.
func (e *RemoteError) orNil() error {
	if e == nil {
		return nil
	}
	return e
}

// IsPartial reports whether err is a RemoteError that still left results.
func IsPartial(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Partial
}

// IsRemote reports whether err came from the remote API.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
