package db

import (
	"errors"
	"fmt"
)

// ErrMissing : the requested record does not exist.
var ErrMissing = errors.New("missing")

// ErrDisabled : the repository is soft-deleted and admits no pipelines.
var ErrDisabled = errors.New("repository is disabled")

// ErrConflict : an insert collided with an existing record.
var ErrConflict = errors.New("conflict")

// ErrIllegalTransition : a status update would leave a terminal state or
// skip over one.
var ErrIllegalTransition = errors.New("illegal status transition")

// Missing identifies which record was not found.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return ErrMissing
}

// Conflict identifies which record an insert collided with.
type Conflict struct {
	Table    string
	Identity string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("%s already exists in %s", c.Identity, c.Table)
}

func (c Conflict) Unwrap() error {
	return ErrConflict
}
