package model

import "errors"

var (
	// ErrNotFound is returned when a question ID does not exist.
	ErrNotFound = errors.New("question not found")
	// ErrForbidden is returned when a non-admin attempts an admin write.
	ErrForbidden = errors.New("admin privilege required")
	// ErrEmptyText is returned when a submission trims to nothing.
	ErrEmptyText = errors.New("text is empty")
	// ErrNoIdentity is returned when a write arrives without a verified identity.
	ErrNoIdentity = errors.New("identity required")
)

// IdentityError reports that the identity provider was unreachable or
// rejected the request.
type IdentityError struct {
	Op  string
	Err error
}

func (e *IdentityError) Error() string { return "identity " + e.Op + ": " + e.Err.Error() }
func (e *IdentityError) Unwrap() error { return e.Err }

// WriteError reports that the store rejected a create or update.
type WriteError struct {
	Op         string // "create" or "answer"
	QuestionID string
	Err        error
}

func (e *WriteError) Error() string {
	if e.QuestionID != "" {
		return e.Op + " " + e.QuestionID + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

// SyncError reports a failure of the live subscription transport.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string { return "sync: " + e.Err.Error() }
func (e *SyncError) Unwrap() error { return e.Err }
