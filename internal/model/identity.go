package model

import "time"

// Identity is a stable viewer identity issued by the identity provider.
type Identity struct {
	UID       string    `json:"uid"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewerSession is the per-process view of who is looking at the board.
// It is computed once at startup and passed explicitly to every component
// that gates on admin privilege.
type ViewerSession struct {
	Identity *Identity
	IsAdmin  bool
}

// NewViewerSession derives the session for id. Admin privilege requires an
// exact match against adminUID; an empty adminUID never grants it.
func NewViewerSession(id *Identity, adminUID string) ViewerSession {
	s := ViewerSession{Identity: id}
	if id != nil && adminUID != "" && id.UID == adminUID {
		s.IsAdmin = true
	}
	return s
}

// UID returns the session identity's UID or "" when unresolved.
func (s ViewerSession) UID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UID
}
