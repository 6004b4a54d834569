package editor

import (
	"go.uber.org/zap"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
)

// Field is an input field of a session that can hold focus.
type Field int

const (
	FieldText Field = iota
	FieldSpoiler
)

func (f Field) String() string {
	if f == FieldSpoiler {
		return "spoiler"
	}
	return "text"
}

// Target is a focusable field of one session.
type Target struct {
	SessionID string
	Field     Field
}

// Focus tracks the single active field across all sessions of a thread.
// There is one Focus per composition window; get it from Thread.Focus.
//
// Assigning a session the thread does not hold is a caller bug. In strict
// mode Assign panics with a KindNotFound error. Otherwise it logs a warning
// and leaves the current target untouched.
type Focus struct {
	target   Target
	set      bool
	contains func(sessionID string) bool
	strict   bool
	logger   *zap.Logger
}

// Assign makes (sessionID, field) the only active target.
func (f *Focus) Assign(sessionID string, field Field) {
	if f.contains != nil && !f.contains(sessionID) {
		err := cerrors.SessionNotFound("editor.Focus.Assign", sessionID)
		if f.strict {
			panic(err)
		}
		f.logger.Warn("focus assign ignored", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	f.target = Target{SessionID: sessionID, Field: field}
	f.set = true
}

func (f *Focus) Clear() {
	f.target = Target{}
	f.set = false
}

// Active returns the current target, if any.
func (f *Focus) Active() (Target, bool) {
	return f.target, f.set
}

func (f *Focus) IsActive(sessionID string, field Field) bool {
	return f.set && f.target.SessionID == sessionID && f.target.Field == field
}

// IsSessionActive reports whether any field of the session has focus. Hosts
// dim the sessions for which this is false.
func (f *Focus) IsSessionActive(sessionID string) bool {
	return f.set && f.target.SessionID == sessionID
}

// clearSession drops the target if it belongs to sessionID.
func (f *Focus) clearSession(sessionID string) bool {
	if f.IsSessionActive(sessionID) {
		f.Clear()
		return true
	}
	return false
}
