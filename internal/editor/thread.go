package editor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikequentel/threadcomposer/internal/budget"
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// Thread owns the ordered sessions of one composition window: the main
// session first, then follow-ups in creation order. It also owns the
// window's Focus.
type Thread struct {
	sessions []*Session
	focus    *Focus
	logger   *zap.Logger
	closed   bool
}

type ThreadOption func(*Thread)

func WithLogger(l *zap.Logger) ThreadOption {
	return func(t *Thread) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithStrictFocus makes focus contract violations panic.
func WithStrictFocus(strict bool) ThreadOption {
	return func(t *Thread) { t.focus.strict = strict }
}

// NewThread starts a thread around a main session created by NewSession.
func NewThread(main *Session, opts ...ThreadOption) (*Thread, error) {
	const op cerrors.Op = "editor.NewThread"
	switch {
	case main == nil:
		return nil, cerrors.E(op, cerrors.KindInvalid, "main session is nil")
	case !main.main:
		return nil, cerrors.E(op, cerrors.KindInvalid, "session is a follow-up")
	case main.closed:
		return nil, cerrors.SessionClosed(op, main.id)
	}

	t := &Thread{
		sessions: []*Session{main},
		logger:   zap.NewNop(),
	}
	t.focus = &Focus{contains: t.has}
	for _, opt := range opts {
		opt(t)
	}
	t.focus.logger = t.logger
	return t, nil
}

func (t *Thread) Main() *Session { return t.sessions[0] }
func (t *Thread) Focus() *Focus  { return t.focus }
func (t *Thread) Len() int       { return len(t.sessions) }
func (t *Thread) Closed() bool   { return t.closed }

// Sessions returns the sessions in order, main first.
func (t *Thread) Sessions() []*Session {
	out := make([]*Session, len(t.sessions))
	copy(out, t.sessions)
	return out
}

func (t *Thread) Session(id string) (*Session, error) {
	if i := t.index(id); i >= 0 {
		return t.sessions[i], nil
	}
	return nil, cerrors.SessionNotFound("editor.Thread.Session", id)
}

// AddFollowUp appends a new follow-up session and returns its id. The
// follow-up inherits the main session's visibility.
func (t *Thread) AddFollowUp() (string, error) {
	if t.closed {
		return "", cerrors.E(cerrors.Op("editor.Thread.AddFollowUp"), cerrors.KindClosed, "thread is closed")
	}
	s := newSession(ModeNew, false)
	s.visibility = t.Main().visibility
	t.sessions = append(t.sessions, s)
	t.logger.Debug("follow-up added", zap.String("session_id", s.id), zap.Int("position", len(t.sessions)-1))
	return s.id, nil
}

// Remove drops a follow-up. Its attachments are discarded, its background
// task cancelled, and focus cleared if it pointed at it. Focus is not moved
// to another session. The main session cannot be removed.
func (t *Thread) Remove(id string) error {
	const op cerrors.Op = "editor.Thread.Remove"
	i := t.index(id)
	switch {
	case t.closed:
		return cerrors.E(op, cerrors.KindClosed, "thread is closed")
	case i < 0:
		return cerrors.SessionNotFound(op, id)
	case i == 0:
		return cerrors.E(op, cerrors.KindInvalid, "main session cannot be removed")
	}

	s := t.sessions[i]
	t.sessions = append(t.sessions[:i], t.sessions[i+1:]...)
	cleared := t.focus.clearSession(id)
	s.close()

	t.logger.Debug("follow-up removed", zap.String("session_id", id), zap.Bool("focus_cleared", cleared))
	return nil
}

// SetVisibility changes the main session's visibility and mirrors it into
// every follow-up.
func (t *Thread) SetVisibility(v model.Visibility) error {
	const op cerrors.Op = "editor.Thread.SetVisibility"
	if t.closed {
		return cerrors.E(op, cerrors.KindClosed, "thread is closed")
	}
	if !v.Valid() {
		return cerrors.E(op, cerrors.KindInvalid, fmt.Sprintf("unknown visibility %q", v))
	}
	for _, s := range t.sessions {
		s.setVisibility(v)
	}
	return nil
}

func (t *Thread) Visibility() model.Visibility { return t.Main().visibility }

// Close tears the window down: focus is cleared and every session closed,
// cancelling its background work. Safe to call more than once.
func (t *Thread) Close() {
	if t.closed {
		return
	}
	t.focus.Clear()
	for _, s := range t.sessions {
		s.close()
	}
	t.closed = true
	t.logger.Debug("thread closed", zap.Int("sessions", len(t.sessions)))
}

// CanSubmit reports whether the thread may be posted: every post has content
// and fits the budget. It returns the first reason it may not.
func (t *Thread) CanSubmit(limits budget.Limits) error {
	const op cerrors.Op = "editor.Thread.CanSubmit"
	if t.closed {
		return cerrors.E(op, cerrors.KindClosed, "thread is closed")
	}
	for i, s := range t.sessions {
		if !s.HasContent() {
			return cerrors.E(op, cerrors.KindInvalid, fmt.Sprintf("post %d is empty", i+1))
		}
		if r := s.Remaining(limits); r < 0 {
			return cerrors.E(op, cerrors.KindInvalid, fmt.Sprintf("post %d is %d characters over the limit", i+1, -r))
		}
	}
	return nil
}

// has reports whether id is a live session of this thread.
func (t *Thread) has(id string) bool {
	return !t.closed && t.index(id) >= 0
}

func (t *Thread) index(id string) int {
	for i, s := range t.sessions {
		if s.id == id {
			return i
		}
	}
	return -1
}
