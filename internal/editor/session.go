package editor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mikequentel/threadcomposer/internal/budget"
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// Mode is how a session was opened. It never changes.
type Mode int

const (
	ModeNew Mode = iota
	ModeEditing
	ModeReplyTo
	ModeQuote
	ModeShareExtension
)

func (m Mode) String() string {
	switch m {
	case ModeEditing:
		return "editing"
	case ModeReplyTo:
		return "reply"
	case ModeQuote:
		return "quote"
	case ModeShareExtension:
		return "share-extension"
	default:
		return "new"
	}
}

func (m Mode) IsEditing() bool          { return m == ModeEditing }
func (m Mode) IsInShareExtension() bool { return m == ModeShareExtension }

// Session is the editing state of one post in a thread.
//
// Sessions are owned by a Thread and are not safe for concurrent use; all
// calls happen on the host's UI goroutine. Once the session is removed or
// the thread torn down, mutators return a KindClosed error.
type Session struct {
	id          string
	mode        Mode
	main        bool
	text        string
	initialText string
	spoiler     SpoilerState
	attachments AttachmentState
	visibility  model.Visibility
	status      *model.Status // reply target, quoted or edited post
	emojis      budget.EmojiSet
	cancel      context.CancelFunc
	prepared    bool
	closed      bool
}

type SessionOption func(*Session)

// WithStatus sets the referenced post: the reply target in ModeReplyTo, the
// quoted post in ModeQuote, the post being edited in ModeEditing.
func WithStatus(st *model.Status) SessionOption {
	return func(s *Session) {
		if st != nil {
			cp := *st
			cp.Mentions = append([]model.AccountRef(nil), st.Mentions...)
			s.status = &cp
		}
	}
}

func WithVisibility(v model.Visibility) SessionOption {
	return func(s *Session) { s.visibility = v }
}

// WithInitialText seeds the text applied by Prepare (shared text in the
// share extension, a draft body otherwise).
func WithInitialText(text string) SessionOption {
	return func(s *Session) { s.initialText = text }
}

// NewSession creates the main session of a thread.
func NewSession(mode Mode, opts ...SessionOption) *Session {
	s := newSession(mode, true)
	for _, opt := range opts {
		opt(s)
	}
	if !s.visibility.Valid() {
		s.visibility = model.VisibilityPublic
	}
	return s
}

func newSession(mode Mode, main bool) *Session {
	id := uuid.NewString()
	return &Session{
		id:          id,
		mode:        mode,
		main:        main,
		spoiler:     SpoilerState{sessionID: id},
		attachments: AttachmentState{sessionID: id},
		visibility:  model.VisibilityPublic,
	}
}

func (s *Session) ID() string                    { return s.id }
func (s *Session) Mode() Mode                    { return s.mode }
func (s *Session) IsMain() bool                  { return s.main }
func (s *Session) Text() string                  { return s.text }
func (s *Session) Spoiler() *SpoilerState        { return &s.spoiler }
func (s *Session) Attachments() *AttachmentState { return &s.attachments }
func (s *Session) Visibility() model.Visibility  { return s.visibility }
func (s *Session) Closed() bool                  { return s.closed }

// VisibilityEditable reports whether the host should offer the visibility
// control. Follow-ups mirror the main session and show it read-only.
func (s *Session) VisibilityEditable() bool { return s.main && !s.closed }

func (s *Session) SetText(text string) error {
	if s.closed {
		return cerrors.SessionClosed("editor.Session.SetText", s.id)
	}
	s.text = text
	return nil
}

func (s *Session) EmbeddedStatus() *model.Status { return s.statusFor(ModeQuote) }
func (s *Session) ReplyToStatus() *model.Status  { return s.statusFor(ModeReplyTo) }
func (s *Session) EditedStatus() *model.Status   { return s.statusFor(ModeEditing) }

func (s *Session) statusFor(mode Mode) *model.Status {
	if s.mode != mode || s.status == nil {
		return nil
	}
	cp := *s.status
	return &cp
}

// CustomEmojis is the emoji set used when weighing this session's text.
func (s *Session) CustomEmojis() budget.EmojiSet { return s.emojis }

// SetCustomEmojis installs fetched custom emojis. Ignored after close.
func (s *Session) SetCustomEmojis(set budget.EmojiSet) {
	if s.closed {
		return
	}
	s.emojis = set
}

// BindTask ties a background task's cancel func to the session. The task is
// cancelled when the session is removed, the thread torn down, or another
// task is bound. Binding to a closed session cancels immediately.
func (s *Session) BindTask(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	if s.closed {
		cancel()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
}

// Remaining is the session's character budget. Content warning text counts
// only while the warning is on.
func (s *Session) Remaining(limits budget.Limits) int {
	calc := budget.NewCalculator(limits, s.emojis)
	remaining := calc.Remaining(s.text)
	if s.spoiler.on {
		remaining -= calc.Weigher.Weigh(s.spoiler.text)
	}
	return remaining
}

// HasContent reports whether the post has anything to submit.
func (s *Session) HasContent() bool {
	return strings.TrimSpace(s.text) != "" || s.attachments.kind != AttachmentNone
}

func (s *Session) setVisibility(v model.Visibility) {
	s.visibility = v
}

func (s *Session) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// close cancels background work, discards attachments and rejects further
// mutation.
func (s *Session) close() {
	s.release()
	s.attachments.Clear()
	s.closed = true
	s.spoiler.closed = true
	s.attachments.closed = true
}
