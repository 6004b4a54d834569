package editor

import (
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
)

// SpoilerState is a session's content warning: a toggle plus text. The text
// only exists while the toggle is on; turning it off discards the text.
type SpoilerState struct {
	sessionID string
	on        bool
	text      string
	closed    bool
}

func (s *SpoilerState) On() bool     { return s.on }
func (s *SpoilerState) Text() string { return s.text }

// Toggle turns the content warning on or off. Turning it off clears the text,
// so turning it on again starts empty.
func (s *SpoilerState) Toggle(on bool) error {
	if s.closed {
		return cerrors.SessionClosed("editor.Spoiler.Toggle", s.sessionID)
	}
	s.on = on
	if !on {
		s.text = ""
	}
	return nil
}

// SetText replaces the content warning text. It fails without changing
// anything while the toggle is off; hosts gate the field on On().
func (s *SpoilerState) SetText(text string) error {
	const op cerrors.Op = "editor.Spoiler.SetText"
	if s.closed {
		return cerrors.SessionClosed(op, s.sessionID)
	}
	if !s.on {
		return cerrors.E(op, cerrors.KindInvalid, "content warning is off")
	}
	s.text = text
	return nil
}
