package editor

import (
	"fmt"
	"strings"
	"time"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// AttachmentKind is the active variant of an AttachmentState.
type AttachmentKind int

const (
	AttachmentNone AttachmentKind = iota
	AttachmentMedia
	AttachmentPoll
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentMedia:
		return "media"
	case AttachmentPoll:
		return "poll"
	default:
		return "none"
	}
}

const (
	MaxMediaAttachments = 4

	MinPollOptions  = 2
	MaxPollOptions  = 4
	MinPollDuration = 5 * time.Minute
	MaxPollDuration = 7 * 24 * time.Hour
)

// AttachmentState holds either media or a poll, never both. Switching
// variants requires an explicit clear of the current one.
type AttachmentState struct {
	sessionID string
	kind      AttachmentKind
	media     []model.MediaContainer
	poll      *model.PollConfig
	closed    bool
}

func (a *AttachmentState) Kind() AttachmentKind { return a.kind }

// Media returns a copy of the attached media, in attach order.
func (a *AttachmentState) Media() []model.MediaContainer {
	if a.kind != AttachmentMedia {
		return nil
	}
	out := make([]model.MediaContainer, len(a.media))
	copy(out, a.media)
	return out
}

// Poll returns a copy of the poll configuration.
func (a *AttachmentState) Poll() (model.PollConfig, bool) {
	if a.kind != AttachmentPoll || a.poll == nil {
		return model.PollConfig{}, false
	}
	cfg := *a.poll
	cfg.Options = append([]string(nil), a.poll.Options...)
	return cfg, true
}

// EnableMedia attaches containers, replacing any already attached with the
// same ID. It fails with KindIncompatibleState while a poll is attached.
func (a *AttachmentState) EnableMedia(containers ...model.MediaContainer) error {
	const op cerrors.Op = "editor.Attachments.EnableMedia"
	if a.closed {
		return cerrors.SessionClosed(op, a.sessionID)
	}
	if a.kind == AttachmentPoll {
		return cerrors.IncompatibleAttachment(op, AttachmentPoll.String(), AttachmentMedia.String())
	}
	if len(containers) == 0 {
		return cerrors.E(op, cerrors.KindInvalid, "no media given")
	}

	merged := append([]model.MediaContainer(nil), a.media...)
	for _, c := range containers {
		if c.ID == "" {
			return cerrors.E(op, cerrors.KindInvalid, "media container has no id")
		}
		if i := indexMedia(merged, c.ID); i >= 0 {
			merged[i] = c
			continue
		}
		merged = append(merged, c)
	}
	if len(merged) > MaxMediaAttachments {
		return cerrors.E(op, cerrors.KindInvalid, fmt.Sprintf("at most %d media attachments", MaxMediaAttachments))
	}

	a.media = merged
	a.kind = AttachmentMedia
	return nil
}

// RemoveMedia detaches one container. Removing the last one returns the
// state to none.
func (a *AttachmentState) RemoveMedia(id string) error {
	const op cerrors.Op = "editor.Attachments.RemoveMedia"
	if a.closed {
		return cerrors.SessionClosed(op, a.sessionID)
	}
	i := indexMedia(a.media, id)
	if a.kind != AttachmentMedia || i < 0 {
		return cerrors.E(op, cerrors.KindNotFound, fmt.Sprintf("media %s not attached", id))
	}
	a.media = append(a.media[:i], a.media[i+1:]...)
	if len(a.media) == 0 {
		a.ClearMedia()
	}
	return nil
}

// EnablePoll attaches or replaces the poll. It fails with
// KindIncompatibleState while media is attached.
func (a *AttachmentState) EnablePoll(cfg model.PollConfig) error {
	const op cerrors.Op = "editor.Attachments.EnablePoll"
	if a.closed {
		return cerrors.SessionClosed(op, a.sessionID)
	}
	if a.kind == AttachmentMedia {
		return cerrors.IncompatibleAttachment(op, AttachmentMedia.String(), AttachmentPoll.String())
	}
	if err := validatePoll(cfg); err != nil {
		return cerrors.E(op, cerrors.KindInvalid, err)
	}

	cfg.Options = append([]string(nil), cfg.Options...)
	a.poll = &cfg
	a.kind = AttachmentPoll
	return nil
}

func (a *AttachmentState) ClearPoll() {
	if a.kind == AttachmentPoll {
		a.Clear()
	}
}

func (a *AttachmentState) ClearMedia() {
	if a.kind == AttachmentMedia {
		a.Clear()
	}
}

// Clear drops whatever is attached.
func (a *AttachmentState) Clear() {
	a.kind = AttachmentNone
	a.media = nil
	a.poll = nil
}

func validatePoll(cfg model.PollConfig) error {
	if n := len(cfg.Options); n < MinPollOptions || n > MaxPollOptions {
		return fmt.Errorf("poll needs %d to %d options, got %d", MinPollOptions, MaxPollOptions, n)
	}
	for i, o := range cfg.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("poll option %d is empty", i+1)
		}
	}
	if cfg.ExpiresIn < MinPollDuration || cfg.ExpiresIn > MaxPollDuration {
		return fmt.Errorf("poll duration %s outside %s..%s", cfg.ExpiresIn, MinPollDuration, MaxPollDuration)
	}
	return nil
}

func indexMedia(media []model.MediaContainer, id string) int {
	for i, m := range media {
		if m.ID == id {
			return i
		}
	}
	return -1
}
