// Package bootstrap wires an editor session to its collaborators when the
// host activates it: it checks authentication, closes the window when the
// client is signed out, and starts the background custom emoji fetch.
//
// Collaborators are passed explicitly in an Env and replaced through
// setters; nothing is looked up implicitly.
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikequentel/threadcomposer/internal/budget"
	"github.com/mikequentel/threadcomposer/internal/editor"
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// Client is the authenticated transport.
type Client interface {
	IsAuthenticated(ctx context.Context) bool
}

// CurrentInstance reports the instance's status limits.
type CurrentInstance interface {
	// MaxCharacters returns 0 when the instance did not report a limit.
	MaxCharacters() int
}

// URLLengthProvider is optionally implemented by a CurrentInstance.
type URLLengthProvider interface {
	CharactersReservedPerURL() int
}

type CurrentAccount interface {
	CurrentAccountHandle() (model.AccountRef, bool)
}

type Preferences interface {
	SocialKeyboardEnabled() bool
}

// EmojiService fetches the instance's custom emojis. It is always called
// off the UI goroutine.
type EmojiService interface {
	FetchCustomEmojis(ctx context.Context) ([]model.EmojiRef, error)
}

// Closer dismisses the composition window. Each host supplies its own.
type Closer interface {
	Close()
}

// CloserFunc adapts a function to Closer.
type CloserFunc func()

func (f CloserFunc) Close() { f() }

// Env is the set of collaborators a session is activated with.
type Env struct {
	Client      Client
	Instance    CurrentInstance
	Account     CurrentAccount
	Preferences Preferences
	Emojis      EmojiService
	Closer      Closer
	// Dispatch runs fn on the UI goroutine. Background results re-enter
	// editor state only through it. It must not block once the host stops
	// running its UI loop; a buffered channel drained by the loop is enough.
	Dispatch func(fn func())
	Logger   *zap.Logger
}

// KeyboardHint is the input affordance the host should offer.
type KeyboardHint string

const (
	KeyboardDefault KeyboardHint = "default"
	KeyboardSocial  KeyboardHint = "social"
)

// Bootstrap activates the sessions of one thread.
type Bootstrap struct {
	env       Env
	thread    *editor.Thread
	logger    *zap.Logger
	closed    bool
	listeners []func()
}

func New(env Env, thread *editor.Thread) *Bootstrap {
	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrap{env: env, thread: thread, logger: logger}
}

func (b *Bootstrap) SetClient(c Client)              { b.env.Client = c }
func (b *Bootstrap) SetInstance(i CurrentInstance)   { b.env.Instance = i }
func (b *Bootstrap) SetAccount(a CurrentAccount)     { b.env.Account = a }
func (b *Bootstrap) SetPreferences(p Preferences)    { b.env.Preferences = p }
func (b *Bootstrap) SetEmojiService(s EmojiService)  { b.env.Emojis = s }
func (b *Bootstrap) Closed() bool                    { return b.closed }
func (b *Bootstrap) Thread() *editor.Thread          { return b.thread }

// OnDismiss registers a listener told when the editing surface is being
// dismissed because the client lost authentication.
func (b *Bootstrap) OnDismiss(fn func()) {
	b.listeners = append(b.listeners, fn)
}

// Activate prepares s and verifies authentication. When the client is not
// authenticated the window is closed and a KindUnauthenticated error is
// returned; otherwise the custom emoji fetch starts in the background and
// Activate returns without waiting for it.
func (b *Bootstrap) Activate(ctx context.Context, s *editor.Session) error {
	const op cerrors.Op = "bootstrap.Activate"
	if b.closed {
		return cerrors.Unauthenticated(op)
	}

	var current *model.AccountRef
	if b.env.Account != nil {
		if acct, ok := b.env.Account.CurrentAccountHandle(); ok {
			current = &acct
		}
	}
	if err := editor.Prepare(s, current); err != nil {
		return err
	}
	// Prepare may narrow the main session's visibility; follow-ups follow it.
	if s.IsMain() {
		if err := b.thread.SetVisibility(s.Visibility()); err != nil {
			return err
		}
	}

	if err := b.checkAuth(ctx, op); err != nil {
		return err
	}

	b.fetchEmojis(ctx, s)
	b.logger.Debug("session activated",
		zap.String("session_id", s.ID()),
		zap.Stringer("mode", s.Mode()),
		zap.Bool("main", s.IsMain()))
	return nil
}

// Revalidate re-checks authentication mid-edit with the same close
// semantics as Activate.
func (b *Bootstrap) Revalidate(ctx context.Context) error {
	const op cerrors.Op = "bootstrap.Revalidate"
	if b.closed {
		return cerrors.Unauthenticated(op)
	}
	return b.checkAuth(ctx, op)
}

// Limits returns the counting limits from the current instance, falling
// back to defaults.
func (b *Bootstrap) Limits() budget.Limits {
	var l budget.Limits
	if b.env.Instance != nil {
		l.MaxCharacters = b.env.Instance.MaxCharacters()
		if p, ok := b.env.Instance.(URLLengthProvider); ok {
			l.URLLength = p.CharactersReservedPerURL()
		}
	}
	return l.Normalize()
}

func (b *Bootstrap) KeyboardHint() KeyboardHint {
	if b.env.Preferences != nil && b.env.Preferences.SocialKeyboardEnabled() {
		return KeyboardSocial
	}
	return KeyboardDefault
}

func (b *Bootstrap) checkAuth(ctx context.Context, op cerrors.Op) error {
	if b.env.Client != nil && b.env.Client.IsAuthenticated(ctx) {
		return nil
	}
	b.dismiss()
	return cerrors.Unauthenticated(op)
}

// dismiss tears the thread down and closes the window, once.
func (b *Bootstrap) dismiss() {
	if b.closed {
		return
	}
	b.closed = true
	b.thread.Close()
	b.logger.Warn("client not authenticated, closing composer")
	if b.env.Closer != nil {
		b.env.Closer.Close()
	}
	for _, fn := range b.listeners {
		fn()
	}
}

func (b *Bootstrap) fetchEmojis(parent context.Context, s *editor.Session) {
	if b.env.Emojis == nil || b.env.Dispatch == nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.BindTask(cancel)

	svc, dispatch, logger := b.env.Emojis, b.env.Dispatch, b.logger.With(zap.String("session_id", s.ID()))
	go func() {
		emojis, err := svc.FetchCustomEmojis(ctx)
		if ctx.Err() != nil {
			return
		}
		dispatch(func() {
			// Checked on the UI goroutine, where removal and teardown happen.
			if ctx.Err() != nil {
				logger.Debug("emoji fetch result dropped", zap.Error(ctx.Err()))
				return
			}
			cancel()
			if err != nil {
				logger.Warn("custom emoji fetch failed", zap.Error(err))
				return
			}
			set := make(budget.ShortcodeSet, len(emojis))
			for _, e := range emojis {
				set[e.Shortcode] = struct{}{}
			}
			s.SetCustomEmojis(set)
			logger.Debug("custom emojis loaded", zap.Int("count", len(set)))
		})
	}()
}
