package bootstrap

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikequentel/threadcomposer/internal/budget"
	"github.com/mikequentel/threadcomposer/internal/editor"
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeClient struct{ authed atomic.Bool }

func newClient(authed bool) *fakeClient {
	c := &fakeClient{}
	c.authed.Store(authed)
	return c
}

func (c *fakeClient) IsAuthenticated(context.Context) bool { return c.authed.Load() }

type countingCloser struct{ n int }

func (c *countingCloser) Close() { c.n++ }

type fakeInstance struct{ max, url int }

func (i fakeInstance) MaxCharacters() int            { return i.max }
func (i fakeInstance) CharactersReservedPerURL() int { return i.url }

type fakeAccount string

func (a fakeAccount) CurrentAccountHandle() (model.AccountRef, bool) {
	return model.AccountRef{Acct: string(a)}, a != ""
}

type fakePrefs bool

func (p fakePrefs) SocialKeyboardEnabled() bool { return bool(p) }

// gatedEmojis blocks each fetch until release is closed.
type gatedEmojis struct {
	release chan struct{}
	emojis  []model.EmojiRef
	err     error
}

func (g *gatedEmojis) FetchCustomEmojis(ctx context.Context) ([]model.EmojiRef, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return g.emojis, g.err
}

type harness struct {
	thread *editor.Thread
	boot   *Bootstrap
	closer *countingCloser
	ui     chan func()
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T, env Env) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	th, err := editor.NewThread(editor.NewSession(editor.ModeNew), editor.WithStrictFocus(true))
	require.NoError(t, err)

	h := &harness{thread: th, closer: &countingCloser{}, ui: make(chan func(), 8), logs: logs}
	env.Closer = h.closer
	env.Dispatch = func(fn func()) { h.ui <- fn }
	env.Logger = zap.New(core)
	h.boot = New(env, th)
	return h
}

// runUI executes the next dispatched func as the UI goroutine would.
func (h *harness) runUI(t *testing.T) {
	t.Helper()
	select {
	case fn := <-h.ui:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no result dispatched to the UI goroutine")
	}
}

// =============================================================================
// Authentication
// =============================================================================

func TestActivate_UnauthenticatedClosesOnce(t *testing.T) {
	h := newHarness(t, Env{Client: newClient(false)})
	var notified int
	h.boot.OnDismiss(func() { notified++ })

	err := h.boot.Activate(context.Background(), h.thread.Main())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindUnauthenticated))

	err = h.boot.Activate(context.Background(), h.thread.Main())
	assert.True(t, cerrors.Is(err, cerrors.KindUnauthenticated))
	assert.True(t, cerrors.Is(h.boot.Revalidate(context.Background()), cerrors.KindUnauthenticated))

	assert.Equal(t, 1, h.closer.n)
	assert.Equal(t, 1, notified)
	assert.True(t, h.boot.Closed())
	assert.True(t, h.thread.Closed())
	assert.True(t, cerrors.Is(h.thread.Main().SetText("x"), cerrors.KindClosed))
}

func TestActivate_NilClientIsUnauthenticated(t *testing.T) {
	h := newHarness(t, Env{})
	err := h.boot.Activate(context.Background(), h.thread.Main())
	assert.True(t, cerrors.Is(err, cerrors.KindUnauthenticated))
	assert.Equal(t, 1, h.closer.n)
}

func TestRevalidate_AuthLostMidEdit(t *testing.T) {
	client := newClient(true)
	h := newHarness(t, Env{Client: client})
	main := h.thread.Main()
	require.NoError(t, h.boot.Activate(context.Background(), main))
	require.NoError(t, main.SetText("draft"))
	require.NoError(t, h.boot.Revalidate(context.Background()))
	assert.Zero(t, h.closer.n)

	client.authed.Store(false)
	err := h.boot.Revalidate(context.Background())
	assert.True(t, cerrors.Is(err, cerrors.KindUnauthenticated))
	_ = h.boot.Revalidate(context.Background())

	assert.Equal(t, 1, h.closer.n)
	assert.True(t, cerrors.Is(main.SetText("more"), cerrors.KindClosed))
	assert.Equal(t, 1, h.logs.FilterMessage("client not authenticated, closing composer").Len())
}

// =============================================================================
// Prepare on activation
// =============================================================================

func TestActivate_PreparesReplyAndSyncsVisibility(t *testing.T) {
	st := &model.Status{
		ID:         "7",
		Account:    model.AccountRef{Acct: "bob"},
		Visibility: model.VisibilityUnlisted,
		Mentions:   []model.AccountRef{{Acct: "me"}},
	}
	core, _ := observer.New(zapcore.DebugLevel)
	main := editor.NewSession(editor.ModeReplyTo, editor.WithStatus(st))
	th, err := editor.NewThread(main)
	require.NoError(t, err)
	follow, err := th.AddFollowUp()
	require.NoError(t, err)

	boot := New(Env{Client: newClient(true), Account: fakeAccount("me"), Logger: zap.New(core)}, th)
	require.NoError(t, boot.Activate(context.Background(), main))

	assert.Equal(t, "@bob ", main.Text())
	assert.Equal(t, model.VisibilityUnlisted, th.Visibility())
	fs, _ := th.Session(follow)
	assert.Equal(t, model.VisibilityUnlisted, fs.Visibility())
}

func TestActivate_EditedVisibilityReachesFollowUps(t *testing.T) {
	st := &model.Status{ID: "8", Content: "<p>old</p>", Visibility: model.VisibilityDirect}
	main := editor.NewSession(editor.ModeEditing, editor.WithStatus(st))
	th, err := editor.NewThread(main)
	require.NoError(t, err)
	first, _ := th.AddFollowUp()
	second, _ := th.AddFollowUp()

	boot := New(Env{Client: newClient(true)}, th)
	require.NoError(t, boot.Activate(context.Background(), main))

	for _, id := range []string{first, second} {
		s, err := th.Session(id)
		require.NoError(t, err)
		assert.Equal(t, model.VisibilityDirect, s.Visibility())
	}
}

// =============================================================================
// Custom emoji fetch
// =============================================================================

func TestActivate_EmojiResultAppliedOnUI(t *testing.T) {
	svc := &gatedEmojis{release: make(chan struct{}), emojis: []model.EmojiRef{{Shortcode: "blobcat"}}}
	h := newHarness(t, Env{Client: newClient(true), Emojis: svc})
	main := h.thread.Main()

	require.NoError(t, h.boot.Activate(context.Background(), main))
	assert.Nil(t, main.CustomEmojis(), "Activate does not wait for the fetch")

	require.NoError(t, main.SetText(":blobcat:"))
	limits := budget.Limits{MaxCharacters: 100}
	assert.Equal(t, 91, main.Remaining(limits))

	close(svc.release)
	h.runUI(t)

	require.NotNil(t, main.CustomEmojis())
	assert.True(t, main.CustomEmojis().Has("blobcat"))
	assert.Equal(t, 99, main.Remaining(limits))
}

func TestActivate_EmojiFailureLeavesCounting(t *testing.T) {
	svc := &gatedEmojis{release: make(chan struct{}), err: errors.New("boom")}
	close(svc.release)
	h := newHarness(t, Env{Client: newClient(true), Emojis: svc})
	main := h.thread.Main()

	require.NoError(t, h.boot.Activate(context.Background(), main))
	h.runUI(t)

	assert.Nil(t, main.CustomEmojis())
	assert.False(t, h.thread.Closed())
	assert.Equal(t, 1, h.logs.FilterMessage("custom emoji fetch failed").Len())
}

func TestActivate_RemovedSessionDropsQueuedResult(t *testing.T) {
	svc := &gatedEmojis{release: make(chan struct{}), emojis: []model.EmojiRef{{Shortcode: "blobcat"}}}
	h := newHarness(t, Env{Client: newClient(true), Emojis: svc})

	id, err := h.thread.AddFollowUp()
	require.NoError(t, err)
	follow, _ := h.thread.Session(id)
	require.NoError(t, h.boot.Activate(context.Background(), follow))

	// The result is already queued for the UI goroutine when the session goes.
	close(svc.release)
	require.Eventually(t, func() bool { return len(h.ui) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, h.thread.Remove(id))
	h.runUI(t)

	assert.Nil(t, follow.CustomEmojis())
	assert.Equal(t, 1, h.logs.FilterMessage("emoji fetch result dropped").Len())
}

func TestActivate_RemovedSessionSkipsDispatch(t *testing.T) {
	svc := &gatedEmojis{release: make(chan struct{}), emojis: []model.EmojiRef{{Shortcode: "blobcat"}}}
	h := newHarness(t, Env{Client: newClient(true), Emojis: svc})

	id, err := h.thread.AddFollowUp()
	require.NoError(t, err)
	follow, _ := h.thread.Session(id)
	require.NoError(t, h.boot.Activate(context.Background(), follow))

	require.NoError(t, h.thread.Remove(id))
	close(svc.release)

	assert.Never(t, func() bool { return len(h.ui) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Nil(t, follow.CustomEmojis())
}

func TestActivate_TeardownSkipsDispatch(t *testing.T) {
	svc := &gatedEmojis{release: make(chan struct{})}
	client := newClient(true)
	h := newHarness(t, Env{Client: client, Emojis: svc})
	main := h.thread.Main()
	require.NoError(t, h.boot.Activate(context.Background(), main))

	client.authed.Store(false)
	_ = h.boot.Revalidate(context.Background())

	assert.Never(t, func() bool { return len(h.ui) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Nil(t, main.CustomEmojis())
}

func TestActivate_TeardownReleasesFetchGoroutines(t *testing.T) {
	svc := &gatedEmojis{release: make(chan struct{})}
	th, err := editor.NewThread(editor.NewSession(editor.ModeNew))
	require.NoError(t, err)

	before := runtime.NumGoroutine()

	// Nobody drains the UI loop once the window is gone.
	blocked := make(chan func())
	boot := New(Env{
		Client:   newClient(true),
		Emojis:   svc,
		Dispatch: func(fn func()) { blocked <- fn },
	}, th)
	for i := 0; i < 5; i++ {
		id, err := th.AddFollowUp()
		require.NoError(t, err)
		s, _ := th.Session(id)
		require.NoError(t, boot.Activate(context.Background(), s))
	}

	th.Close()

	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 10*time.Millisecond, "fetch goroutines must exit after teardown")
}

// =============================================================================
// Limits / keyboard
// =============================================================================

func TestLimits(t *testing.T) {
	boot := New(Env{}, nil)
	assert.Equal(t, budget.DefaultMaxCharacters, boot.Limits().MaxCharacters)
	assert.Equal(t, budget.DefaultURLLength, boot.Limits().URLLength)

	boot.SetInstance(fakeInstance{max: 0, url: 0})
	assert.Equal(t, 500, boot.Limits().MaxCharacters)

	boot.SetInstance(fakeInstance{max: 1000, url: 30})
	assert.Equal(t, budget.Limits{MaxCharacters: 1000, URLLength: 30}, boot.Limits())
}

func TestKeyboardHint(t *testing.T) {
	boot := New(Env{}, nil)
	assert.Equal(t, KeyboardDefault, boot.KeyboardHint())

	boot.SetPreferences(fakePrefs(true))
	assert.Equal(t, KeyboardSocial, boot.KeyboardHint())

	boot.SetPreferences(fakePrefs(false))
	assert.Equal(t, KeyboardDefault, boot.KeyboardHint())
}
