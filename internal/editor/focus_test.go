package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
)

func TestFocus_StartsClear(t *testing.T) {
	th := newTestThread(t)
	_, ok := th.Focus().Active()
	assert.False(t, ok)
	assert.False(t, th.Focus().IsSessionActive(th.Main().ID()))
}

func TestFocus_AssignIsExclusive(t *testing.T) {
	th := newTestThread(t)
	f := th.Focus()
	mainID := th.Main().ID()
	follow, _ := th.AddFollowUp()

	f.Assign(mainID, FieldText)
	assert.True(t, f.IsActive(mainID, FieldText))

	f.Assign(mainID, FieldSpoiler)
	assert.False(t, f.IsActive(mainID, FieldText))
	assert.True(t, f.IsActive(mainID, FieldSpoiler))

	f.Assign(follow, FieldText)
	assert.False(t, f.IsSessionActive(mainID), "previous target replaced, not layered")
	assert.True(t, f.IsSessionActive(follow))

	target, ok := f.Active()
	require.True(t, ok)
	assert.Equal(t, Target{SessionID: follow, Field: FieldText}, target)
}

func TestFocus_Clear(t *testing.T) {
	th := newTestThread(t)
	f := th.Focus()
	f.Assign(th.Main().ID(), FieldText)
	f.Clear()

	_, ok := f.Active()
	assert.False(t, ok)
	assert.False(t, f.IsActive(th.Main().ID(), FieldText))
}

func TestFocus_StrictPanicsOnUnknownSession(t *testing.T) {
	th := newTestThread(t)
	th.Focus().Assign(th.Main().ID(), FieldText)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, cerrors.Is(err, cerrors.KindNotFound))
		assert.True(t, th.Focus().IsActive(th.Main().ID(), FieldText))
	}()
	th.Focus().Assign("stale", FieldText)
}

func TestFocus_LenientIgnoresUnknownSession(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	th, err := NewThread(NewSession(ModeNew), WithLogger(zap.New(core)))
	require.NoError(t, err)
	mainID := th.Main().ID()
	th.Focus().Assign(mainID, FieldSpoiler)

	assert.NotPanics(t, func() { th.Focus().Assign("stale", FieldText) })

	assert.True(t, th.Focus().IsActive(mainID, FieldSpoiler))
	assert.Equal(t, 1, logs.FilterMessage("focus assign ignored").Len())
}

func TestFocus_RemovedSessionCannotBeFocused(t *testing.T) {
	th, err := NewThread(NewSession(ModeNew))
	require.NoError(t, err)
	id, _ := th.AddFollowUp()
	require.NoError(t, th.Remove(id))

	th.Focus().Assign(id, FieldText)
	_, ok := th.Focus().Active()
	assert.False(t, ok)
}
