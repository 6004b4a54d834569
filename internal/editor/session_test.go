package editor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikequentel/threadcomposer/internal/budget"
	"github.com/mikequentel/threadcomposer/internal/model"
)

func TestSession_Defaults(t *testing.T) {
	s := NewSession(ModeNew)
	assert.NotEmpty(t, s.ID())
	assert.True(t, s.IsMain())
	assert.Equal(t, model.VisibilityPublic, s.Visibility())
	assert.Nil(t, s.EmbeddedStatus())
	assert.Nil(t, s.ReplyToStatus())
	assert.NotEqual(t, s.ID(), NewSession(ModeNew).ID())
}

func TestSession_InvalidVisibilityFallsBack(t *testing.T) {
	s := NewSession(ModeNew, WithVisibility("friends"))
	assert.Equal(t, model.VisibilityPublic, s.Visibility())
}

func TestSession_StatusByMode(t *testing.T) {
	st := &model.Status{ID: "42", Content: "<p>hi</p>"}

	quote := NewSession(ModeQuote, WithStatus(st))
	require.NotNil(t, quote.EmbeddedStatus())
	assert.Equal(t, "42", quote.EmbeddedStatus().ID)
	assert.Nil(t, quote.ReplyToStatus())

	reply := NewSession(ModeReplyTo, WithStatus(st))
	require.NotNil(t, reply.ReplyToStatus())
	assert.Nil(t, reply.EmbeddedStatus())

	edit := NewSession(ModeEditing, WithStatus(st))
	require.NotNil(t, edit.EditedStatus())

	st.ID = "changed"
	assert.Equal(t, "42", quote.EmbeddedStatus().ID, "reference is fixed at creation")
}

func TestMode(t *testing.T) {
	assert.True(t, ModeEditing.IsEditing())
	assert.False(t, ModeNew.IsEditing())
	assert.True(t, ModeShareExtension.IsInShareExtension())
	assert.Equal(t, "reply", ModeReplyTo.String())
}

// ===================== Remaining =====================

func TestSession_Remaining(t *testing.T) {
	limits := budget.Limits{MaxCharacters: 500}

	s := NewSession(ModeNew)
	require.NoError(t, s.SetText(strings.Repeat("a", 520)))
	assert.Equal(t, -20, s.Remaining(limits))
}

func TestSession_RemainingCountsSpoilerOnlyWhenOn(t *testing.T) {
	limits := budget.Limits{MaxCharacters: 100}
	s := NewSession(ModeNew)
	require.NoError(t, s.SetText("hello"))

	require.NoError(t, s.Spoiler().Toggle(true))
	require.NoError(t, s.Spoiler().SetText("cw text"))
	assert.Equal(t, 100-5-7, s.Remaining(limits))

	require.NoError(t, s.Spoiler().Toggle(false))
	assert.Equal(t, 95, s.Remaining(limits))
}

func TestSession_RemainingUsesCustomEmojis(t *testing.T) {
	limits := budget.Limits{MaxCharacters: 100}
	s := NewSession(ModeNew)
	require.NoError(t, s.SetText(":blobcat:"))
	assert.Equal(t, 91, s.Remaining(limits))

	s.SetCustomEmojis(budget.NewShortcodeSet("blobcat"))
	assert.Equal(t, 99, s.Remaining(limits))
}

func TestSession_RecomputedOnEveryMutation(t *testing.T) {
	limits := budget.Limits{MaxCharacters: 10}
	s := NewSession(ModeNew)
	for _, text := range []string{"a", "abc", "", "abcdefghijkl"} {
		require.NoError(t, s.SetText(text))
		assert.Equal(t, budget.Remaining(text, 10, budget.Policy{}), s.Remaining(limits))
	}
}

// ===================== BindTask =====================

func TestSession_BindTaskReplacesPrevious(t *testing.T) {
	s := NewSession(ModeNew)
	first, cancelFirst := context.WithCancel(context.Background())
	second, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()

	s.BindTask(cancelFirst)
	s.BindTask(cancelSecond)

	assert.Error(t, first.Err())
	assert.NoError(t, second.Err())
}

func TestSession_BindTaskAfterClose(t *testing.T) {
	s := NewSession(ModeNew)
	s.close()

	ctx, cancel := context.WithCancel(context.Background())
	s.BindTask(cancel)
	assert.Error(t, ctx.Err())

	s.SetCustomEmojis(budget.NewShortcodeSet("x"))
	assert.Nil(t, s.CustomEmojis())
}
