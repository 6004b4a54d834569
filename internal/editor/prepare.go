package editor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// Prepare fills the session's initial text from its mode, once:
//   - reply: mentions of the author and everyone mentioned, minus the
//     current account; visibility narrows to the replied post's
//   - editing: the post's text, content warning and visibility
//   - new, quote, share extension: the initial text, if any
//
// Later calls are no-ops so user edits are never overwritten.
func Prepare(s *Session, current *model.AccountRef) error {
	const op cerrors.Op = "editor.Prepare"
	if s.closed {
		return cerrors.SessionClosed(op, s.id)
	}
	if s.prepared {
		return nil
	}

	switch s.mode {
	case ModeReplyTo:
		if s.status != nil {
			s.text = replyMentions(s.status, current)
			if s.main && restrictiveness(s.status.Visibility) > restrictiveness(s.visibility) {
				s.visibility = s.status.Visibility
			}
		}
	case ModeEditing:
		if s.status != nil {
			text, err := HTMLToText(s.status.Content)
			if err != nil {
				return cerrors.E(op, cerrors.KindInvalid, "cannot read edited post", err)
			}
			s.text = text
			if s.status.SpoilerText != "" {
				s.spoiler.on = true
				s.spoiler.text = s.status.SpoilerText
			}
			if s.main && s.status.Visibility.Valid() {
				s.visibility = s.status.Visibility
			}
		}
	default:
		if s.initialText != "" {
			s.text = s.initialText
		}
	}

	s.prepared = true
	return nil
}

func replyMentions(st *model.Status, current *model.AccountRef) string {
	seen := map[string]bool{}
	if current != nil {
		seen[strings.ToLower(current.Acct)] = true
	}

	var b strings.Builder
	add := func(acct string) {
		key := strings.ToLower(acct)
		if acct == "" || seen[key] {
			return
		}
		seen[key] = true
		b.WriteString("@" + acct + " ")
	}
	add(st.Account.Acct)
	for _, m := range st.Mentions {
		add(m.Acct)
	}
	return b.String()
}

func restrictiveness(v model.Visibility) int {
	switch v {
	case model.VisibilityUnlisted:
		return 1
	case model.VisibilityPrivate:
		return 2
	case model.VisibilityDirect:
		return 3
	default:
		return 0
	}
}

// HTMLToText converts post HTML to editable plain text: paragraphs become
// blank-line separated, <br> becomes a newline, entities are decoded.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("br").ReplaceWithHtml("\n")

	paras := doc.Find("p")
	if paras.Length() == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	parts := make([]string, 0, paras.Length())
	paras.Each(func(_ int, p *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(p.Text()))
	})
	return strings.Join(parts, "\n\n"), nil
}
