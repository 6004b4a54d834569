package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dghubble/go-twitter/twitter"
	"go.uber.org/zap"

	"github.com/mikequentel/threadcomposer/internal/budget"
	"github.com/mikequentel/threadcomposer/internal/editor"
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

const mediaUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

// Publish posts the thread as a reply chain, main post first, and returns
// the posted IDs. It refuses a thread that CanSubmit rejects.
func (c *Client) Publish(ctx context.Context, thread *editor.Thread, limits budget.Limits) ([]int64, error) {
	const op cerrors.Op = "xclient.Publish"
	if err := thread.CanSubmit(limits); err != nil {
		return nil, err
	}

	var inReplyTo int64
	if st := thread.Main().ReplyToStatus(); st != nil {
		id, err := strconv.ParseInt(st.ID, 10, 64)
		if err != nil {
			return nil, cerrors.E(op, cerrors.KindInvalid, "reply target id "+st.ID, err)
		}
		inReplyTo = id
	}

	var posted []int64
	for i, s := range thread.Sessions() {
		if err := ctx.Err(); err != nil {
			return posted, err
		}
		if s.Mode().IsEditing() {
			return posted, cerrors.E(op, cerrors.KindInvalid, "editing posts is not supported on X")
		}
		if s.Attachments().Kind() == editor.AttachmentPoll {
			return posted, cerrors.E(op, cerrors.KindInvalid, fmt.Sprintf("post %d: polls are not supported on X", i+1))
		}

		mediaIDs, err := c.uploadAll(ctx, s.Attachments().Media())
		if err != nil {
			return posted, err
		}
		tweet, _, err := c.tw.Statuses.Update(StatusText(s), &twitter.StatusUpdateParams{
			InReplyToStatusID: inReplyTo,
			MediaIds:          mediaIDs,
		})
		if err != nil {
			return posted, cerrors.E(op, cerrors.KindNetwork, fmt.Sprintf("post %d", i+1), err)
		}

		c.logger.Info("posted", zap.Int("position", i), zap.Int64("tweet_id", tweet.ID), zap.Int("media", len(mediaIDs)))
		posted = append(posted, tweet.ID)
		inReplyTo = tweet.ID
	}
	return posted, nil
}

// StatusText is the text posted for a session: the content warning, when
// on, leads the body.
func StatusText(s *editor.Session) string {
	text := strings.TrimSpace(s.Text())
	if sp := s.Spoiler(); sp.On() && strings.TrimSpace(sp.Text()) != "" {
		return strings.TrimSpace(sp.Text()) + "\n\n" + text
	}
	return text
}

func (c *Client) uploadAll(ctx context.Context, media []model.MediaContainer) ([]int64, error) {
	var ids []int64
	for _, m := range media {
		id, err := c.uploadMedia(ctx, m)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// uploadMedia does a v1.1 simple (non-chunked) upload.
func (c *Client) uploadMedia(ctx context.Context, m model.MediaContainer) (int64, error) {
	const op cerrors.Op = "xclient.uploadMedia"
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return 0, cerrors.E(op, cerrors.KindInvalid, m.Path, err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("media", filepath.Base(m.Path))
	if err != nil {
		return 0, cerrors.E(op, cerrors.KindInvalid, err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, cerrors.E(op, cerrors.KindInvalid, err)
	}
	if err := w.Close(); err != nil {
		return 0, cerrors.E(op, cerrors.KindInvalid, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mediaUploadURL, &body)
	if err != nil {
		return 0, cerrors.E(op, cerrors.KindInvalid, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, cerrors.E(op, cerrors.KindNetwork, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, cerrors.E(op, cerrors.KindNetwork, "read upload response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, cerrors.E(op, cerrors.KindNetwork, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out model.MediaUploadResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, cerrors.E(op, cerrors.KindNetwork, "decode upload response", err)
	}
	if out.MediaIDString != "" {
		if id, err := strconv.ParseInt(out.MediaIDString, 10, 64); err == nil {
			return id, nil
		}
	}
	if out.MediaID != 0 {
		return out.MediaID, nil
	}
	return 0, cerrors.E(op, cerrors.KindNetwork, "missing media_id in upload response")
}
