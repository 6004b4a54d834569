// Package emoji fetches an instance's custom emojis and caches them in
// sqlite so budgets can weigh shortcodes even when the instance is
// unreachable.
package emoji

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dghubble/sling"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

const customEmojisPath = "api/v1/custom_emojis"

// Client reads GET /api/v1/custom_emojis from one instance.
type Client struct {
	base *sling.Sling
}

// NewClient returns a Client for instanceURL ("https://example.social/").
// A nil httpClient uses http.DefaultClient.
func NewClient(instanceURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: sling.New().Client(httpClient).Base(withSlash(instanceURL))}
}

func (c *Client) Fetch(ctx context.Context) ([]model.EmojiRef, error) {
	const op cerrors.Op = "emoji.Client.Fetch"
	req, err := c.base.New().Get(customEmojisPath).Request()
	if err != nil {
		return nil, cerrors.E(op, cerrors.KindInvalid, err)
	}

	var emojis []model.EmojiRef
	var apiErr model.APIError
	resp, err := c.base.Do(req.WithContext(ctx), &emojis, &apiErr)
	if err != nil {
		return nil, cerrors.E(op, cerrors.KindNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, cerrors.E(op, cerrors.KindNetwork, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg))
	}
	return emojis, nil
}

func withSlash(u string) string {
	if u == "" || u[len(u)-1] == '/' {
		return u
	}
	return u + "/"
}
