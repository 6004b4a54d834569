// Package xclient adapts X/Twitter to the composer: it answers whether the
// OAuth1 credentials are valid and posts a composed thread as a reply chain.
package xclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
)

// Credentials are the OAuth1 user-context keys.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Missing names the unset credentials.
func (c Credentials) Missing() []string {
	var missing []string
	for _, kv := range []struct{ k, v string }{
		{"consumer_key", c.ConsumerKey},
		{"consumer_secret", c.ConsumerSecret},
		{"access_token", c.AccessToken},
		{"access_secret", c.AccessSecret},
	} {
		if kv.v == "" {
			missing = append(missing, kv.k)
		}
	}
	return missing
}

func (c Credentials) Complete() bool { return len(c.Missing()) == 0 }

// Client is an authenticated X client. Safe for concurrent use except
// for the cached authentication state, which is only read and written from
// IsAuthenticated.
type Client struct {
	creds  Credentials
	http   *http.Client
	tw     *twitter.Client
	logger *zap.Logger
	authed bool
}

type Option func(*clientOptions)

type clientOptions struct {
	base   *http.Client
	logger *zap.Logger
}

// WithHTTPClient sets the transport OAuth1 signing wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.base = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func New(creds Credentials, opts ...Option) *Client {
	o := clientOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, o.base)
	}
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(ctx, token)

	return &Client{
		creds:  creds,
		http:   httpClient,
		tw:     twitter.NewClient(httpClient),
		logger: o.logger,
	}
}

// IsAuthenticated verifies the credentials against the account endpoint.
// A rejected token reports false; a transport failure keeps the last
// known answer so a flaky network does not close the composer.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if !c.creds.Complete() {
		return false
	}
	if ctx.Err() != nil {
		return c.authed
	}

	_, resp, err := c.tw.Accounts.VerifyCredentials(&twitter.AccountVerifyParams{
		SkipStatus: twitter.Bool(true),
	})
	switch {
	case rejected(resp, err):
		c.logger.Warn("credentials rejected", zap.Error(err))
		c.authed = false
	case err == nil && resp != nil && resp.StatusCode < 300:
		c.authed = true
	default:
		if err == nil && resp != nil {
			err = fmt.Errorf("unexpected status %s", resp.Status)
		}
		c.logger.Warn("verify credentials failed", zap.Error(cerrors.E(cerrors.Op("xclient.IsAuthenticated"), cerrors.KindNetwork, err)))
	}
	return c.authed
}

func rejected(resp *http.Response, err error) bool {
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return true
	}
	var apiErr twitter.APIError
	if errors.As(err, &apiErr) {
		for _, d := range apiErr.Errors {
			// 32: could not authenticate, 89: invalid or expired token
			if d.Code == 32 || d.Code == 89 {
				return true
			}
		}
	}
	return false
}
