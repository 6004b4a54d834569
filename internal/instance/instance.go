// Package instance provides the status limits of the instance being
// posted to.
package instance

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dghubble/sling"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

// XMaxCharacters is the X/Twitter status limit.
const XMaxCharacters = 280

// Instance holds the limits a composer counts against. The zero value
// reports no limits, which callers turn into defaults.
type Instance struct {
	Domain              string
	maxCharacters       int
	urlLength           int
	maxMediaAttachments int
}

// Static returns an Instance with fixed limits.
func Static(domain string, maxCharacters, urlLength int) *Instance {
	return &Instance{Domain: domain, maxCharacters: maxCharacters, urlLength: urlLength}
}

func (i *Instance) MaxCharacters() int {
	if i == nil {
		return 0
	}
	return i.maxCharacters
}

func (i *Instance) CharactersReservedPerURL() int {
	if i == nil {
		return 0
	}
	return i.urlLength
}

func (i *Instance) MaxMediaAttachments() int {
	if i == nil {
		return 0
	}
	return i.maxMediaAttachments
}

// WithMaxCharacters overrides the character limit when n > 0.
func (i *Instance) WithMaxCharacters(n int) *Instance {
	if n > 0 {
		i.maxCharacters = n
	}
	return i
}

// Fetch reads GET /api/v2/instance from instanceURL.
func Fetch(ctx context.Context, instanceURL string, httpClient *http.Client) (*Instance, error) {
	const op cerrors.Op = "instance.Fetch"
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !strings.HasSuffix(instanceURL, "/") {
		instanceURL += "/"
	}
	s := sling.New().Client(httpClient).Base(instanceURL)
	req, err := s.New().Get("api/v2/instance").Request()
	if err != nil {
		return nil, cerrors.E(op, cerrors.KindInvalid, err)
	}

	var body model.InstanceResp
	var apiErr model.APIError
	resp, err := s.Do(req.WithContext(ctx), &body, &apiErr)
	if err != nil {
		return nil, cerrors.E(op, cerrors.KindNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, cerrors.E(op, cerrors.KindNetwork, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, apiErr.Message))
	}

	st := body.Configuration.Statuses
	return &Instance{
		Domain:              body.Domain,
		maxCharacters:       st.MaxCharacters,
		urlLength:           st.CharactersReservedPerURL,
		maxMediaAttachments: st.MaxMediaAttachments,
	}, nil
}
