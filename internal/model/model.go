package model

import "time"

// Visibility is the audience of a post.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityDirect:
		return true
	}
	return false
}

// AccountRef identifies an account as "user" (local) or "user@domain".
type AccountRef struct {
	ID   string `json:"id"`
	Acct string `json:"acct"`
}

// Status is a prior post referenced by an editor session (reply target,
// quoted post, or the post being edited).
type Status struct {
	ID          string       `json:"id"`
	Account     AccountRef   `json:"account"`
	Content     string       `json:"content"` // HTML
	SpoilerText string       `json:"spoiler_text"`
	Visibility  Visibility   `json:"visibility"`
	Mentions    []AccountRef `json:"mentions"`
}

// MediaContainer is one media attachment being composed.
type MediaContainer struct {
	ID          string
	Path        string // local file, uploaded on submit
	MIME        string
	Description string
}

// PollConfig describes a poll attached to a post.
type PollConfig struct {
	Options   []string
	ExpiresIn time.Duration
	Multiple  bool
}

// --- custom emoji (GET /api/v1/custom_emojis) ---

type EmojiRef struct {
	Shortcode       string `json:"shortcode"`
	URL             string `json:"url"`
	StaticURL       string `json:"static_url"`
	VisibleInPicker bool   `json:"visible_in_picker"`
	Category        string `json:"category,omitempty"`
}

// --- instance (GET /api/v2/instance) ---

type InstanceResp struct {
	Domain        string `json:"domain"`
	Configuration struct {
		Statuses struct {
			MaxCharacters            int `json:"max_characters"`
			MaxMediaAttachments      int `json:"max_media_attachments"`
			CharactersReservedPerURL int `json:"characters_reserved_per_url"`
		} `json:"statuses"`
	} `json:"configuration"`
}

// APIError is the error body returned by Mastodon-style endpoints.
type APIError struct {
	Message string `json:"error"`
}

// --- v1.1 media/upload (simple upload) ---

type MediaUploadResp struct {
	MediaID       int64  `json:"media_id"`
	MediaIDString string `json:"media_id_string"`
}
