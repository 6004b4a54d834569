// Package budget computes how many characters a post has left.
//
// Remaining = maxChars - weightedLength(text). Weighting is pluggable: the
// default Policy counts every URL as a fixed length, known custom emoji
// shortcodes as one character, remote mentions by their local part, and
// everything else by code point. Nothing here blocks editing; a negative
// result is a value for the caller to render and gate submission on.
package budget

import (
	"regexp"
	"unicode/utf8"
)

const (
	// DefaultMaxCharacters applies when the instance does not report a limit.
	DefaultMaxCharacters = 500
	// DefaultURLLength is the length every URL is counted as.
	DefaultURLLength = 23
)

// Weigher returns the weighted length of text.
type Weigher interface {
	Weigh(text string) int
}

// WeigherFunc adapts a function to Weigher.
type WeigherFunc func(text string) int

func (f WeigherFunc) Weigh(text string) int { return f(text) }

// EmojiSet reports whether a shortcode (without colons) is a known custom emoji.
type EmojiSet interface {
	Has(shortcode string) bool
}

// ShortcodeSet is an EmojiSet backed by a map.
type ShortcodeSet map[string]struct{}

func NewShortcodeSet(shortcodes ...string) ShortcodeSet {
	s := make(ShortcodeSet, len(shortcodes))
	for _, c := range shortcodes {
		s[c] = struct{}{}
	}
	return s
}

func (s ShortcodeSet) Has(shortcode string) bool {
	_, ok := s[shortcode]
	return ok
}

// Limits are the instance-provided counting parameters.
type Limits struct {
	MaxCharacters int
	URLLength     int
}

func DefaultLimits() Limits {
	return Limits{MaxCharacters: DefaultMaxCharacters, URLLength: DefaultURLLength}
}

// Normalize fills zero or negative fields with defaults.
func (l Limits) Normalize() Limits {
	if l.MaxCharacters <= 0 {
		l.MaxCharacters = DefaultMaxCharacters
	}
	if l.URLLength <= 0 {
		l.URLLength = DefaultURLLength
	}
	return l
}

// groups: 1 = url, 2 = mention local part, 3 = emoji shortcode
var tokenPattern = regexp.MustCompile(
	`(https?://[^\s]*[^\s.,;:!?'")\]])` +
		`|@(\w+)@[\w-]+(?:\.[\w-]+)+` +
		`|:(\w{2,}):`)

// Policy is the default Weigher.
type Policy struct {
	URLLength int
	Emojis    EmojiSet // nil: no shortcode is known
}

func (p Policy) Weigh(text string) int {
	urlLen := p.URLLength
	if urlLen <= 0 {
		urlLen = DefaultURLLength
	}

	n, last := 0, 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		var w int
		switch {
		case m[2] >= 0:
			w = urlLen
		case m[4] >= 0:
			if start > 0 && isWordByte(text[start-1]) {
				continue // part of an address, not a mention
			}
			w = 1 + utf8.RuneCountInString(text[m[4]:m[5]])
		case m[6] >= 0:
			if p.Emojis == nil || !p.Emojis.Has(text[m[6]:m[7]]) {
				continue
			}
			w = 1
		}
		n += Length(text[last:start]) + w
		last = end
	}
	return n + Length(text[last:])
}

// Length is the literal code-point length of s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Remaining returns maxChars minus the weighted length of text. A maxChars of
// zero or less falls back to DefaultMaxCharacters; a nil weigher counts code points.
func Remaining(text string, maxChars int, w Weigher) int {
	if maxChars <= 0 {
		maxChars = DefaultMaxCharacters
	}
	if w == nil {
		return maxChars - Length(text)
	}
	return maxChars - w.Weigh(text)
}

// Calculator binds limits and a weigher.
type Calculator struct {
	Limits  Limits
	Weigher Weigher
}

// NewCalculator returns a Calculator using Policy with the given emoji set.
func NewCalculator(limits Limits, emojis EmojiSet) Calculator {
	limits = limits.Normalize()
	return Calculator{
		Limits:  limits,
		Weigher: Policy{URLLength: limits.URLLength, Emojis: emojis},
	}
}

func (c Calculator) Remaining(text string) int {
	return Remaining(text, c.Limits.MaxCharacters, c.Weigher)
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
