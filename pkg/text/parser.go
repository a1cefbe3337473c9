// Package text classifies user input as catalog links, URIs or free text.
package text

import (
	"fmt"
	"regexp"

	"spotifydlp/internal/core"
)

var (
	// webLinkRegex matches open.spotify.com/<type>/<id>, with an optional locale segment
	// and trailing query or fragment.
	webLinkRegex = regexp.MustCompile(
		`^(?:https?://)?open\.spotify\.com/(?:intl-[a-z]{2}(?:-[a-z]{2})?/)?([a-z]+)/(\w+)(?:[?#].*)?$`)
	uriRegex = regexp.MustCompile(`^spotify:([a-z]+):(\w+)$`)
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseReference decomposes a web link, a catalog URI or the saved sentinel into an
// EntityReference. The input is matched as is; callers trim it if they need to.
func (p *Parser) ParseReference(input string) (core.EntityReference, error) {
	if input == core.SavedSentinel {
		return core.EntityReference{Type: core.EntitySaved}, nil
	}

	if m := webLinkRegex.FindStringSubmatch(input); m != nil {
		return core.EntityReference{Type: core.EntityType(m[1]), ID: m[2]}, nil
	}

	if m := uriRegex.FindStringSubmatch(input); m != nil {
		return core.EntityReference{Type: core.EntityType(m[1]), ID: m[2]}, nil
	}

	return core.EntityReference{}, fmt.Errorf("%w: %q", core.ErrInvalidReference, input)
}

// IsReference reports whether input parses as a link, URI or the saved sentinel.
func (p *Parser) IsReference(input string) bool {
	_, err := p.ParseReference(input)
	return err == nil
}
