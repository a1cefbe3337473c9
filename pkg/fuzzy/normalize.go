// Package fuzzy builds normalized match keys for looking catalog items up on media search engines.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]`)
	featTailRegex   = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+.*$`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeArtist folds an artist name for matching.
func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = strings.ReplaceAll(artist, "&", " and ")
	return n.basicNormalize(artist)
}

// NormalizeTitle folds a title and drops "feat." credits, which are matched through the artists.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, "")
	title = featTailRegex.ReplaceAllString(title, "")
	return n.basicNormalize(title)
}

// SearchKey joins title, artists and album into one normalized search phrase.
// Empty parts are left out and repeated artists are only listed once.
func (n *Normalizer) SearchKey(title string, artists []string, album string) string {
	parts := make([]string, 0, len(artists)+2)
	if t := n.NormalizeTitle(title); t != "" {
		parts = append(parts, t)
	}

	seen := make(map[string]bool, len(artists))
	for _, artist := range artists {
		a := n.NormalizeArtist(artist)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		parts = append(parts, a)
	}

	if a := n.basicNormalize(album); a != "" {
		parts = append(parts, a)
	}

	return strings.Join(parts, " ")
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	// Diacritics are only stripped from Latin letters; kana voicing marks and the like are kept.
	var result strings.Builder
	afterLatin := false
	for _, r := range text {
		if unicode.IsMark(r) {
			if !afterLatin {
				result.WriteRune(r)
			}
			continue
		}
		result.WriteRune(r)
		afterLatin = unicode.Is(unicode.Latin, r)
	}
	text = norm.NFC.String(result.String())

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}
