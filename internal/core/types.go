package core

import (
	"context"
	"strings"

	"spotifydlp/pkg/fuzzy"
)

const (
	// WebBaseURL is the public web domain used for generated item links.
	WebBaseURL = "https://open.spotify.com"
	// URIScheme is the scheme of catalog URIs.
	URIScheme = "spotify"
	// SavedSentinel is the pseudo reference for the authenticated user's saved tracks.
	SavedSentinel = "saved"
)

// EntityType names a kind of catalog resource a reference can point to.
type EntityType string

const (
	EntityAlbum    EntityType = "album"
	EntityArtist   EntityType = "artist"
	EntityPlaylist EntityType = "playlist"
	EntityTrack    EntityType = "track"
	// EntitySaved is the id-less sentinel type for the user's library.
	EntitySaved EntityType = SavedSentinel
)

// SearchTypes lists the entity types a free-text search can target.
var SearchTypes = []EntityType{EntityAlbum, EntityArtist, EntityPlaylist, EntityTrack}

// IsSearchable reports whether t can be used as a search content type.
func (t EntityType) IsSearchable() bool {
	for _, st := range SearchTypes {
		if t == st {
			return true
		}
	}
	return false
}

// EntityReference is the parsed (type, id) pair of a link or URI.
type EntityReference struct {
	Type EntityType
	ID   string
}

func (r EntityReference) String() string {
	if r.Type == EntitySaved {
		return SavedSentinel
	}
	return URIScheme + ":" + string(r.Type) + ":" + r.ID
}

// ItemType discriminates which Item fields are populated.
type ItemType string

const (
	ItemTrack   ItemType = "track"
	ItemEpisode ItemType = "episode"
	ItemUnknown ItemType = "unknown"
)

// ParseItemType maps a catalog "type" value to an ItemType.
func ParseItemType(s string) ItemType {
	switch ItemType(s) {
	case ItemTrack:
		return ItemTrack
	case ItemEpisode:
		return ItemEpisode
	default:
		return ItemUnknown
	}
}

// Item is one normalized track or episode. Fields are verbatim catalog values except
// DurationSeconds and Index. Index is assigned once, after the whole sequence is assembled.
type Item struct {
	ID              string
	Type            ItemType
	Title           string
	Authors         []string
	Album           string
	ReleaseDate     string
	DurationSeconds int
	CoverURL        string // empty when the catalog has no image
	EntryNumber     int    // 0 for episodes and unknown entries
	Index           int
}

var keywordNormalizer = fuzzy.NewNormalizer()

// URL returns the public web link of the item.
func (i Item) URL() string {
	return WebBaseURL + "/" + string(i.Type) + "/" + i.ID
}

// URI returns the catalog URI of the item.
func (i Item) URI() string {
	return URIScheme + ":" + string(i.Type) + ":" + i.ID
}

// Keywords returns the match key used to look the item up on the media search engine.
func (i Item) Keywords() string {
	return keywordNormalizer.SearchKey(i.Title, i.Authors, i.Album)
}

// AuthorList returns the authors joined the way they are interpolated in templates.
func (i Item) AuthorList() string {
	return strings.Join(i.Authors, ", ")
}

// AssignIndexes numbers items 1..N in sequence order.
func AssignIndexes(items []Item) {
	for n := range items {
		items[n].Index = n + 1
	}
}

// Catalog resolves user input into items.
type Catalog interface {
	ItemsByLink(ctx context.Context, raw string) ([]Item, error)
	ItemsBySearch(ctx context.Context, query string, contentType EntityType) ([]Item, error)
}

// MediaFetcher locates and downloads audio for one item to target (a path without extension).
// It returns the path of the written file.
type MediaFetcher interface {
	Fetch(ctx context.Context, item Item, target string) (string, error)
}

// DedupStore remembers track ids already handled during a run.
type DedupStore interface {
	Has(trackID string) bool
	Add(trackID string)
	Size() int
}

// MetricsRecorder receives pipeline events. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordRequest(endpoint string, status int)
	RecordPage(entity EntityType)
	RecordItems(entity EntityType, count int)
	RecordDownload(status string)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) RecordRequest(string, int) {}
func (NopRecorder) RecordPage(EntityType) {}
func (NopRecorder) RecordItems(EntityType, int) {}
func (NopRecorder) RecordDownload(string) {}
