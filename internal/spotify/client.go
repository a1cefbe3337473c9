// Package spotify resolves catalog links, URIs and searches into items through the Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"spotifydlp/internal/core"
	"spotifydlp/pkg/text"
)

const (
	// DefaultBaseURL is the Web API root all request paths are appended to.
	DefaultBaseURL = "https://api.spotify.com/v1"
	// AlbumPageSize is the largest page the album tracks endpoint serves.
	AlbumPageSize = 50
	// PlaylistPageSize is the largest page the playlist tracks endpoint serves.
	PlaylistPageSize = 100
	// SavedPageSize is the largest page the saved tracks endpoint serves.
	SavedPageSize = 50
	// SearchLimit is the number of search results considered; only the best match is fetched.
	SearchLimit = 1
)

// Client fetches catalog entities and flattens them into items.
//
// Requests are strictly sequential and the client adds no timeout of its own; deadlines
// come from the caller's context or the injected http.Client.
type Client struct {
	client           *spotify.Client
	session          TokenProvider
	http             *http.Client
	baseURL          string
	market           string
	albumPageSize    int
	playlistPageSize int
	savedPageSize    int
	parser           *text.Parser
	metrics          core.MetricsRecorder
	logger           *zap.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithMarket sets the market artist top tracks are scoped to.
func WithMarket(market string) Option {
	return func(c *Client) {
		if market != "" {
			c.market = market
		}
	}
}

// WithPageSizes overrides the album, playlist and saved tracks page sizes. Values <= 0
// keep the default.
func WithPageSizes(album, playlist, saved int) Option {
	return func(c *Client) {
		if album > 0 {
			c.albumPageSize = album
		}
		if playlist > 0 {
			c.playlistPageSize = playlist
		}
		if saved > 0 {
			c.savedPageSize = saved
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(c *Client) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

func NewClient(session TokenProvider, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		session:          session,
		http:             http.DefaultClient,
		baseURL:          DefaultBaseURL,
		market:           core.DefaultMarket,
		albumPageSize:    AlbumPageSize,
		playlistPageSize: PlaylistPageSize,
		savedPageSize:    SavedPageSize,
		parser:           text.NewParser(),
		metrics:          core.NopRecorder{},
		logger:           logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	basePath := ""
	if u, err := url.Parse(c.baseURL); err == nil {
		basePath = strings.TrimSuffix(u.Path, "/")
	}

	c.client = spotify.New(&http.Client{
		Transport: &catalogTransport{
			base:     base,
			session:  c.session,
			basePath: basePath,
			metrics:  c.metrics,
			logger:   c.logger,
		},
		Timeout: c.http.Timeout,
	}, spotify.WithBaseURL(strings.TrimSuffix(c.baseURL, "/")+"/"))

	return c
}

// ItemsByLink parses a web link, URI or the saved sentinel and fetches its items.
func (c *Client) ItemsByLink(ctx context.Context, raw string) ([]core.Item, error) {
	ref, err := c.parser.ParseReference(raw)
	if err != nil {
		return nil, err
	}
	return c.ItemsByReference(ctx, ref)
}

// ItemsByReference fetches every item of the referenced entity, in catalog order, with
// indexes 1..N. Unsupported types fail before any request is made.
func (c *Client) ItemsByReference(ctx context.Context, ref core.EntityReference) ([]core.Item, error) {
	var (
		items []core.Item
		err   error
	)

	switch ref.Type {
	case core.EntityAlbum:
		items, err = c.albumItems(ctx, ref.ID)
	case core.EntityArtist:
		items, err = c.artistItems(ctx, ref.ID)
	case core.EntityPlaylist:
		items, err = c.entryItems(ctx, core.EntityPlaylist, c.playlistPage(spotify.ID(ref.ID)), c.playlistPageSize)
	case core.EntitySaved:
		items, err = c.entryItems(ctx, core.EntitySaved, c.savedPage, c.savedPageSize)
	case core.EntityTrack:
		items, err = c.trackItems(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, ref.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	core.AssignIndexes(items)
	c.metrics.RecordItems(ref.Type, len(items))

	c.logger.Info("Fetched catalog items",
		zap.String("ref", ref.String()),
		zap.Int("items", len(items)))

	return items, nil
}

// ItemsBySearch looks up the single best match of contentType for query and fetches its
// items. No match yields an empty slice and a nil error.
func (c *Client) ItemsBySearch(ctx context.Context, query string, contentType core.EntityType) ([]core.Item, error) {
	if !contentType.IsSearchable() {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, contentType)
	}

	result, err := c.client.Search(withEndpoint(ctx, "search"), query, searchTypes[contentType],
		spotify.Limit(SearchLimit))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, catalogError("/search", err))
	}

	id := firstResultID(result, contentType)
	if id == "" {
		c.logger.Info("Search returned no results",
			zap.String("query", query),
			zap.String("type", string(contentType)))
		return []core.Item{}, nil
	}

	c.logger.Debug("Search resolved",
		zap.String("query", query),
		zap.String("type", string(contentType)),
		zap.String("id", string(id)))

	return c.ItemsByReference(ctx, core.EntityReference{Type: contentType, ID: string(id)})
}

// albumItems reads the album header for its name, cover, date and track count, then pages
// its tracks until the reported count is reached.
func (c *Client) albumItems(ctx context.Context, id string) ([]core.Item, error) {
	path := "/albums/" + id

	album, err := c.client.GetAlbum(withEndpoint(ctx, "album"), spotify.ID(id))
	if err != nil {
		return nil, catalogError(path, err)
	}
	total := album.Tracks.Total

	items := make([]core.Item, 0, total)
	for len(items) < total {
		page, err := c.client.GetAlbumTracks(withEndpoint(ctx, "album_tracks"), spotify.ID(id),
			spotify.Limit(c.albumPageSize), spotify.Offset(len(items)))
		if err != nil {
			return nil, catalogError(path+"/tracks", err)
		}
		c.metrics.RecordPage(core.EntityAlbum)

		if len(page.Tracks) == 0 {
			c.logger.Warn("Album page empty before reported total",
				zap.String("album", id),
				zap.Int("fetched", len(items)),
				zap.Int("total", total))
			break
		}

		for n := range page.Tracks {
			items = append(items, trackItem(&page.Tracks[n], &album.SimpleAlbum))
		}
	}

	return items, nil
}

func (c *Client) artistItems(ctx context.Context, id string) ([]core.Item, error) {
	tracks, err := c.client.GetArtistsTopTracks(withEndpoint(ctx, "artist_top_tracks"), spotify.ID(id), c.market)
	if err != nil {
		return nil, catalogError("/artists/"+id+"/top-tracks", err)
	}
	c.metrics.RecordPage(core.EntityArtist)

	items := make([]core.Item, 0, len(tracks))
	for n := range tracks {
		items = append(items, fullTrackItem(&tracks[n]))
	}
	return items, nil
}

func (c *Client) trackItems(ctx context.Context, id string) ([]core.Item, error) {
	track, err := c.client.GetTrack(withEndpoint(ctx, "track"), spotify.ID(id))
	if err != nil {
		return nil, catalogError("/tracks/"+id, err)
	}
	c.metrics.RecordPage(core.EntityTrack)

	return []core.Item{fullTrackItem(track)}, nil
}

// entryPage fetches the entries of a playlist or of the saved library starting at offset,
// along with the reported entry total. A nil entry marks a slot without a track.
type entryPage func(ctx context.Context, offset, limit int) ([]*spotify.FullTrack, int, error)

func (c *Client) playlistPage(id spotify.ID) entryPage {
	path := "/playlists/" + string(id) + "/tracks"
	return func(ctx context.Context, offset, limit int) ([]*spotify.FullTrack, int, error) {
		page, err := c.client.GetPlaylistItems(withEndpoint(ctx, "playlist_tracks"), id,
			spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, 0, catalogError(path, err)
		}

		// Episodes and unavailable entries leave Track.Track nil.
		entries := make([]*spotify.FullTrack, len(page.Items))
		for n := range page.Items {
			entries[n] = page.Items[n].Track.Track
		}
		return entries, page.Total, nil
	}
}

func (c *Client) savedPage(ctx context.Context, offset, limit int) ([]*spotify.FullTrack, int, error) {
	page, err := c.client.CurrentUsersTracks(withEndpoint(ctx, "saved_tracks"),
		spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, 0, catalogError("/me/tracks", err)
	}

	entries := make([]*spotify.FullTrack, len(page.Tracks))
	for n := range page.Tracks {
		if page.Tracks[n].ID != "" {
			entries[n] = &page.Tracks[n].FullTrack
		}
	}
	return entries, page.Total, nil
}

// entryItems pages a playlist or the saved library. Only entries holding a track are kept,
// but every consumed entry advances the offset, so paging stops at the reported total.
func (c *Client) entryItems(ctx context.Context, entity core.EntityType, fetch entryPage, pageSize int) ([]core.Item, error) {
	var (
		items    []core.Item
		consumed int
		skipped  int
		total    = -1
	)

	for total < 0 || consumed < total {
		entries, reported, err := fetch(ctx, consumed, pageSize)
		if err != nil {
			return nil, err
		}
		c.metrics.RecordPage(entity)
		total = reported

		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			consumed++
			if entry == nil || core.ParseItemType(entry.Type) != core.ItemTrack {
				skipped++
				continue
			}
			items = append(items, fullTrackItem(entry))
		}
	}

	if skipped > 0 {
		c.logger.Debug("Skipped non-track entries",
			zap.String("entity", string(entity)),
			zap.Int("skipped", skipped),
			zap.Int("total", total))
	}

	if items == nil {
		items = []core.Item{}
	}
	return items, nil
}
