package spotify

import (
	"github.com/zmb3/spotify/v2"

	"spotifydlp/internal/core"
)

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// trackItem normalizes a catalog track. album carries the name, date and cover, since
// album child pages do not embed them in each track.
func trackItem(track *spotify.SimpleTrack, album *spotify.SimpleAlbum) core.Item {
	item := core.Item{
		ID:              string(track.ID),
		Type:            core.ParseItemType(track.Type),
		Title:           track.Name,
		Authors:         make([]string, 0, len(track.Artists)),
		DurationSeconds: track.Duration / 1000,
	}

	for _, artist := range track.Artists {
		item.Authors = append(item.Authors, artist.Name)
	}

	if album != nil {
		item.Album = album.Name
		item.ReleaseDate = album.ReleaseDate
		item.CoverURL = firstImage(album.Images)
	}
	if item.Type == core.ItemTrack {
		item.EntryNumber = track.TrackNumber
	}

	return item
}

func fullTrackItem(track *spotify.FullTrack) core.Item {
	return trackItem(&track.SimpleTrack, &track.Album)
}

// firstResultID returns the id of the first non-null search result of contentType.
func firstResultID(result *spotify.SearchResult, contentType core.EntityType) spotify.ID {
	var ids []spotify.ID

	switch contentType {
	case core.EntityAlbum:
		if result.Albums != nil {
			for n := range result.Albums.Albums {
				ids = append(ids, result.Albums.Albums[n].ID)
			}
		}
	case core.EntityArtist:
		if result.Artists != nil {
			for n := range result.Artists.Artists {
				ids = append(ids, result.Artists.Artists[n].ID)
			}
		}
	case core.EntityPlaylist:
		if result.Playlists != nil {
			for n := range result.Playlists.Playlists {
				ids = append(ids, result.Playlists.Playlists[n].ID)
			}
		}
	case core.EntityTrack:
		if result.Tracks != nil {
			for n := range result.Tracks.Tracks {
				ids = append(ids, result.Tracks.Tracks[n].ID)
			}
		}
	}

	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

var searchTypes = map[core.EntityType]spotify.SearchType{
	core.EntityAlbum:    spotify.SearchTypeAlbum,
	core.EntityArtist:   spotify.SearchTypeArtist,
	core.EntityPlaylist: spotify.SearchTypePlaylist,
	core.EntityTrack:    spotify.SearchTypeTrack,
}
