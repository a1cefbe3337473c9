package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bogem/id3v2"
	"go.uber.org/zap"

	"spotifydlp/internal/core"
)

// maxCoverBytes bounds the downloaded cover image.
const maxCoverBytes = 10 << 20

// Tagger writes ID3v2.3 frames from catalog metadata into mp3 files.
type Tagger struct {
	http   *http.Client
	logger *zap.Logger
}

func NewTagger(client *http.Client, logger *zap.Logger) *Tagger {
	if client == nil {
		client = http.DefaultClient
	}
	return &Tagger{http: client, logger: logger}
}

// Tag sets title, artist, album, year and track number, and embeds the cover when the
// item has one. A cover that cannot be fetched is skipped.
func (t *Tagger) Tag(ctx context.Context, path string, item core.Item) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("id3 open: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF16)
	tag.SetTitle(item.Title)
	tag.SetArtist(item.AuthorList())
	tag.SetAlbum(item.Album)
	if len(item.ReleaseDate) >= 4 {
		tag.SetYear(item.ReleaseDate[:4])
	}
	if item.EntryNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), strconv.Itoa(item.EntryNumber))
	}

	if item.CoverURL != "" {
		picture, mime, err := t.fetchCover(ctx, item.CoverURL)
		if err != nil {
			t.logger.Debug("Skipping cover", zap.String("url", item.CoverURL), zap.Error(err))
		} else {
			tag.DeleteFrames(tag.CommonID("Attached picture"))
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    tag.DefaultEncoding(),
				MimeType:    mime,
				PictureType: id3v2.PTFrontCover,
				Description: "Cover",
				Picture:     picture,
			})
		}
	}

	return tag.Save()
}

func (t *Tagger) fetchCover(ctx context.Context, coverURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, http.NoBody)
	if err != nil {
		return nil, "", err
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover request returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, "", err
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}
