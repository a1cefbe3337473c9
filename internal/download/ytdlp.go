// Package download finds and fetches audio for catalog items with yt-dlp.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"spotifydlp/internal/core"
)

const (
	// MusicSearchURL is the first candidate source, a song search on YouTube Music.
	MusicSearchURL = "https://music.youtube.com/search?q=%s#songs"
	// FormatSelector prefers m4a and falls back to any audio stream.
	FormatSelector = "m4a/bestaudio/best"

	candidateFields = "%(id)s\t%(webpage_url)s\t%(duration)s\t%(title)s"
)

// ErrNoCandidates is returned when no source yields a matching upload.
var ErrNoCandidates = errors.New("no matching candidates")

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, lastLine(msg))
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Candidate is one upload a search returned.
type Candidate struct {
	ID              string
	URL             string
	Title           string
	DurationSeconds int
}

// YTDLP implements core.MediaFetcher on top of the yt-dlp binary.
type YTDLP struct {
	path       string
	codec      string
	tolerance  int
	maxResults int
	runner     Runner
	tagger     *Tagger
	logger     *zap.Logger
}

// NewYTDLP builds a fetcher. tagger may be nil to skip tagging.
func NewYTDLP(cfg *core.DownloadConfig, runner Runner, tagger *Tagger, logger *zap.Logger) *YTDLP {
	if runner == nil {
		runner = ExecRunner{}
	}
	path := cfg.YTDLPPath
	if path == "" {
		path = "yt-dlp"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = core.DefaultMaxResults
	}
	return &YTDLP{
		path:       path,
		codec:      cfg.Codec,
		tolerance:  cfg.DurationToleranceSecs,
		maxResults: maxResults,
		runner:     runner,
		tagger:     tagger,
		logger:     logger,
	}
}

// Sources returns the search locations tried for item, in order.
func (y *YTDLP) Sources(item core.Item) []string {
	keywords := item.Keywords()
	return []string{
		fmt.Sprintf(MusicSearchURL, url.QueryEscape(keywords)),
		"ytsearch" + strconv.Itoa(y.maxResults) + ":" + keywords,
	}
}

// Fetch downloads the best candidate for item to target plus the codec extension. The
// generic search is only consulted when the music search yields nothing.
func (y *YTDLP) Fetch(ctx context.Context, item core.Item, target string) (string, error) {
	var candidates []Candidate
	for _, source := range y.Sources(item) {
		found, err := y.Search(ctx, item, source)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			y.logger.Debug("Candidate search failed",
				zap.String("source", source),
				zap.Error(err))
			continue
		}
		if len(found) > 0 {
			candidates = found
			break
		}
		y.logger.Debug("No candidates from source", zap.String("source", source))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w for %q", ErrNoCandidates, item.Keywords())
	}

	best := candidates[0]
	y.logger.Debug("Downloading candidate",
		zap.String("id", item.ID),
		zap.String("candidate", best.URL),
		zap.String("title", best.Title),
		zap.Int("duration", best.DurationSeconds))

	path, err := y.download(ctx, best, target)
	if err != nil {
		return "", err
	}

	if y.tagger != nil && y.codec == "mp3" {
		if err := y.tagger.Tag(ctx, path, item); err != nil {
			y.logger.Warn("Failed to write tags", zap.String("path", path), zap.Error(err))
		}
	}

	return path, nil
}

// Search lists the candidates of source whose duration fits the item's.
func (y *YTDLP) Search(ctx context.Context, item core.Item, source string) ([]Candidate, error) {
	args := []string{
		"--simulate",
		"--no-warnings",
		"--ignore-errors",
		"--print", candidateFields,
		"--playlist-end", strconv.Itoa(y.maxResults),
	}
	if filter := y.matchFilter(item); filter != "" {
		args = append(args, "--match-filter", filter)
	}
	args = append(args, source)

	out, err := y.runner.Run(ctx, y.path, args...)
	candidates := parseCandidates(out)
	if err != nil && len(candidates) == 0 {
		return nil, err
	}
	return candidates, nil
}

// matchFilter bounds candidate durations around the item's. A tolerance of 0 disables it.
func (y *YTDLP) matchFilter(item core.Item) string {
	if item.DurationSeconds <= 0 || y.tolerance <= 0 {
		return ""
	}
	low := item.DurationSeconds - y.tolerance
	if low < 0 {
		low = 0
	}
	return fmt.Sprintf("duration>=%d & duration<=%d", low, item.DurationSeconds+y.tolerance)
}

func (y *YTDLP) download(ctx context.Context, candidate Candidate, target string) (string, error) {
	args := []string{
		"-f", FormatSelector,
		"--extract-audio",
		"--audio-format", y.codec,
		"--no-playlist",
		"--no-warnings",
		"--print", "after_move:filepath",
		"-o", target + ".%(ext)s",
		candidate.URL,
	}

	out, err := y.runner.Run(ctx, y.path, args...)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", candidate.URL, err)
	}

	if path := lastLine(string(out)); path != "" {
		return path, nil
	}
	return target + "." + y.codec, nil
}

// parseCandidates reads the tab separated --print lines of a search run.
func parseCandidates(out []byte) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.SplitN(strings.TrimRight(line, "\r"), "\t", 4)
		if len(fields) != 4 || fields[1] == "" || fields[1] == "NA" {
			continue
		}
		duration, _ := strconv.ParseFloat(fields[2], 64)
		candidates = append(candidates, Candidate{
			ID:              fields[0],
			URL:             fields[1],
			DurationSeconds: int(duration),
			Title:           fields[3],
		})
	}
	return candidates
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
