package download

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"spotifydlp/internal/core"
)

type call struct {
	name string
	args []string
}

func (c call) has(arg string) bool {
	for _, a := range c.args {
		if a == arg {
			return true
		}
	}
	return false
}

func (c call) after(flag string) string {
	for n, a := range c.args {
		if a == flag && n+1 < len(c.args) {
			return c.args[n+1]
		}
	}
	return ""
}

func (c call) target() string {
	return c.args[len(c.args)-1]
}

// fakeRunner answers searches by source prefix and records every invocation.
type fakeRunner struct {
	calls       []call
	searches    map[string]string
	searchErrs  map[string]error
	download    string
	downloadErr error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	c := call{name: name, args: args}
	f.calls = append(f.calls, c)

	if c.has("--simulate") {
		source := c.target()
		for prefix, err := range f.searchErrs {
			if strings.HasPrefix(source, prefix) {
				return nil, err
			}
		}
		for prefix, out := range f.searches {
			if strings.HasPrefix(source, prefix) {
				return []byte(out), nil
			}
		}
		return nil, nil
	}

	return []byte(f.download), f.downloadErr
}

func (f *fakeRunner) searchCalls() []call {
	var calls []call
	for _, c := range f.calls {
		if c.has("--simulate") {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *fakeRunner) downloadCalls() []call {
	var calls []call
	for _, c := range f.calls {
		if !c.has("--simulate") {
			calls = append(calls, c)
		}
	}
	return calls
}

func testItem() core.Item {
	return core.Item{
		ID:              "t1",
		Type:            core.ItemTrack,
		Title:           "Numb",
		Authors:         []string{"Linkin Park"},
		Album:           "Meteora",
		DurationSeconds: 185,
		Index:           1,
	}
}

func newTestYTDLP(runner Runner, codec string) *YTDLP {
	cfg := core.DefaultConfig().Download
	cfg.Codec = codec
	return NewYTDLP(&cfg, runner, nil, zap.NewNop())
}

const (
	musicPrefix  = "https://music.youtube.com/search?q="
	searchPrefix = "ytsearch"
)

func TestYTDLP_FetchUsesMusicSearchFirst(t *testing.T) {
	runner := &fakeRunner{
		searches: map[string]string{
			musicPrefix: "abc\thttps://music.youtube.com/watch?v=abc\t186.0\tNumb\n" +
				"def\thttps://music.youtube.com/watch?v=def\t184\tNumb (Live)\n",
		},
		download: "[download] ignored\n/out/Numb.m4a\n",
	}

	path, err := newTestYTDLP(runner, "m4a").Fetch(context.Background(), testItem(), "/out/Numb")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if path != "/out/Numb.m4a" {
		t.Errorf("path = %q", path)
	}

	searches := runner.searchCalls()
	if len(searches) != 1 {
		t.Fatalf("searches = %d, want 1 (generic search not needed)", len(searches))
	}
	if got := searches[0].target(); got != musicPrefix+"numb+linkin+park+meteora#songs" {
		t.Errorf("search source = %q", got)
	}
	if got := searches[0].after("--match-filter"); got != "duration>=180 & duration<=190" {
		t.Errorf("match filter = %q", got)
	}
	if got := searches[0].after("--playlist-end"); got != "10" {
		t.Errorf("playlist end = %q", got)
	}

	downloads := runner.downloadCalls()
	if len(downloads) != 1 {
		t.Fatalf("downloads = %d, want 1", len(downloads))
	}
	d := downloads[0]
	if d.name != "yt-dlp" || d.target() != "https://music.youtube.com/watch?v=abc" {
		t.Errorf("download call = %v", d)
	}
	if d.after("-f") != FormatSelector || d.after("--audio-format") != "m4a" || d.after("-o") != "/out/Numb.%(ext)s" {
		t.Errorf("download args = %v", d.args)
	}
	if !d.has("--extract-audio") || !d.has("--no-playlist") {
		t.Errorf("download args = %v", d.args)
	}
}

func TestYTDLP_FallsBackToGenericSearch(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
	}{
		{
			name: "music search empty",
			runner: &fakeRunner{searches: map[string]string{
				searchPrefix: "xyz\thttps://www.youtube.com/watch?v=xyz\t185\tLinkin Park - Numb\n",
			}},
		},
		{
			name: "music search failing",
			runner: &fakeRunner{
				searchErrs: map[string]error{musicPrefix: errors.New("exit status 1")},
				searches: map[string]string{
					searchPrefix: "xyz\thttps://www.youtube.com/watch?v=xyz\t185\tLinkin Park - Numb\n",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := newTestYTDLP(tt.runner, "m4a").Fetch(context.Background(), testItem(), "/out/Numb")
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if path != "/out/Numb.m4a" {
				t.Errorf("path = %q, want fallback to target and codec", path)
			}

			searches := tt.runner.searchCalls()
			if len(searches) != 2 {
				t.Fatalf("searches = %d, want 2", len(searches))
			}
			if got := searches[1].target(); got != "ytsearch10:numb linkin park meteora" {
				t.Errorf("second source = %q", got)
			}
			if got := tt.runner.downloadCalls()[0].target(); got != "https://www.youtube.com/watch?v=xyz" {
				t.Errorf("downloaded %q", got)
			}
		})
	}
}

func TestYTDLP_NoCandidates(t *testing.T) {
	runner := &fakeRunner{}

	_, err := newTestYTDLP(runner, "m4a").Fetch(context.Background(), testItem(), "/out/Numb")
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("Fetch() error = %v, want ErrNoCandidates", err)
	}
	if n := len(runner.downloadCalls()); n != 0 {
		t.Errorf("downloads = %d, want 0", n)
	}
}

func TestYTDLP_DownloadError(t *testing.T) {
	runner := &fakeRunner{
		searches:    map[string]string{musicPrefix: "abc\thttps://music.youtube.com/watch?v=abc\t185\tNumb\n"},
		downloadErr: errors.New("exit status 1"),
	}

	_, err := newTestYTDLP(runner, "mp3").Fetch(context.Background(), testItem(), "/out/Numb")
	if err == nil || !strings.Contains(err.Error(), "watch?v=abc") {
		t.Errorf("Fetch() error = %v", err)
	}
}

func TestYTDLP_MatchFilter(t *testing.T) {
	y := newTestYTDLP(&fakeRunner{}, "m4a")

	tests := []struct {
		name     string
		duration int
		expected string
	}{
		{"regular", 200, "duration>=195 & duration<=205"},
		{"short clamps at zero", 3, "duration>=0 & duration<=8"},
		{"unknown duration", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem()
			item.DurationSeconds = tt.duration
			if got := y.matchFilter(item); got != tt.expected {
				t.Errorf("matchFilter() = %q, want %q", got, tt.expected)
			}
		})
	}

	cfg := core.DefaultConfig().Download
	cfg.DurationToleranceSecs = 0
	if got := NewYTDLP(&cfg, &fakeRunner{}, nil, zap.NewNop()).matchFilter(testItem()); got != "" {
		t.Errorf("matchFilter() with zero tolerance = %q, want no filter", got)
	}
}

func TestParseCandidates(t *testing.T) {
	out := "a\thttps://y/a\t201.5\tTitle\twith tab\n" +
		"NA\tNA\tNA\tNA\n" +
		"garbage line\n" +
		"b\thttps://y/b\tNA\tOther\r\n"

	candidates := parseCandidates([]byte(out))
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(candidates), candidates)
	}
	if candidates[0].DurationSeconds != 201 || candidates[0].Title != "Title\twith tab" {
		t.Errorf("candidates[0] = %+v", candidates[0])
	}
	if candidates[1].URL != "https://y/b" || candidates[1].DurationSeconds != 0 || candidates[1].Title != "Other" {
		t.Errorf("candidates[1] = %+v", candidates[1])
	}
}

func TestYTDLP_Sources(t *testing.T) {
	cfg := core.DefaultConfig().Download
	cfg.MaxResults = 3
	y := NewYTDLP(&cfg, &fakeRunner{}, nil, zap.NewNop())

	item := testItem()
	item.Title = "Señorita & Co"
	sources := y.Sources(item)

	want := []string{
		"https://music.youtube.com/search?q=senorita+co+linkin+park+meteora#songs",
		"ytsearch3:senorita co linkin park meteora",
	}
	for n := range want {
		if sources[n] != want[n] {
			t.Errorf("sources[%d] = %q, want %q", n, sources[n], want[n])
		}
	}
}
