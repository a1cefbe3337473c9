package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"spotifydlp/internal/core"
	"spotifydlp/internal/i18n"
)

const outputTag = "[spotify-dlp] "

// printer writes localized terminal output. Status lines carry the tool tag, list rows don't.
type printer struct {
	w   io.Writer
	loc *i18n.Localizer
}

func newPrinter(w io.Writer, loc *i18n.Localizer) *printer {
	return &printer{w: w, loc: loc}
}

func (p *printer) say(key string, args ...interface{}) {
	fmt.Fprintln(p.w, outputTag+p.loc.T(key, args...))
}

func (p *printer) row(key string, args ...interface{}) {
	fmt.Fprintln(p.w, p.loc.T(key, args...))
}

func (p *printer) prompt(key string) {
	fmt.Fprint(p.w, outputTag+p.loc.T(key))
}

func (p *printer) blank() {
	fmt.Fprintln(p.w)
}

func printItems(out *printer, items []core.Item, format string) error {
	out.say("list.header", len(items))
	for _, item := range items {
		line, err := item.Render(format)
		if err != nil {
			return fmt.Errorf("%w; use \"--format help\" to see available fields", err)
		}
		out.row("list.item", item.Index, line)
	}
	return nil
}

// printFields lists the template fields, with the values of item when one is given.
func printFields(out *printer, item *core.Item) {
	var values map[string]string
	if item != nil {
		values = item.Fields()
	}

	out.say("fields.header")
	for _, name := range core.FieldNames() {
		out.row("fields.item", "{"+name+"}:", values[name])
	}
}

// confirmed reads one answer line; anything containing a "y" counts as yes.
func confirmed(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.Contains(strings.ToLower(line), "y")
}

func resultHandler(out *printer, format string, total int) core.ResultHandler {
	return func(item core.Item, _ string, status string, err error) {
		name, renderErr := item.Render(format)
		if renderErr != nil {
			name = item.Title
		}

		switch status {
		case core.DownloadStatusOK:
			out.say("success.download", name, item.Index, total)
		case core.DownloadStatusDuplicate:
			out.say("info.duplicate", name, item.Index, total)
		case core.DownloadStatusFailed:
			out.say("error.download_failed", err, item.Index)
		}
	}
}

// announcingFetcher prints the search keywords before every download.
type announcingFetcher struct {
	next core.MediaFetcher
	out  *printer
}

func (f *announcingFetcher) Fetch(ctx context.Context, item core.Item, target string) (string, error) {
	f.out.say("info.fetching", item.Keywords())
	return f.next.Fetch(ctx, item, target)
}
