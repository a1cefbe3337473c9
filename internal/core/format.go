package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultFormat is the template used for display and file names when none is given.
	DefaultFormat = "{title} - {authors} ({album})"
	// FormatHelp is the format value that asks for the list of available fields.
	FormatHelp = "help"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// fieldNames is the ordered set of placeholders a template may use.
var fieldNames = []string{
	"index", "id", "type", "title", "authors", "album", "date",
	"duration", "cover", "entry", "url", "uri", "keywords",
}

// FieldNames returns the placeholders accepted by Render.
func FieldNames() []string {
	names := make([]string, len(fieldNames))
	copy(names, fieldNames)
	return names
}

// Fields returns the placeholder values of the item.
func (i Item) Fields() map[string]string {
	entry := ""
	if i.EntryNumber > 0 {
		entry = strconv.Itoa(i.EntryNumber)
	}

	return map[string]string{
		"index":    strconv.Itoa(i.Index),
		"id":       i.ID,
		"type":     string(i.Type),
		"title":    i.Title,
		"authors":  i.AuthorList(),
		"album":    i.Album,
		"date":     i.ReleaseDate,
		"duration": strconv.Itoa(i.DurationSeconds),
		"cover":    i.CoverURL,
		"entry":    entry,
		"url":      i.URL(),
		"uri":      i.URI(),
		"keywords": i.Keywords(),
	}
}

// Render interpolates {field} placeholders. "{{" and "}}" produce literal braces.
func (i Item) Render(template string) (string, error) {
	return render(template, i.Fields())
}

// RenderSafe renders template and makes the result usable as a file name.
func (i Item) RenderSafe(template string) (string, error) {
	s, err := i.Render(template)
	if err != nil {
		return "", err
	}
	return SanitizeFilename(s), nil
}

// SanitizeFilename replaces characters illegal in file names with an underscore and trims whitespace.
func SanitizeFilename(s string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(s, "_"))
}

// ValidateTemplate checks template against the known field set without needing an item.
func ValidateTemplate(template string) error {
	known := make(map[string]string, len(fieldNames))
	for _, name := range fieldNames {
		known[name] = ""
	}
	_, err := render(template, known)
	return err
}

func render(template string, fields map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	for pos := 0; pos < len(template); {
		c := template[pos]
		switch {
		case c == '{' && strings.HasPrefix(template[pos:], "{{"):
			out.WriteByte('{')
			pos += 2
		case c == '}' && strings.HasPrefix(template[pos:], "}}"):
			out.WriteByte('}')
			pos += 2
		case c == '{':
			end := strings.IndexAny(template[pos+1:], "{}")
			if end == -1 || template[pos+1+end] != '}' {
				return "", fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, pos)
			}
			name := template[pos+1 : pos+1+end]
			value, ok := fields[name]
			if !ok {
				return "", fmt.Errorf("%w %q", ErrUnknownField, name)
			}
			out.WriteString(value)
			pos += end + 2
		case c == '}':
			return "", fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, pos)
		default:
			out.WriteByte(c)
			pos++
		}
	}

	return out.String(), nil
}
