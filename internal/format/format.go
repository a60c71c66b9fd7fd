// Package format defines the fixed set of output formats the exporter can produce.
package format

import (
	"fmt"
	"strings"

	"github.com/starford/kenaz-export/internal/apperr"
)

// Format describes one output format.
type Format struct {
	Name            string `json:"name"`
	Extension       string `json:"extension"`        // canonical extension, no dot
	Writer          string `json:"writer,omitempty"` // pandoc writer; empty means infer from the output file
	NeedsConverter  bool   `json:"needs_converter"`
	NeedsTypesetter bool   `json:"needs_typesetter"`
}

// Subfolder is the default folder the format's files are written into.
func (f Format) Subfolder() string {
	return f.Name
}

// Names of the in-process formats.
const (
	HTML = "html"
	Map  = "map"
	PDF  = "pdf"
)

var all = []Format{
	{Name: HTML, Extension: "html"},
	{Name: Map, Extension: "html"},
	{Name: "md", Extension: "md", Writer: "markdown", NeedsConverter: true},
	{Name: "docx", Extension: "docx", Writer: "docx", NeedsConverter: true},
	{Name: "odt", Extension: "odt", Writer: "odt", NeedsConverter: true},
	{Name: "rtf", Extension: "rtf", Writer: "rtf", NeedsConverter: true},
	{Name: "pptx", Extension: "pptx", Writer: "pptx", NeedsConverter: true},
	{Name: "epub", Extension: "epub", Writer: "epub", NeedsConverter: true},
	{Name: "latex", Extension: "tex", Writer: "latex", NeedsConverter: true},
	{Name: "rst", Extension: "rst", Writer: "rst", NeedsConverter: true},
	{Name: "asciidoc", Extension: "adoc", Writer: "asciidoc", NeedsConverter: true},
	{Name: "mediawiki", Extension: "mediawiki", Writer: "mediawiki", NeedsConverter: true},
	{Name: "dokuwiki", Extension: "txt", Writer: "dokuwiki", NeedsConverter: true},
	{Name: "org", Extension: "org", Writer: "org", NeedsConverter: true},
	{Name: PDF, Extension: "pdf", NeedsConverter: true, NeedsTypesetter: true},
}

var byName = func() map[string]Format {
	m := make(map[string]Format, len(all))
	for _, f := range all {
		m[f.Name] = f
	}
	return m
}()

// Lookup returns the format registered under name (case-insensitive).
func Lookup(name string) (Format, error) {
	f, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Format{}, fmt.Errorf("format %q: %w", name, apperr.ErrUnknownFormat)
	}
	return f, nil
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Format {
	f, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return f
}

// All returns every registered format in declaration order.
func All() []Format {
	out := make([]Format, len(all))
	copy(out, all)
	return out
}
