// Package render turns the active document's Markdown into HTML using goldmark.
//
// Two modes are provided: Render produces a standalone HTML page, and
// RenderFragment produces a self-contained <section> meant to be
// concatenated with other fragments into one document.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/parser"
	"github.com/starford/kenaz-export/internal/workspace"
)

// Metadata describes the rendered document.
type Metadata struct {
	Title       string         `json:"title"`
	Tags        []string       `json:"tags,omitempty"`
	Links       []string       `json:"links,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Output is the result of rendering one document.
type Output struct {
	HTML     string
	Metadata Metadata
}

// Options configure the renderer.
type Options struct {
	// Sanitize lets raw HTML through goldmark and then cleans the result
	// with a bluemonday UGC policy. When false goldmark omits raw HTML.
	Sanitize bool
}

// Goldmark renders Markdown with GitHub-flavoured extensions.
type Goldmark struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a Goldmark renderer.
func New(opts Options) *Goldmark {
	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
	}
	g := &Goldmark{}
	if opts.Sanitize {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
		g.policy = newPolicy()
	}
	g.md = goldmark.New(rendererOpts...)
	return g
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "section", "li", "sup")
	p.AllowAttrs("class").OnElements("code", "section", "div", "a", "sup", "li")
	p.AllowAttrs("data-path").OnElements("section")
	return p
}

// Render produces a standalone HTML page for the document held by view.
func (g *Goldmark) Render(ctx context.Context, view *workspace.View, f format.Format) (*Output, error) {
	meta, body, err := g.body(ctx, view, linkToFile)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("<meta name=\"generator\" content=\"kenaz-export\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(meta.Title))
	if f.Name == format.HTML {
		sb.WriteString(pageStyle)
	}
	sb.WriteString("</head>\n<body>\n<article>\n")
	sb.WriteString(body)
	sb.WriteString("</article>\n</body>\n</html>\n")

	return &Output{HTML: sb.String(), Metadata: meta}, nil
}

// RenderFragment produces a <section> holding the document's title and body.
// Wikilinks point at the sections of their targets within the same page.
func (g *Goldmark) RenderFragment(ctx context.Context, view *workspace.View, _ format.Format) (*Output, error) {
	meta, body, err := g.body(ctx, view, linkToAnchor)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<section class=\"note\" id=\"%s\" data-path=\"%s\">\n",
		Anchor(view.Document.Stem()), html.EscapeString(view.Document.Path))
	fmt.Fprintf(&sb, "<h2>%s</h2>\n", html.EscapeString(meta.Title))
	sb.WriteString(body)
	sb.WriteString("</section>\n")

	return &Output{HTML: sb.String(), Metadata: meta}, nil
}

func (g *Goldmark) body(ctx context.Context, view *workspace.View, link func(parser.Link) string) (Metadata, string, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, "", err
	}
	if view == nil {
		return Metadata{}, "", fmt.Errorf("render: no active view")
	}

	res, err := parser.Parse(view.Source, view.Document.Stem())
	if err != nil {
		return Metadata{}, "", fmt.Errorf("render: parse %s: %w", view.Document.Path, err)
	}

	src := parser.ReplaceWikilinks(res.Body, func(l parser.Link, embed bool) string {
		text := l.Alias
		if text == "" {
			text = l.Target
		}
		if embed {
			return fmt.Sprintf("![%s](<%s>)", escapeLinkText(text), l.Target)
		}
		return fmt.Sprintf("[%s](<%s>)", escapeLinkText(text), link(l))
	})

	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		return Metadata{}, "", fmt.Errorf("render: convert %s: %w", view.Document.Path, err)
	}
	out := buf.String()
	if g.policy != nil {
		out = g.policy.Sanitize(out)
	}

	return Metadata{
		Title:       res.Title,
		Tags:        res.Tags,
		Links:       res.LinkTargets(),
		Frontmatter: res.Frontmatter,
	}, out, nil
}

// linkToFile points note links at the sibling page of the flattened output
// layout. Links to other files keep their path.
func linkToFile(l parser.Link) string {
	switch strings.ToLower(path.Ext(l.Target)) {
	case "", ".md", ".markdown":
		stem := strings.TrimSuffix(path.Base(l.Target), path.Ext(l.Target))
		return url.PathEscape(stem) + ".html"
	}
	segments := strings.Split(l.Target, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func linkToAnchor(l parser.Link) string {
	return "#" + Anchor(strings.TrimSuffix(path.Base(l.Target), ".md"))
}

var nonSlug = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Anchor returns the element id used for a document's fragment section.
func Anchor(stem string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(stem), "-"), "-")
	return "note-" + slug
}

func escapeLinkText(s string) string {
	r := strings.NewReplacer(`[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

const pageStyle = `<style>
body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.6; color: #1f2328; }
pre { background: #f6f8fa; padding: 0.75rem; overflow-x: auto; }
code { font-family: ui-monospace, "SFMono-Regular", Menlo, monospace; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: 0.25rem 0.5rem; }
blockquote { margin-left: 0; padding-left: 1rem; border-left: 0.25rem solid #d0d7de; color: #59636e; }
</style>
`
