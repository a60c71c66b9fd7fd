// Package parser extracts frontmatter, wikilinks, and tags from Markdown documents.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`(!?)\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Link is one [[wikilink]] occurrence. Alias is empty unless written as [[Target|Alias]].
type Link struct {
	Target string `json:"target"`
	Alias  string `json:"alias,omitempty"`
}

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Links       []Link
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, wikilinks, and tags from raw Markdown bytes.
// fallbackTitle is used when neither frontmatter nor an H1 heading names the document.
func Parse(data []byte, fallbackTitle string) (*Result, error) {
	fm, body := splitFrontmatter(data)

	title := deriveTitle(fm, body)
	if title == "" {
		title = fallbackTitle
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractLinks(body),
		Tags:        extractTags(body, fm),
		Title:       title,
	}, nil
}

// LinkTargets returns the link targets in order of first appearance.
func (r *Result) LinkTargets() []string {
	out := make([]string, 0, len(r.Links))
	for _, l := range r.Links {
		out = append(out, l.Target)
	}
	return out
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no valid frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

func parseLink(raw string) (Link, bool) {
	target, alias := raw, ""
	if i := strings.Index(raw, "|"); i >= 0 {
		target, alias = raw[:i], strings.TrimSpace(raw[i+1:])
	}
	// [[note#heading]] links to the note.
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return Link{}, false
	}
	return Link{Target: target, Alias: alias}, true
}

// extractLinks returns wikilinks deduplicated by target. Embeds (![[...]]) are skipped.
func extractLinks(body string) []Link {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []Link
	for _, m := range matches {
		if m[1] == "!" {
			continue
		}
		l, ok := parseLink(m[2])
		if !ok {
			continue
		}
		if _, dup := seen[l.Target]; dup {
			continue
		}
		seen[l.Target] = struct{}{}
		out = append(out, l)
	}
	return out
}

// ReplaceWikilinks rewrites every [[wikilink]] in body with the result of fn.
// Embeds are passed to fn with embed set. Empty targets are left untouched.
func ReplaceWikilinks(body string, fn func(l Link, embed bool) string) string {
	return wikilinkRe.ReplaceAllStringFunc(body, func(match string) string {
		m := wikilinkRe.FindStringSubmatch(match)
		l, ok := parseLink(m[2])
		if !ok {
			return match
		}
		return fn(l, m[1] == "!")
	})
}

// extractTags collects #tags from body and from the frontmatter "tags" field.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "#")
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			add(s)
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
