// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package input

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// blockTags are the HTML elements treated as paragraph boundaries.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "pre": true, "br": true, "tr": true,
}

// skipTags are the HTML elements whose content is never prose.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true,
}

// extractHTML collects the visible text of an HTML document, separating
// block elements with blank lines.
func extractHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var last byte
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 && last != '\n' {
					b.WriteString(" ")
				}
				b.WriteString(t)
				last = t[len(t)-1]
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] && b.Len() > 0 {
			b.WriteString("\n\n")
			last = '\n'
		}
	}
	walk(doc)

	// Collapse the trailing separators and any run of blank lines.
	lines := strings.Split(b.String(), "\n")
	var out []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n\n"), nil
}
