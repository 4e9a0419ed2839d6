// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/net/html"
)

var (
	citationPattern    = regexp.MustCompile(`(?i)\[\s*(?:\d+(?:\s*[,–-]\s*\d+)*|citation needed|edit|note \d+)\s*\]`)
	inlineSpacePattern = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)
	blankLinesPattern  = regexp.MustCompile(`\n{3,}`)
)

// hiddenElements never contribute visible text.
var hiddenElements = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "meta": true,
	"noscript": true, "template": true, "svg": true, "iframe": true,
}

// siteRule locates the main content container for one family of sites and
// names descendants to prune before rendering.
type siteRule struct {
	matchHost func(host string) bool
	find      func(doc *html.Node) *html.Node
	prune     func(n *html.Node) bool
}

var siteRules = []siteRule{
	{
		matchHost: func(host string) bool { return strings.HasSuffix(host, "wikipedia.org") },
		find: func(doc *html.Node) *html.Node {
			if n := findNode(doc, func(n *html.Node) bool { return attr(n, "id") == "mw-content-text" }); n != nil {
				return n
			}
			return findNode(doc, func(n *html.Node) bool { return hasClass(n, "mw-parser-output") })
		},
		prune: func(n *html.Node) bool {
			return hasClass(n, "reference") || hasClass(n, "mw-editsection") ||
				hasClass(n, "navbox") || hasClass(n, "reflist") || hasClass(n, "mw-references-wrap")
		},
	},
}

// ExtractText returns the readable text of an HTML page. A site-specific
// rule is tried first for known hosts; otherwise every visible text node
// outside script, style, head, title, and meta is collected. The result has
// citation markers removed and whitespace collapsed.
func ExtractText(body []byte, pageURL *url.URL) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return CleanText(html2text.HTML2Text(string(body)))
	}

	host := ""
	if pageURL != nil {
		host = strings.ToLower(pageURL.Hostname())
	}
	for _, rule := range siteRules {
		if !rule.matchHost(host) {
			continue
		}
		root := rule.find(doc)
		if root == nil {
			break
		}
		pruneNodes(root, func(n *html.Node) bool { return hiddenElements[n.Data] || rule.prune(n) })
		var buf bytes.Buffer
		if err := html.Render(&buf, root); err != nil {
			break
		}
		if text := CleanText(html2text.HTML2Text(buf.String())); text != "" {
			return text
		}
		break
	}

	return CleanText(visibleText(doc))
}

// visibleText joins the text nodes of doc that are not inside a hidden
// element, one node per line.
func visibleText(doc *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hiddenElements[n.Data] {
			return
		}
		if n.Type == html.CommentNode || n.Type == html.DoctypeNode {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, "\n")
}

// CleanText strips bracketed citation markers, collapses runs of inline
// whitespace, trims every line, and collapses consecutive blank lines.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = citationPattern.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpacePattern.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// pruneNodes removes every element descendant of root for which drop
// returns true.
func pruneNodes(root *html.Node, drop func(*html.Node) bool) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && drop(c) {
			root.RemoveChild(c)
		} else {
			pruneNodes(c, drop)
		}
		c = next
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
