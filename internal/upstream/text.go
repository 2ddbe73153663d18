package upstream

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	tagRe       = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9]*)([^<>]*)>`)
	attrsRe     = regexp.MustCompile(`^(\s+[a-zA-Z_:][-a-zA-Z0-9_:.]*\s*=\s*("[^"]*"|'[^']*'|[^\s"'=<>` + "`" + `]+))*\s*/?$`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
)

var voidElements = map[string]bool{"br": true, "hr": true, "img": true, "wbr": true}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true,
}

// PlainText strips HTML markup from a model reply. Text that is not HTML,
// such as code with generics or comparisons, is returned trimmed but
// otherwise untouched.
func PlainText(s string) string {
	if !isMarkup(s) {
		return strings.TrimSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n\n")
		}
	}
	walk(doc)

	out := blankLineRe.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

// isMarkup reports whether every tag-like run in s is a well-formed tag of a
// known HTML element and at least one of them closes an element or is a void
// element. "List<String>" or "a<b and c>d" do not qualify.
func isMarkup(s string) bool {
	tags := tagRe.FindAllStringSubmatch(s, -1)
	if len(tags) == 0 {
		return false
	}
	structural := false
	for _, m := range tags {
		closing, name, rest := m[1] == "/", strings.ToLower(m[2]), m[3]
		if atom.Lookup([]byte(name)) == 0 {
			return false
		}
		switch {
		case closing:
			if strings.TrimSpace(rest) != "" {
				return false
			}
			structural = true
		case !attrsRe.MatchString(rest):
			return false
		case voidElements[name]:
			structural = true
		}
	}
	return structural
}
