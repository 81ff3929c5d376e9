package mailtext

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML returns the visible text of an HTML document, one text node per
// line. Script, style and template content is dropped.
func StripHTML(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}

	var lines []string
	collectText(doc, &lines, 0)
	return strings.Join(lines, "\n"), nil
}

func collectText(n *html.Node, lines *[]string, depth int) {
	if depth > 256 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			*lines = append(*lines, text)
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines, depth+1)
	}
}
