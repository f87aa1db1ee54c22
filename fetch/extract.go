package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

type meta struct {
	name    string
	content string
}

type page struct {
	paragraphs []string
	metas      []meta
}

// extract collects paragraph texts in document order and the description
// style meta tags.
func extract(doc *html.Node) page {
	var p page
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "p":
				p.paragraphs = append(p.paragraphs, Text(n))
				return
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				content := attr(n, "content")
				if (name == "description" || name == "page-topic") && content != "" {
					p.metas = append(p.metas, meta{name: name, content: content})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return p
}

// Text returns the concatenated text nodes under n, skipping scripts and styles.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
