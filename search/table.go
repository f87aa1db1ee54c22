package search

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/richinex/prompter/fetch"
)

// TableText flattens the tables of an HTML fragment: one line per row, cell
// texts separated by single spaces. Content outside tables is dropped.
func TableText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(n *html.Node, inTable bool)
	walk = func(n *html.Node, inTable bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				inTable = true
			case "tr":
				if inTable {
					sb.WriteString(strings.Join(cells(n), " "))
					sb.WriteString("\n")
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inTable)
		}
	}
	walk(doc, false)
	return sb.String()
}

func cells(row *html.Node) []string {
	var out []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			out = append(out, strings.TrimSpace(fetch.Text(c)))
		}
	}
	return out
}
