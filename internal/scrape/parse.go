package scrape

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/hevcstat/internal/model"
)

// ParsePatentPage extracts bibliographic data from a Google Patents page.
// A page without inventors yields an entry with an empty inventor list.
func ParsePatentPage(r io.Reader) (model.MetadataEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return model.MetadataEntry{}, fmt.Errorf("parse html: %w", err)
	}

	var (
		inventors, metaInventors, assignees []string
		title, itempropTitle, published     string
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "meta":
				name := attr(n, "name")
				switch {
				case name == "DC.title" && title == "":
					title = CleanName(attr(n, "content"))
				case name == "DC.contributor" && attr(n, "scheme") == "inventor":
					metaInventors = append(metaInventors, attr(n, "content"))
				}
			}

			switch attr(n, "itemprop") {
			case "inventor":
				inventors = append(inventors, textContent(n))
			case "assigneeOriginal":
				assignees = append(assignees, textContent(n))
			case "title":
				if itempropTitle == "" {
					itempropTitle = CleanName(textContent(n))
				}
			case "publicationDate":
				if published == "" {
					published = attr(n, "datetime")
					if published == "" {
						published = strings.TrimSpace(textContent(n))
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(inventors) == 0 {
		inventors = metaInventors
	}
	if title == "" {
		title = itempropTitle
	}

	return model.MetadataEntry{
		Inventors:       cleanNames(inventors),
		Assignees:       cleanNames(assignees),
		Title:           title,
		PublicationDate: published,
	}, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
