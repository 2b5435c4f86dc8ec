package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/corpusmith/pkg/utils"
)

// nonContentSelectors lists elements stripped before falling back to raw
// page text.
const nonContentSelectors = "script, style, noscript, nav, header, footer, aside, form"

// Extractor turns HTML into prose and outgoing links.
type Extractor struct{}

// New creates a new Extractor instance
func New() *Extractor {
	return &Extractor{}
}

// ExtractText returns the readable prose of the page. trafilatura picks the
// main content; when it finds nothing the paragraphs of the page are joined
// instead.
func (e *Extractor) ExtractText(body []byte) string {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{})
	if err == nil && result != nil {
		if text := utils.CleanText(result.ContentText); text != "" {
			return text
		}
	}
	return fallbackText(body)
}

func fallbackText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := utils.CleanText(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, " ")
	}

	content := doc.Find("article").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find(nonContentSelectors).Remove()
	return utils.CleanText(content.Text())
}

// ExtractLinks returns the distinct absolute http(s) links of the page in
// document order. Relative links are resolved against baseURL (or the
// page's <base href>); fragment-only and javascript:, mailto:, tel: links
// are skipped.
func (e *Extractor) ExtractLinks(body []byte, baseURL string) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "base":
				if href := attr(n, "href"); href != "" {
					if b, err := base.Parse(href); err == nil {
						base = b
					}
				}
			case "a", "area":
				if href := attr(n, "href"); href != "" && attr(n, "rel") != "nofollow" {
					hrefs = append(hrefs, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	seen := make(map[string]bool)
	var links []string
	for _, href := range hrefs {
		abs, ok := utils.ResolveURL(base, href)
		if !ok || seen[abs] || !utils.IsWebpageURL(abs) {
			continue
		}
		seen[abs] = true
		links = append(links, abs)
	}
	return links
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
