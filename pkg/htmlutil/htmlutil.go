package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText returns the concatenated text nodes under node, entities are
// already decoded by the html parser.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// NextSiblingText returns the data of the text node directly following
// node, or "" if the next sibling is missing or is not a text node.
func NextSiblingText(node *html.Node) string {
	if node == nil || node.NextSibling == nil {
		return ""
	}
	if node.NextSibling.Type != html.TextNode {
		return ""
	}
	return node.NextSibling.Data
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// CleanText trims and collapses the whitespace of s and drops non-printable
// characters.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// Decode decodes html entities that survived parsing, ex. text pulled out of
// attribute values or double encoded markup.
func Decode(s string) string {
	return html.UnescapeString(s)
}

func attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

type Anchor struct {
	Node *html.Node
	Name string
	// Url is nil if the anchor has no href or its href could not be parsed.
	Url *url.URL
}

// GetAnchors collects every anchor in sel with its href resolved relative to
// base.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := make([]Anchor, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		a := Anchor{
			Node: n,
			Name: CleanText(GetText(n)),
		}

		href, ok := attr(n, "href")
		if ok {
			link, err := url.Parse(strings.TrimSpace(href))
			if err == nil {
				if base != nil {
					link = base.ResolveReference(link)
				}
				a.Url = link
			}
		}

		anchors = append(anchors, a)
	}
	return anchors
}
