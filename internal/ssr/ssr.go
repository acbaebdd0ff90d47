// Package ssr post-processes rendered HTML, expanding the dashboard's custom elements into styled markup.
package ssr

import (
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"io"
	"strconv"
	"strings"
)

const (
	badgeClass         = "badge"
	buttonPrimaryClass = "btn btn-primary"
)

// reliabilityBand maps a reliability percentage to a badge variant.
func reliabilityBand(value string) (string, string) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return "unknown", value
	}
	switch {
	case n >= 80: //nolint:mnd // percentage bands
		return "high", fmt.Sprintf("%d%%", n)
	case n >= 50: //nolint:mnd // percentage bands
		return "medium", fmt.Sprintf("%d%%", n)
	default:
		return "low", fmt.Sprintf("%d%%", n)
	}
}

// variant turns a status or urgency value into a class suffix, e.g. "In Review" becomes "in-review".
func variant(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "unknown"
	}
	return strings.Join(strings.Fields(v), "-")
}

// toSpan rewrites the element of s into a classed span showing text.
func toSpan(s *goquery.Selection, class, text string) {
	node := s.Nodes[0]
	node.Data = "span"
	node.DataAtom = atom.Span
	s.RemoveAttr("value")
	s.AddClass(class)
	if strings.TrimSpace(s.Text()) == "" {
		s.SetText(text)
	}
}

func decorate(doc *goquery.Document) {
	doc.Find("status-badge").Each(func(_ int, s *goquery.Selection) {
		value := s.AttrOr("value", "")
		toSpan(s, fmt.Sprintf("%s badge-status badge-status-%s", badgeClass, variant(value)), value)
	})
	doc.Find("urgency-badge").Each(func(_ int, s *goquery.Selection) {
		value := s.AttrOr("value", "")
		toSpan(s, fmt.Sprintf("%s badge-urgency badge-urgency-%s", badgeClass, variant(value)), value)
	})
	doc.Find("reliability-badge").Each(func(_ int, s *goquery.Selection) {
		band, text := reliabilityBand(s.AttrOr("value", ""))
		toSpan(s, fmt.Sprintf("%s badge-reliability badge-reliability-%s", badgeClass, band), text)
	})
	doc.Find("button-primary").Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		node.Data = "button"
		node.DataAtom = atom.Button
		s.AddClass(buttonPrimaryClass)
	})
	doc.Find(`[as="button-primary"]`).Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("as")
		s.AddClass(buttonPrimaryClass)
	})
}

// ReplaceCustomElements decorates an HTML fragment read from reader and writes the resulting body children to writer.
func ReplaceCustomElements(writer io.Writer, reader io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	decorate(doc)

	body := doc.Find("body")
	if len(body.Nodes) > 0 {
		for c := body.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
			if err = html.Render(writer, c); err != nil {
				return fmt.Errorf("render html: %w", err)
			}
		}
	}
	return nil
}

// RenderPage decorates a complete HTML document read from reader and writes it to writer including the doctype.
func RenderPage(writer io.Writer, reader io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	decorate(doc)

	if err = html.Render(writer, doc.Nodes[0]); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
