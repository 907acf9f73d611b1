package util

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reSpaces = regexp.MustCompile(`\s+`)

// HTMLToText flattens the HTML fragments 25Live stores in labels and
// instructions ("<p>Academic Session</p>") to readable text. Block elements
// become line breaks.
func HTMLToText(input string) string {
	if !strings.Contains(input, "<") {
		return strings.TrimSpace(input)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return strings.TrimSpace(input)
	}

	var lines []string
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,li,tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func StringPtr(v string) *string { return &v }

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
