package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone      BlockType = ""
	BlockError1000 BlockType = "error_1000"
	BlockChallenge BlockType = "challenge"
)

// DetectBlock checks a rendered page for signs that the odds site refused
// to serve it.
func DetectBlock(doc *goquery.Document) (bool, BlockType) {
	if doc == nil {
		return false, BlockNone
	}

	// The site answers scrapers with an "Error 1000" heading.
	var blocked bool
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		blocked = strings.Contains(text, "Error") && strings.Contains(text, "1000")
		return !blocked
	})
	if blocked {
		return true, BlockError1000
	}

	lower := strings.ToLower(doc.Find("title").Text() + " " + doc.Find("body").Text())
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "verify you are human") {
		return true, BlockChallenge
	}

	return false, BlockNone
}
