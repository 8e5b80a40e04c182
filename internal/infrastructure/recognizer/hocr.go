package recognizer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextFromHOCR flattens hOCR markup into plain text: one output line per
// ocr_line, words separated by single spaces. Markup without line elements
// falls back to its words, then to the raw document text.
func TextFromHOCR(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse hocr: %w", err)
	}

	var lines []string
	doc.Find(".ocr_line").Each(func(_ int, line *goquery.Selection) {
		if text := joinWords(line.Find(".ocrx_word")); text != "" {
			lines = append(lines, text)
			return
		}
		if text := strings.Join(strings.Fields(line.Text()), " "); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}

	if words := joinWords(doc.Find(".ocrx_word")); words != "" {
		return words, nil
	}

	return strings.TrimSpace(doc.Find("body").Text()), nil
}

func joinWords(sel *goquery.Selection) string {
	words := make([]string, 0, sel.Length())
	sel.Each(func(_ int, w *goquery.Selection) {
		if word := strings.TrimSpace(w.Text()); word != "" {
			words = append(words, word)
		}
	})
	return strings.Join(words, " ")
}
