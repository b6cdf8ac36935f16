// Package symbols holds the per-page text a document is annotated against.
package symbols

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/annodoc/internal/domain/span"
)

// PageSeparator joins consecutive pages in the flat text.
const PageSeparator = "\n"

// Stream is the symbol stream of a document: NFC-normalized text with the
// rune range each page occupies. Offsets everywhere are rune offsets.
type Stream struct {
	runes []rune
	pages [][2]int
}

// New builds a stream from page texts. Page i covers the runes of pages[i];
// pages are joined with PageSeparator, which belongs to no page.
func New(pages ...string) *Stream {
	var b strings.Builder
	ranges := make([][2]int, 0, len(pages))
	pos := 0
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageSeparator)
			pos += len([]rune(PageSeparator))
		}
		text := norm.NFC.String(p)
		n := len([]rune(text))
		b.WriteString(text)
		ranges = append(ranges, [2]int{pos, pos + n})
		pos += n
	}
	return &Stream{runes: []rune(b.String()), pages: ranges}
}

// PageCount returns the number of pages.
func (s *Stream) PageCount() int { return len(s.pages) }

// Len returns the number of runes in the flat text.
func (s *Stream) Len() int { return len(s.runes) }

// Text returns the flat text.
func (s *Stream) Text() string { return string(s.runes) }

// PageText returns the text of one page.
func (s *Stream) PageText(page int) (string, error) {
	r, err := s.pageRange(page)
	if err != nil {
		return "", err
	}
	return string(s.runes[r[0]:r[1]]), nil
}

// PageRange returns a span covering the whole page.
func (s *Stream) PageRange(page int) (span.Span, error) {
	r, err := s.pageRange(page)
	if err != nil {
		return span.Span{}, err
	}
	return span.New(r[0], r[1], page), nil
}

// PageOf returns the page containing the rune at pos.
// Offsets that fall on a page separator belong to no page.
func (s *Stream) PageOf(pos int) (int, error) {
	i := sort.Search(len(s.pages), func(i int) bool { return s.pages[i][1] > pos })
	if i == len(s.pages) || pos < s.pages[i][0] {
		return 0, fmt.Errorf("offset %d is outside every page", pos)
	}
	return i, nil
}

// Slice returns the text in [start, end).
func (s *Stream) Slice(start, end int) (string, error) {
	if start < 0 || end > len(s.runes) || start > end {
		return "", fmt.Errorf("range [%d,%d) outside stream of length %d", start, end, len(s.runes))
	}
	return string(s.runes[start:end]), nil
}

// Resolve checks that sp lies inside a single page and returns it with Page set.
// A span without symbols keeps the page of its box.
func (s *Stream) Resolve(sp span.Span) (span.Span, error) {
	if err := sp.Validate(); err != nil {
		return span.Span{}, err
	}
	out := sp.Clone()
	if sp.IsEmpty() {
		if sp.Box == nil {
			return span.Span{}, fmt.Errorf("span covers neither symbols nor a region")
		}
		if sp.Box.Page < 0 || sp.Box.Page >= len(s.pages) {
			return span.Span{}, fmt.Errorf("box page %d outside %d pages", sp.Box.Page, len(s.pages))
		}
		out.Page = sp.Box.Page
		return out, nil
	}
	page, err := s.PageOf(sp.Start)
	if err != nil {
		return span.Span{}, err
	}
	if sp.End > s.pages[page][1] {
		return span.Span{}, fmt.Errorf("span [%d,%d) crosses the end of page %d", sp.Start, sp.End, page)
	}
	out.Page = page
	if out.Box != nil {
		out.Box.Page = page
	}
	return out, nil
}

func (s *Stream) pageRange(page int) ([2]int, error) {
	if page < 0 || page >= len(s.pages) {
		return [2]int{}, fmt.Errorf("page %d outside %d pages", page, len(s.pages))
	}
	return s.pages[page], nil
}

type streamJSON struct {
	Text  string   `json:"text"`
	Pages [][2]int `json:"pages"`
}

// MarshalJSON encodes the stream as {"text": ..., "pages": [[start, end], ...]}.
func (s *Stream) MarshalJSON() ([]byte, error) {
	pages := s.pages
	if pages == nil {
		pages = [][2]int{}
	}
	return json.Marshal(streamJSON{Text: string(s.runes), Pages: pages})
}

// UnmarshalJSON decodes and validates the stream form.
func (s *Stream) UnmarshalJSON(data []byte) error {
	var raw streamJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode symbols: %w", err)
	}
	runes := []rune(raw.Text)
	prev := 0
	for i, p := range raw.Pages {
		if p[0] < prev || p[1] < p[0] || p[1] > len(runes) {
			return fmt.Errorf("decode symbols: page %d range [%d,%d) is invalid", i, p[0], p[1])
		}
		prev = p[1]
	}
	s.runes = runes
	s.pages = raw.Pages
	return nil
}
