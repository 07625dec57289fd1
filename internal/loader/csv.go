package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"bookrec/internal/storage/catalog"
)

// Record is one row of the books CSV.
type Record struct {
	BookID      string
	Title       string
	Description string
	Genres      string
	CoverImg    string
}

// Properties returns the object properties uploaded to the vector service.
func (r Record) Properties() map[string]any {
	return map[string]any{
		"bookId":      r.BookID,
		"title":       r.Title,
		"description": r.Description,
		"genres":      r.Genres,
	}
}

var requiredColumns = []string{"bookId", "title", "description", "genres"}

// ReadCSV decodes the books CSV. Columns are matched by header name, extra columns are ignored.
// Short rows produce records with empty fields; validation rejects them later, one by one.
func ReadCSV(r io.Reader, charset string) ([]Record, error) {
	cr := csv.NewReader(decodeCharset(r, charset))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, Record{
			BookID:      field(row, "bookId"),
			Title:       field(row, "title"),
			Description: field(row, "description"),
			Genres:      field(row, "genres"),
			CoverImg:    field(row, "coverImg"),
		})
	}
	return records, nil
}

// CatalogEntries maps records to rows of the local cover table, skipping rows without an id.
func CatalogEntries(records []Record) []catalog.Entry {
	entries := make([]catalog.Entry, 0, len(records))
	for _, r := range records {
		if r.BookID == "" {
			continue
		}
		entries = append(entries, catalog.Entry{ID: r.BookID, Title: r.Title, CoverURL: r.CoverImg})
	}
	return entries
}

func decodeCharset(input io.Reader, charset string) io.Reader {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		logrus.WithField("charset", charset).Warn("unknown charset, reading as utf-8")
		enc = unicode.UTF8
	}
	// a leading BOM would otherwise end up in the first header name
	return transform.NewReader(input, unicode.BOMOverride(enc.NewDecoder()))
}
