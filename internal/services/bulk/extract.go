// Package bulk analyzes a user-supplied list of videos without searching.
//
// The list usually arrives as a spreadsheet column of mixed URLs and bare
// ids. ExtractID turns each cell into a canonical 11-character id.
package bulk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrNoIdentifiers means nothing in the input looked like a video.
	ErrNoIdentifiers = errors.New("no video ids found in input")
	// ErrColumnNotFound means the upload has no column with the requested name.
	ErrColumnNotFound = errors.New("column not found in upload")
)

// Covers watch?v=, youtu.be/, embed/, shorts/ and other path-segment forms.
var (
	embeddedID = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:[?&#/]|$)`)
	bareID     = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
)

// ExtractID returns the video id in token, or "" and false when there is none.
func ExtractID(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	if bareID.MatchString(token) {
		return token, true
	}
	if m := embeddedID.FindStringSubmatch(token); m != nil {
		return m[1], true
	}
	return "", false
}

// ExtractIDs extracts ids from every token, dropping duplicates while keeping
// first-seen order. unparsed counts non-empty tokens with no id.
func ExtractIDs(tokens []string) (ids []string, unparsed int) {
	seen := make(map[string]bool)
	for _, tok := range tokens {
		id, ok := ExtractID(tok)
		if !ok {
			if strings.TrimSpace(tok) != "" {
				unparsed++
			}
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, unparsed
}

// ReadColumn reads one column of a CSV upload with a header row. The column
// is matched case-insensitively; an empty name selects the first column.
// Blank cells are skipped.
func ReadColumn(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoIdentifiers
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload header: %w", err)
	}

	idx := 0
	if column = strings.TrimSpace(column); column != "" {
		idx = -1
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
		}
	}

	var cells []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			cells = append(cells, row[idx])
		}
	}
	return cells, nil
}
