// filestore.go keeps the quota ledger as an append-only CSV file.
package quota

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

// TimestampLayout is the ledger's timestamp format, in local time.
const TimestampLayout = "2006-01-02 15:04:05"

// LedgerHeader is written once, when the file is created.
var LedgerHeader = []string{"Timestamp", "User_ID", "Event", "Query", "Country", "Result_Count", "Extra_Info", "Units"}

// FileStore appends ledger rows to a CSV file.
//
// Each row is encoded in memory and written with a single append, so
// concurrent writers from other processes interleave whole rows. Lost
// updates are acceptable for an advisory counter.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store for the CSV ledger at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the ledger file location.
func (s *FileStore) Path() string {
	return s.path
}

// Append writes one row, adding the header if the file is new or empty.
func (s *FileStore) Append(_ context.Context, e models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat usage log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		w.Write(LedgerHeader)
	}
	w.Write(toRow(e))
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode usage row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append usage row: %w", err)
	}
	return nil
}

// Entries reads the ledger back, skipping the header and any row that does
// not parse. A missing file is an empty ledger.
func (s *FileStore) Entries(_ context.Context, since time.Time) ([]models.LedgerEntry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	return readLedger(f, since)
}

func readLedger(r io.Reader, since time.Time) ([]models.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows from older layouts are skipped, not fatal
	cr.LazyQuotes = true

	var entries []models.LedgerEntry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return entries, fmt.Errorf("failed to read usage log: %w", err)
		}

		e, ok := parseRow(row)
		if !ok {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRow(row []string) (models.LedgerEntry, bool) {
	if len(row) != len(LedgerHeader) || row[0] == LedgerHeader[0] {
		return models.LedgerEntry{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(row[0]), time.Local)
	if err != nil {
		return models.LedgerEntry{}, false
	}
	results, err := strconv.Atoi(strings.TrimSpace(row[5]))
	if err != nil {
		return models.LedgerEntry{}, false
	}
	units, err := strconv.Atoi(strings.TrimSpace(row[7]))
	if err != nil {
		return models.LedgerEntry{}, false
	}
	return models.LedgerEntry{
		Timestamp:   ts,
		ActorID:     row[1],
		Event:       row[2],
		Query:       row[3],
		Region:      row[4],
		ResultCount: results,
		Extra:       row[6],
		Units:       units,
	}, true
}

// WriteCSV renders entries in the ledger layout, header first. The admin
// export uses it to hand back the log regardless of the storage backend.
func WriteCSV(w io.Writer, entries []models.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return err
	}
	for _, e := range entries {
		cw.Write(toRow(e))
	}
	cw.Flush()
	return cw.Error()
}

func toRow(e models.LedgerEntry) []string {
	return []string{
		e.Timestamp.In(time.Local).Format(TimestampLayout),
		e.ActorID,
		e.Event,
		e.Query,
		e.Region,
		strconv.Itoa(e.ResultCount),
		e.Extra,
		strconv.Itoa(e.Units),
	}
}
