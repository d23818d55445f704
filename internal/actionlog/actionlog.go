// Package actionlog keeps an append-only CSV trail of user-visible actions.
package actionlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action names one kind of user-visible mutation.
type Action string

const (
	CSVImportStart    Action = "CSV_IMPORT_START"
	CSVImportSuccess  Action = "CSV_IMPORT_SUCCESS"
	CSVImportError    Action = "CSV_IMPORT_ERROR"
	TransactionCreate Action = "TRANSACTION_CREATE"
	TransactionUpdate Action = "TRANSACTION_UPDATE"
	TransactionDelete Action = "TRANSACTION_DELETE"
	AccountCreate     Action = "ACCOUNT_CREATE"
	AccountUpdate     Action = "ACCOUNT_UPDATE"
	AccountDelete     Action = "ACCOUNT_DELETE"
	CategoryCreate    Action = "CATEGORY_CREATE"
	MagicBoxParse     Action = "MAGIC_BOX_PARSE"
	MagicBoxConfirm   Action = "MAGIC_BOX_CONFIRM"
	SMSParse          Action = "SMS_PARSE"
	DataClear         Action = "DATA_CLEAR"
	DataRestore       Action = "DATA_RESTORE"
	SettingsChange    Action = "SETTINGS_CHANGE"
	ActionError       Action = "ERROR"
)

// Entry is one row in the action log.
type Entry struct {
	Timestamp time.Time
	Action    Action
	Subject   string
	Details   string
}

// Header is the CSV header for the action log file.
const Header = "timestamp,action,subject,details"

const (
	numFields    = 4
	maxDetails   = 200
	colTimestamp = 0
	colAction    = 1
	colSubject   = 2
	colDetails   = 3
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colAction] = string(e.Action)
	row[colSubject] = e.Subject
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	return Entry{
		Timestamp: ts,
		Action:    Action(record[colAction]),
		Subject:   record[colSubject],
		Details:   record[colDetails],
	}, nil
}

// Service appends entries to one CSV file. It is constructed explicitly and
// must be opened with Init and closed with Dispose. A nil *Service is a
// valid no-op recorder.
type Service struct {
	path string
	log  zerolog.Logger
	now  func() time.Time

	mu sync.Mutex
	f  *os.File
	cw *csv.Writer
}

// NewService creates an action log writing to path.
func NewService(path string, log zerolog.Logger) *Service {
	return &Service{path: path, log: log, now: time.Now}
}

// Init opens (or creates) the log file and writes the header if it is new.
func (s *Service) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	needsHeader := false
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening action log: %w", err)
	}
	s.f = f
	s.cw = csv.NewWriter(f)

	if needsHeader {
		if err := s.cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		s.cw.Flush()
	}
	return s.cw.Error()
}

// Dispose flushes and closes the log file. Record after Dispose only logs.
func (s *Service) Dispose() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	s.cw.Flush()
	werr := s.cw.Error()
	cerr := s.f.Close()
	s.f, s.cw = nil, nil
	return errors.Join(werr, cerr)
}

// Record appends one entry. Failures are logged and never returned, so a
// broken log file cannot fail the mutation being recorded.
func (s *Service) Record(action Action, subject, details string) {
	if s == nil {
		return
	}
	if len(details) > maxDetails {
		details = details[:maxDetails]
	}
	e := Entry{Timestamp: s.now(), Action: action, Subject: subject, Details: details}

	s.log.Debug().Str("action", string(action)).Str("subject", subject).Msg(details)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cw == nil {
		s.log.Warn().Str("action", string(action)).Msg("action log not initialized")
		return
	}
	if err := s.cw.Write(MarshalEntry(e)); err != nil {
		s.log.Warn().Err(err).Msg("writing action log")
		return
	}
	s.cw.Flush()
	if err := s.cw.Error(); err != nil {
		s.log.Warn().Err(err).Msg("flushing action log")
	}
}

// Read returns every entry in the log at path. A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening action log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading action log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
