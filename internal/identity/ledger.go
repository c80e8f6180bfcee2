package identity

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/topicworks/digest-cli/internal/timeutil"
)

// LedgerEntry is one persisted record of a previously-seen item.
type LedgerEntry struct {
	Identity   string `json:"identity"`
	URL        string `json:"url"`
	RecordedAt string `json:"recorded_at"`
}

// Ledger is the append-only cross-run record of seen identities, stored as
// newline-delimited JSON. Normal runs only ever append to it.
type Ledger struct {
	path string
	ids  map[string]struct{}
}

// OpenLedger loads the ledger at path. A missing file yields an empty
// ledger. Unreadable files and malformed lines are skipped with a warning
// rather than aborting: novelty detection degrades to "treat as new".
func OpenLedger(path string) *Ledger {
	l := &Ledger{path: path, ids: make(map[string]struct{})}
	if path == "" {
		return l
	}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("ledger: unreadable history file, treating all items as new",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return l
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry LedgerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			zap.L().Warn("ledger: skipping malformed history line",
				zap.String("path", path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		if entry.Identity != "" {
			l.ids[entry.Identity] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		zap.L().Warn("ledger: error reading history file",
			zap.String("path", path),
			zap.Error(err),
		)
	}

	return l
}

// Contains reports whether identity was recorded by a previous run.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Len returns the number of loaded history identities.
func (l *Ledger) Len() int {
	return len(l.ids)
}

// Append records entries at the end of the ledger file. Existing records are
// never rewritten or removed.
func (l *Ledger) Append(entries []LedgerEntry) error {
	if l.path == "" || len(entries) == 0 {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "ledger: create directory")
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "ledger: open for append")
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			return eris.Wrap(err, "ledger: marshal entry")
		}
		if _, err := w.Write(append(raw, '\n')); err != nil {
			return eris.Wrap(err, "ledger: write entry")
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "ledger: flush")
	}

	for _, entry := range entries {
		l.ids[entry.Identity] = struct{}{}
	}
	return nil
}

// NewEntry builds a ledger record with recordedAt rendered in ISO-8601 UTC.
func NewEntry(identity, url string, recordedAt time.Time) LedgerEntry {
	return LedgerEntry{
		Identity:   identity,
		URL:        url,
		RecordedAt: timeutil.ISO(recordedAt),
	}
}
