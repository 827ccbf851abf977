// Package runlog keeps a daily JSON-lines audit trail of analysis runs.
package runlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

type Entry struct {
	Time            string   `json:"time"`
	RunID           string   `json:"run_id"`
	Ticker          string   `json:"ticker"`
	Outcome         string   `json:"outcome"`
	PeriodsAsked    int      `json:"periods_requested"`
	PeriodsFound    int      `json:"periods_found"`
	StatementSource string   `json:"statement_source,omitempty"`
	SourcesUsed     []string `json:"sources_used,omitempty"`
	Verdict         string   `json:"verdict,omitempty"`
	Error           string   `json:"error,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
}

type Log struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

// Path is the file holding entries written on t's UTC date.
func (l *Log) Path(t time.Time) string {
	return filepath.Join(l.dir, t.UTC().Format("2006-01-02")+".jsonl")
}

// Append stamps e with the current time and writes it as one line.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	e.Time = now.Format(time.RFC3339)

	p := l.Path(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files last modified more than retentionDays
// ago and returns how many were compressed.
func (l *Log) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	compressed := 0
	for _, d := range entries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		p := filepath.Join(l.dir, d.Name())
		if _, err := os.Stat(p + ".gz"); err == nil {
			_ = os.Remove(p)
			continue
		}
		if err := gzipFile(p); err != nil {
			return compressed, fmt.Errorf("compress %s: %w", p, err)
		}
		compressed++
	}
	return compressed, nil
}

func gzipFile(p string) error {
	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(p+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(p + ".gz")
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}

	in.Close()
	return os.Remove(p)
}
