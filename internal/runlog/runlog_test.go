package runlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	require.NoError(t, l.Append(Entry{RunID: "r1", Ticker: "ACME", Outcome: OutcomeOK, Verdict: "strong"}))
	require.NoError(t, l.Append(Entry{RunID: "r2", Ticker: "XXXX", Outcome: OutcomeFailed, Error: "not found"}))

	f, err := os.Open(filepath.Join(dir, "2024-03-01.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-01T10:00:00Z", got[0].Time)
	assert.Equal(t, "strong", got[0].Verdict)
	assert.Equal(t, OutcomeFailed, got[1].Outcome)
	assert.Equal(t, "not found", got[1].Error)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	old := filepath.Join(dir, "2024-01-01.jsonl")
	fresh := filepath.Join(dir, "2024-03-01.jsonl")
	require.NoError(t, os.WriteFile(old, []byte(`{"run_id":"a"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte(`{"run_id":"b"}`+"\n"), 0o644))
	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(old, past, past))

	n, err := l.CompressOlder(30)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	gz, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	r, err := gzip.NewReader(gz)
	require.NoError(t, err)
	var e Entry
	require.NoError(t, json.NewDecoder(r).Decode(&e))
	assert.Equal(t, "a", e.RunID)
}

func TestCompressOlderMissingDir(t *testing.T) {
	n, err := New(filepath.Join(t.TempDir(), "absent")).CompressOlder(7)

	assert.NoError(t, err)
	assert.Zero(t, n)
}
