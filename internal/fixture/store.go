// Package fixture implements the content-addressed replay cache. A
// fixture records one target output per (suite, case) pair so a suite
// can be re-run deterministically at zero cost; fixtures are
// invalidated by config-hash mismatch and aged out by TTL.
package fixture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// SchemaVersion is the fixture file format version.
const SchemaVersion = 1

// Meta is the first line of a fixture file.
type Meta struct {
	SchemaVersion    int       `json:"schemaVersion"`
	SuiteID          string    `json:"suiteId"`
	CaseID           string    `json:"caseId"`
	ConfigHash       string    `json:"configHash"`
	RecordedAt       time.Time `json:"recordedAt"`
	FrameworkVersion string    `json:"frameworkVersion"`
}

// ReadStatus classifies the outcome of a fixture lookup.
type ReadStatus string

const (
	StatusHit              ReadStatus = "hit"
	StatusStale            ReadStatus = "stale"
	StatusMissNotFound     ReadStatus = "miss/not-found"
	StatusMissHashMismatch ReadStatus = "miss/config-hash-mismatch"
)

// ReadResult is the outcome of Read. A stale result still carries the
// recorded output plus its age so callers can choose to proceed with a
// warning; a hash-mismatch result carries the recorded hash so callers
// can explain why the fixture is logically stale.
type ReadResult struct {
	Status       ReadStatus
	Output       *eval.Output
	Meta         *Meta
	AgeDays      float64
	RecordedHash string
}

// WriteOptions configures fixture writes.
type WriteOptions struct {
	// StripRaw removes the output's raw provider payload before
	// persisting.
	StripRaw bool
	// FrameworkVersion is recorded in the meta line.
	FrameworkVersion string
}

// ReadOptions configures fixture reads.
type ReadOptions struct {
	// TTLDays is the staleness threshold. Zero or negative disables
	// the age check.
	TTLDays float64
}

// Info describes one stored fixture for housekeeping commands. Age
// here is derived from file modification time, not the meta record's
// recordedAt; the two can diverge if a file is touched without
// rewriting its meta. Read uses recordedAt for staleness.
type Info struct {
	SuiteID    string    `json:"suiteId"`
	CaseID     string    `json:"caseId"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"sizeBytes"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Stats summarizes the fixture directory.
type Stats struct {
	TotalFixtures int       `json:"totalFixtures"`
	TotalBytes    int64     `json:"totalBytes"`
	Suites        int       `json:"suites"`
	OldestModTime time.Time `json:"oldestModTime,omitzero"`
	NewestModTime time.Time `json:"newestModTime,omitzero"`
}

// Store reads and writes fixture files under a base directory, one
// file per (suite, case). Concurrent writes to different case files
// are independent; same-file writes are last-writer-wins by
// convention, which holds because the runner never double-writes a
// case concurrently.
type Store struct {
	baseDir string
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a store rooted at baseDir. A nil logger defaults to
// slog.Default().
func NewStore(baseDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{baseDir: baseDir, logger: logger, now: time.Now}
}

func (s *Store) suiteDir(suiteID string) string {
	return filepath.Join(s.baseDir, SanitizeName(suiteID))
}

func (s *Store) casePath(suiteID, caseID string) string {
	return filepath.Join(s.suiteDir(suiteID), SanitizeName(caseID)+".jsonl")
}

// Write persists the output for (suiteID, caseID) as a full-file
// replacement: line 1 is the meta record, line 2 is the output wrapped
// in {"output": ...} with all object keys deep-sorted for byte-stable
// diffs. Returns the file path.
func (s *Store) Write(suiteID, caseID string, output *eval.Output, configHash string, opts WriteOptions) (string, error) {
	if err := s.ensureGitattributes(); err != nil {
		return "", err
	}

	dir := s.suiteDir(suiteID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create fixture directory: %w", err)
	}

	meta := Meta{
		SchemaVersion:    SchemaVersion,
		SuiteID:          suiteID,
		CaseID:           caseID,
		ConfigHash:       configHash,
		RecordedAt:       s.now().UTC(),
		FrameworkVersion: opts.FrameworkVersion,
	}
	metaLine, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fixture meta: %w", err)
	}

	dataLine, err := canonicalDataLine(output, opts.StripRaw)
	if err != nil {
		return "", err
	}

	path := s.casePath(suiteID, caseID)
	content := append(append(metaLine, '\n'), append(dataLine, '\n')...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fixture: %w", err)
	}

	s.logger.Debug("fixture written", "suite", suiteID, "case", caseID, "path", path)
	return path, nil
}

// Read looks up the fixture for (suiteID, caseID). A missing file is a
// miss/not-found; a configHash mismatch is a miss carrying the
// recorded hash; an entry older than TTLDays is stale but still
// returns the output.
func (s *Store) Read(suiteID, caseID, configHash string, opts ReadOptions) (*ReadResult, error) {
	path := s.casePath(suiteID, caseID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ReadResult{Status: StatusMissNotFound}, nil
		}
		return nil, fmt.Errorf("failed to open fixture %s: %w", path, err)
	}
	defer f.Close()

	meta, output, err := parseFixture(f)
	if err != nil {
		return nil, fmt.Errorf("corrupt fixture %s: %w", path, err)
	}

	if meta.ConfigHash != configHash {
		return &ReadResult{
			Status:       StatusMissHashMismatch,
			Meta:         meta,
			RecordedHash: meta.ConfigHash,
		}, nil
	}

	ageDays := s.now().Sub(meta.RecordedAt).Hours() / 24
	if opts.TTLDays > 0 && ageDays > opts.TTLDays {
		return &ReadResult{
			Status:  StatusStale,
			Output:  output,
			Meta:    meta,
			AgeDays: ageDays,
		}, nil
	}

	return &ReadResult{Status: StatusHit, Output: output, Meta: meta, AgeDays: ageDays}, nil
}

// List enumerates stored fixtures. An empty suiteID lists every suite.
func (s *Store) List(suiteID string) ([]Info, error) {
	var dirs []string
	if suiteID != "" {
		dirs = append(dirs, s.suiteDir(suiteID))
	} else {
		entries, err := os.ReadDir(s.baseDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to read fixture directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, filepath.Join(s.baseDir, e.Name()))
			}
		}
	}

	var infos []Info
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read suite directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
				continue
			}
			path := filepath.Join(dir, e.Name())
			info, err := s.describe(path)
			if err != nil {
				s.logger.Warn("skipping unreadable fixture", "path", path, "error", err)
				continue
			}
			infos = append(infos, *info)
		}
	}
	return infos, nil
}

// Clear removes stored fixtures and reports how many files were
// deleted. An empty suiteID clears every suite.
func (s *Store) Clear(suiteID string) (int, error) {
	infos, err := s.List(suiteID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		if err := os.Remove(info.Path); err != nil {
			return removed, fmt.Errorf("failed to remove fixture %s: %w", info.Path, err)
		}
		removed++
	}
	return removed, nil
}

// FixtureStats summarizes the fixture directory using file sizes and
// modification times.
func (s *Store) FixtureStats() (*Stats, error) {
	infos, err := s.List("")
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalFixtures: len(infos)}
	suites := make(map[string]bool)
	for _, info := range infos {
		st.TotalBytes += info.SizeBytes
		suites[info.SuiteID] = true
		if st.OldestModTime.IsZero() || info.ModifiedAt.Before(st.OldestModTime) {
			st.OldestModTime = info.ModifiedAt
		}
		if info.ModifiedAt.After(st.NewestModTime) {
			st.NewestModTime = info.ModifiedAt
		}
	}
	st.Suites = len(suites)
	return st, nil
}

func (s *Store) describe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta, _, err := parseFixture(f)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &Info{
		SuiteID:    meta.SuiteID,
		CaseID:     meta.CaseID,
		Path:       path,
		SizeBytes:  fi.Size(),
		ModifiedAt: fi.ModTime(),
	}, nil
}

// ensureGitattributes marks fixture files for JSON-aware diffing. The
// file is created once per base directory and left alone afterward.
func (s *Store) ensureGitattributes() error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create fixture base directory: %w", err)
	}
	path := filepath.Join(s.baseDir, ".gitattributes")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte("*.jsonl diff=json\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write .gitattributes: %w", err)
	}
	return nil
}

func parseFixture(f *os.File) (*Meta, *eval.Output, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("missing meta line")
	}
	var meta Meta
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil, nil, fmt.Errorf("invalid meta line: %w", err)
	}

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("missing data line")
	}
	var data struct {
		Output *eval.Output `json:"output"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &data); err != nil {
		return nil, nil, fmt.Errorf("invalid data line: %w", err)
	}
	if data.Output == nil {
		return nil, nil, fmt.Errorf("data line has no output")
	}
	return &meta, data.Output, nil
}

// canonicalDataLine serializes {"output": ...} with all object keys
// deep-sorted (arrays keep their order) so that identical outputs
// produce byte-identical lines. Round-tripping through untyped maps
// relies on encoding/json sorting map keys.
func canonicalDataLine(output *eval.Output, stripRaw bool) ([]byte, error) {
	buf, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	var untyped map[string]any
	if err := json.Unmarshal(buf, &untyped); err != nil {
		return nil, fmt.Errorf("failed to canonicalize output: %w", err)
	}
	if stripRaw {
		delete(untyped, "raw")
	}
	line, err := json.Marshal(map[string]any{"output": untyped})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data line: %w", err)
	}
	return line, nil
}
