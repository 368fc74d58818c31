// Package runstore persists completed run artifacts as JSON files and
// loads them back with schema validation.
package runstore

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

//go:embed run_schema.json
var runSchemaJSON string

// runIDPattern is enforced before any filesystem access so that run
// identifiers can never traverse paths.
var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRunID rejects identifiers that are empty or contain
// anything outside [a-zA-Z0-9_-].
func ValidateRunID(id string) error {
	if !runIDPattern.MatchString(id) {
		return eval.NewConfigError("invalid run id %q: must match ^[a-zA-Z0-9_-]+$", id)
	}
	return nil
}

// Store reads and writes run artifacts under a directory, one file per
// run.
type Store struct {
	dir    string
	schema *jsonschema.Schema
}

// NewStore creates a run store rooted at dir.
func NewStore(dir string) (*Store, error) {
	schema, err := jsonschema.CompileString("run_schema.json", runSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile run schema: %w", err)
	}
	return &Store{dir: dir, schema: schema}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the run artifact and returns its file path.
func (s *Store) Save(run *eval.Run) (string, error) {
	if err := ValidateRunID(run.ID); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eval.WrapRuntime(err, "failed to create run directory")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", eval.WrapRuntime(err, "failed to marshal run %s", run.ID)
	}

	path := s.path(run.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eval.WrapRuntime(err, "failed to write run file")
	}
	return path, nil
}

// Load reads a run artifact by id, validating the identifier before
// touching the filesystem and the document against the embedded
// schema before decoding.
func (s *Store) Load(id string) (*eval.Run, error) {
	if err := ValidateRunID(id); err != nil {
		return nil, err
	}

	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eval.NewRuntimeError("run %q not found in %s", id, s.dir)
		}
		return nil, eval.WrapRuntime(err, "failed to read run file %s", path)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, eval.WrapRuntime(err, "corrupt run file %s", path)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, eval.WrapRuntime(err, "run file %s failed schema validation", path)
	}

	var run eval.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, eval.WrapRuntime(err, "corrupt run file %s", path)
	}
	return &run, nil
}

// List returns the ids of all stored runs, sorted ascending.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eval.WrapRuntime(err, "failed to read run directory")
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		if runIDPattern.MatchString(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
