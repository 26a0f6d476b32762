// Package vocab provides the default vocabulary prefixes offered to mappings
// that declare none, and persists the working list between runs.
package vocab

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/mapping"
)

// MetaFile is the name of the saved vocabulary list inside a working directory.
const MetaFile = "vocabularies_meta.json"

//go:embed predefined_vocabs
var predefined string

// Vocabulary is a prefix bound to a namespace. FetchURL locates the
// vocabulary document and defaults to the namespace.
type Vocabulary struct {
	Prefix    string `json:"prefix"`
	Namespace string `json:"namespace"`
	FetchURL  string `json:"fetchURL,omitempty"`
}

// Logger receives problems that do not stop the caller.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// Parse reads "prefix namespace [fetchURL]" lines separated by whitespace.
// Lines with fewer than two fields are skipped.
func Parse(r io.Reader) ([]Vocabulary, error) {
	var out []Vocabulary
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		v := Vocabulary{Prefix: fields[0], Namespace: fields[1], FetchURL: fields[1]}
		if len(fields) > 2 {
			v.FetchURL = fields[2]
		}
		out = append(out, v)
	}
	return out, scanner.Err()
}

// Predefined returns the built-in vocabulary list.
func Predefined() []Vocabulary {
	vocabs, _ := Parse(strings.NewReader(predefined))
	return vocabs
}

// Namespaces converts vocabularies into mapping namespaces.
func Namespaces(vocabs []Vocabulary) []mapping.Namespace {
	out := make([]mapping.Namespace, len(vocabs))
	for i, v := range vocabs {
		out[i] = mapping.Namespace{Prefix: v.Prefix, IRI: v.Namespace}
	}
	return out
}

// Manager keeps the vocabulary list of a working directory.
type Manager struct {
	dir    string
	logger Logger
}

// NewManager returns a manager for dir. A nil logger discards warnings.
func NewManager(dir string, logger Logger) *Manager {
	return &Manager{dir: dir, logger: logger}
}

// Vocabularies returns the saved list, or the predefined list when nothing
// usable is saved yet. In the latter case the predefined list is saved. Load
// and save problems are logged, never returned.
func (m *Manager) Vocabularies() []Vocabulary {
	vocabs, err := m.Load()
	if err == nil && len(vocabs) > 0 {
		return vocabs
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.warn("saved vocabularies unreadable, using predefined list", err)
	}

	vocabs = Predefined()
	if m.dir != "" {
		if err := m.Save(vocabs); err != nil {
			m.warn("saving predefined vocabularies failed", err)
		}
	}
	return vocabs
}

type metaDocument struct {
	Prefixes []Vocabulary `json:"prefixes"`
}

// Load reads the saved list.
func (m *Manager) Load() ([]Vocabulary, error) {
	path := filepath.Join(m.dir, MetaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeVocabLoadFailure, "read vocabularies", errs.FieldPath(path))
	}
	if len(data) == 0 {
		return nil, nil
	}
	var doc metaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(err, errs.CodeVocabLoadFailure, "decode vocabularies", errs.FieldPath(path))
	}
	return doc.Prefixes, nil
}

// Save replaces the saved list through a temporary file in the same directory.
func (m *Manager) Save(vocabs []Vocabulary) error {
	path := filepath.Join(m.dir, MetaFile)
	data, err := json.MarshalIndent(metaDocument{Prefixes: vocabs}, "", "  ")
	if err != nil {
		return errs.Wrap(err, errs.CodeVocabSaveFailure, "encode vocabularies")
	}

	tmp, err := os.CreateTemp(m.dir, "vocabs-*.tmp")
	if err != nil {
		return errs.Wrap(err, errs.CodeVocabSaveFailure, "create temp file", errs.FieldPath(m.dir))
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, errs.CodeVocabSaveFailure, "write temp file", errs.FieldPath(tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, errs.CodeVocabSaveFailure, "close temp file", errs.FieldPath(tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.Wrap(err, errs.CodeVocabSaveFailure, "replace vocabularies", errs.FieldPath(path))
	}
	return nil
}

// Defaults returns the namespaces of t, or the manager's vocabularies when t
// declares none.
func (m *Manager) Defaults(t *mapping.Transform) []mapping.Namespace {
	if t != nil && len(t.Namespaces) > 0 {
		return t.Namespaces
	}
	return Namespaces(m.Vocabularies())
}

func (m *Manager) warn(msg string, err error) {
	if m.logger != nil {
		m.logger.Warn(msg, "dir", m.dir, "error", err)
	}
}
