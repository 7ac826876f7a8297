package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// Store reads and writes registry files on a billy filesystem.
type Store struct {
	fs billy.Filesystem
}

// NewStore returns a Store over fs. Paths handed to the store are interpreted by fs.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// OSStore returns a Store over the host filesystem; callers pass absolute paths.
func OSStore() *Store {
	return NewStore(osfs.New("/"))
}

// Load reads the registry at path. A missing file yields a fresh registry built from
// computed; a file that fails to parse or validate yields a *MalformedConfigError.
func (s *Store) Load(path string, computed Defaults) (*Registry, error) {
	data, err := util.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(computed), nil
		}
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedConfigError{Path: path, Err: err}
	}
	problems, err := validate(doc)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &MalformedConfigError{Path: path, Problems: problems}
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, &MalformedConfigError{Path: path, Err: err}
	}
	reg.Defaults.fillDefaults(computed)
	if reg.Files == nil {
		reg.Files = map[string]Entry{}
	}
	return &reg, nil
}

// Save replaces the file at path with the complete registry. Parent directories are
// created; the write goes through a temporary sibling and a rename so readers never
// observe a partial file.
func (s *Store) Save(path string, reg *Registry) error {
	data, err := Encode(reg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close temp registry: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace registry %s: %w", path, err)
	}
	return nil
}

// Encode renders reg as two-space indented JSON with sorted keys and a trailing newline.
func Encode(reg *Registry) ([]byte, error) {
	out := reg.Clone()
	if out.Defaults.Exclude == nil {
		out.Defaults.Exclude = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode registry: %w", err)
	}
	return buf.Bytes(), nil
}
