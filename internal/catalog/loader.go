package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when a category file fails schema validation.
var ErrInvalidDocument = errors.New("invalid category document")

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(categorySchema))
	})
	return schema, schemaErr
}

type categoryFile struct {
	Category `yaml:",inline"`
	Order    int `yaml:"order"`

	path string
}

// LoadDir loads one category per YAML file from a directory tree.
// Files that fail validation are skipped; unreadable files fail the load.
func LoadDir(dir string) (*Catalog, error) {
	var files []categoryFile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		cf, err := decodeCategory(data)
		if err != nil {
			slog.Warn("skipping invalid category YAML", "path", path, "error", err)
			return nil
		}
		cf.path = path
		files = append(files, cf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].path < files[j].path
	})

	cats := make([]Category, 0, len(files))
	topics := 0
	for _, f := range files {
		cats = append(cats, f.Category)
		topics += len(f.Topics)
	}

	slog.Info("catalog loaded", "dir", dir, "categories", len(cats), "topics", topics)
	return New(cats), nil
}

// ValidateFile checks a single category file against the schema.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if _, err := decodeCategory(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func decodeCategory(data []byte) (categoryFile, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return categoryFile{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	s, err := compiledSchema()
	if err != nil {
		return categoryFile{}, fmt.Errorf("compiling schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return categoryFile{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return categoryFile{}, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	var cf categoryFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return categoryFile{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return cf, nil
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
