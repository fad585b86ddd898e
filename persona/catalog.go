package persona

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/roundtable/core"
)

// catalogFile is the on-disk layout:
//
//	categories:
//	  education:
//	    - name: Ms. Tanaka
//	      role: veteran teacher
//	      personality: practical
//
// Categories are a mapping whose key order is the catalog order.
type catalogFile struct {
	Categories yaml.Node `yaml:"categories"`
}

type personaEntry struct {
	Name        string `yaml:"name"`
	Role        string `yaml:"role"`
	Personality string `yaml:"personality"`
}

// Load reads a YAML catalog into r. Categories already present in r are
// rejected with core.ErrAlreadyExists.
func (r *Registry) Load(rd io.Reader) error {
	var f catalogFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: decode persona catalog: %w", core.ErrInvalidConfiguration, err)
	}

	if f.Categories.Kind == 0 {
		return nil
	}
	if f.Categories.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: persona catalog: categories must be a mapping (line %d)", core.ErrInvalidConfiguration, f.Categories.Line)
	}

	content := f.Categories.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value

		var entries []personaEntry
		if err := content[i+1].Decode(&entries); err != nil {
			return fmt.Errorf("%w: persona catalog: category %q: %w", core.ErrInvalidConfiguration, name, err)
		}

		personas := make([]core.Persona, len(entries))
		for j, e := range entries {
			personas[j] = core.Persona{Name: e.Name, Role: e.Role, Personality: e.Personality}
		}
		if err := r.AddCategory(name, personas...); err != nil {
			return err
		}
	}

	r.logger.Info("persona catalog loaded", "categories", len(content)/2)
	return nil
}

// LoadFile reads a YAML catalog from path into r.
func (r *Registry) LoadFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open persona catalog: %w", err)
	}
	defer fh.Close()
	return r.Load(fh)
}

// Write encodes the catalog as YAML.
func (r *Registry) Write(w io.Writer) error {
	cats := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range r.snapshot() {
		entries := make([]personaEntry, len(c.Personas))
		for i, p := range c.Personas {
			entries[i] = personaEntry{Name: p.Name, Role: p.Role, Personality: p.Personality}
		}

		var value yaml.Node
		if err := value.Encode(entries); err != nil {
			return fmt.Errorf("encode category %q: %w", c.Name, err)
		}
		cats.Content = append(cats.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c.Name}, &value)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&catalogFile{Categories: *cats}); err != nil {
		return fmt.Errorf("encode persona catalog: %w", err)
	}
	return enc.Close()
}

// SaveFile writes the catalog to path, replacing it atomically.
func (r *Registry) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write persona catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace persona catalog: %w", err)
	}
	return nil
}

// LoadFile creates a registry from a YAML catalog file.
func LoadFile(path string, optFns ...func(o *Options)) (*Registry, error) {
	r := NewRegistry(optFns...)
	if err := r.LoadFile(path); err != nil {
		return nil, err
	}
	return r, nil
}
