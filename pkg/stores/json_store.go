package stores

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// readDocument loads a whole JSON document from path into out. A missing file
// leaves out untouched and returns false. A corrupt file is never silently
// repaired; the parse error is returned as fatal for the operation.
func readDocument(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read store %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("store %s is corrupt: %w", path, err)
	}
	return true, nil
}

// writeDocument writes the whole document back, creating parent directories
// as needed. The write goes through a temp file and rename so a crash never
// leaves a half-written store behind.
func writeDocument(path string, doc interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// ProjectStore is the registry of provisioned projects.
type ProjectStore struct {
	path string
}

// NewProjectStore creates a project store backed by the given file path.
func NewProjectStore(path string) *ProjectStore {
	return &ProjectStore{path: path}
}

// load reads the whole document. A missing file is an empty store.
func (s *ProjectStore) load() (*projectDocument, error) {
	doc := &projectDocument{Version: storeVersion}
	if _, err := readDocument(s.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns all project records.
func (s *ProjectStore) List() ([]Project, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Get returns the project with the given name, or false if absent.
func (s *ProjectStore) Get(name string) (Project, bool, error) {
	doc, err := s.load()
	if err != nil {
		return Project{}, false, err
	}
	for _, p := range doc.Entries {
		if p.Name == name {
			return p, true, nil
		}
	}
	return Project{}, false, nil
}

// Save inserts or replaces the record keyed by project name.
func (s *ProjectStore) Save(project Project) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, p := range doc.Entries {
		if p.Name == project.Name {
			doc.Entries[i] = project
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Entries = append(doc.Entries, project)
	}
	log.Debug().Str("project", project.Name).Bool("replaced", replaced).Msg("saving project record")
	return writeDocument(s.path, doc)
}

// Delete removes the record with the given name. Deleting a name that is not
// present is a no-op, not an error.
func (s *ProjectStore) Delete(name string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Entries[:0]
	for _, p := range doc.Entries {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	doc.Entries = kept
	return writeDocument(s.path, doc)
}

// InstanceStore is the registry of ephemeral compute instances.
type InstanceStore struct {
	path string
}

// NewInstanceStore creates an instance store backed by the given file path.
func NewInstanceStore(path string) *InstanceStore {
	return &InstanceStore{path: path}
}

func (s *InstanceStore) load() (*instanceDocument, error) {
	doc := &instanceDocument{Version: storeVersion}
	if _, err := readDocument(s.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns all compute instance records.
func (s *InstanceStore) List() ([]ComputeInstance, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Get returns the instance with the given provider-assigned name.
func (s *InstanceStore) Get(name string) (ComputeInstance, bool, error) {
	doc, err := s.load()
	if err != nil {
		return ComputeInstance{}, false, err
	}
	for _, inst := range doc.Entries {
		if inst.Name == name {
			return inst, true, nil
		}
	}
	return ComputeInstance{}, false, nil
}

// FindByFeature returns the instance bound to the given project and feature.
func (s *InstanceStore) FindByFeature(project, feature string) (ComputeInstance, bool, error) {
	doc, err := s.load()
	if err != nil {
		return ComputeInstance{}, false, err
	}
	for _, inst := range doc.Entries {
		if inst.Project == project && inst.Feature == feature {
			return inst, true, nil
		}
	}
	return ComputeInstance{}, false, nil
}

// ListByProject returns all instances owned by the given project.
func (s *InstanceStore) ListByProject(project string) ([]ComputeInstance, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []ComputeInstance
	for _, inst := range doc.Entries {
		if inst.Project == project {
			out = append(out, inst)
		}
	}
	return out, nil
}

// Save inserts or replaces the record keyed by instance name.
func (s *InstanceStore) Save(inst ComputeInstance) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range doc.Entries {
		if existing.Name == inst.Name {
			doc.Entries[i] = inst
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Entries = append(doc.Entries, inst)
	}
	log.Debug().Str("instance", inst.Name).Bool("replaced", replaced).Msg("saving instance record")
	return writeDocument(s.path, doc)
}

// Delete removes the record with the given name. Absent names are a no-op.
func (s *InstanceStore) Delete(name string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Entries[:0]
	for _, inst := range doc.Entries {
		if inst.Name != name {
			kept = append(kept, inst)
		}
	}
	doc.Entries = kept
	return writeDocument(s.path, doc)
}
