// Package confirm implements the two-phase confirmation gate for irreversible
// commands. A dry run issues a short-lived token bound to the exact command
// and arguments; the follow-up invocation presents the token, which must be
// old enough to prove a human paused between the two steps.
package confirm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// storeVersion is the on-disk document version of the confirmation file.
const storeVersion = 1

// pending is one recorded dry run awaiting confirmation.
type pending struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Command   string    `json:"command"`
	Summary   string    `json:"summary"`
	Prompt    string    `json:"prompt,omitempty"`
}

// document is the on-disk shape of the confirmation file.
type document struct {
	Version       int                `json:"version"`
	Confirmations map[string]pending `json:"confirmations"`
}

// store persists pending confirmations in a single JSON file.
type store struct {
	path string
	now  func() time.Time
}

// load reads the confirmation file, pruning expired entries. A missing file
// is an empty store.
func (s *store) load() (*document, error) {
	doc := &document{Version: storeVersion, Confirmations: map[string]pending{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read confirmation store: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("confirmation store is corrupt: %w", err)
	}
	if doc.Confirmations == nil {
		doc.Confirmations = map[string]pending{}
	}

	now := s.now()
	for key, entry := range doc.Confirmations {
		if now.After(entry.ExpiresAt) {
			delete(doc.Confirmations, key)
		}
	}
	return doc, nil
}

func (s *store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create confirmation store directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode confirmation store: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write confirmation store: %w", err)
	}
	return nil
}
