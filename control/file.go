// SPDX-License-Identifier: EPL-2.0

package control

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Valid reports whether m names a function and listens to exactly one note
// or controller in the 7-bit range.
func (m Mapping) Valid() bool {
	if strings.TrimSpace(m.Function) == "" || m.Channel > 15 {
		return false
	}
	switch {
	case m.Note == Unmapped:
		return m.CC >= 0 && m.CC <= 127
	case m.CC == Unmapped:
		return m.Note >= 0 && m.Note <= 127
	}
	return false
}

// SetMappings replaces the whole table. Nothing changes if any entry is
// invalid. Later entries win over earlier ones for the same input.
func (s *Surface) SetMappings(list []Mapping) error {
	for i, m := range list {
		if !m.Valid() {
			return fmt.Errorf("%w: entry %d (%+v)", ErrInvalidMapping, i, m)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.publish(nil)
	for _, m := range list {
		s.addLocked(m)
	}
	return nil
}

// SaveMappings writes list as indented JSON.
func SaveMappings(w io.Writer, list []Mapping) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encoding mappings: %w", err)
	}
	return nil
}

func LoadMappings(r io.Reader) ([]Mapping, error) {
	var list []Mapping
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding mappings: %w", err)
	}
	return list, nil
}

// LoadMappingsFile reads a mappings file and installs it on s.
func (s *Surface) LoadMappingsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	list, err := LoadMappings(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := s.SetMappings(list); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s.logger.Info("mappings loaded", "path", path, "count", len(list))
	return nil
}
