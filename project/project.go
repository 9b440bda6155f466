// SPDX-License-Identifier: EPL-2.0

package project

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FormatVersion is written into every saved project. Files from a newer
// version are rejected.
const FormatVersion = 1

// Project is the on-disk document.
type Project struct {
	Version    int      `json:"version"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Tempo      float64  `json:"tempo"`
	MasterGain float32  `json:"masterGain"`
	AudioFiles []string `json:"audioFiles"`
	Snapshot   Snapshot `json:"snapshot"`
}

// New wraps s, filling the envelope fields from it.
func New(name string, s Snapshot) *Project {
	var files []string
	for _, f := range []string{s.Transport.File, s.Slicer.SampleFile} {
		if f != "" {
			files = append(files, f)
		}
	}

	return &Project{
		Version:    FormatVersion,
		ID:         uuid.NewString(),
		Name:       name,
		Tempo:      s.Sequencer.Tempo,
		MasterGain: s.Transport.Gain,
		AudioFiles: files,
		Snapshot:   s,
	}
}

func Save(w io.Writer, p *Project) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}
	return nil
}

// Load decodes and validates a project. A file without an ID is given a
// fresh one.
func Load(r io.Reader) (*Project, error) {
	var p Project
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}

	if p.Version < 1 || p.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, err := uuid.Parse(p.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if err := p.Snapshot.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// SaveFile writes p to path through a temporary file in the same directory,
// so a failed save never truncates an existing project.
func SaveFile(path string, p *Project) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".groovedeck-*")
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Save(tmp, p); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	return nil
}

func LoadFile(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return p, nil
}
