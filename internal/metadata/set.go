package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingVersion is returned when no target version is supplied.
var ErrMissingVersion = errors.New("target version is required")

// SourceMetadataSet is the immutable dataset produced by one extraction run:
// the format version, the version of the described artifact and its root
// classes in input order. Accessors return copies.
type SourceMetadataSet struct {
	specVersion   SimpleVersion
	targetVersion string
	classes       []ClassMetadata
}

// Assemble builds a dataset from reassembled root classes.
// The roots are deep-copied; later changes by the caller are not observed.
func Assemble(spec SimpleVersion, target string, roots []ClassMetadata) (*SourceMetadataSet, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrMissingVersion
	}
	classes := make([]ClassMetadata, len(roots))
	for i, root := range roots {
		classes[i] = root.Clone()
	}
	return &SourceMetadataSet{specVersion: spec, targetVersion: target, classes: classes}, nil
}

// SpecVersion returns the dataset format version.
func (s *SourceMetadataSet) SpecVersion() SimpleVersion { return s.specVersion }

// TargetVersion returns the version of the described artifact.
func (s *SourceMetadataSet) TargetVersion() string { return s.targetVersion }

// Classes returns a deep copy of the root classes.
func (s *SourceMetadataSet) Classes() []ClassMetadata {
	out := make([]ClassMetadata, len(s.classes))
	for i, c := range s.classes {
		out[i] = c.Clone()
	}
	return out
}

// Roots returns the number of root classes.
func (s *SourceMetadataSet) Roots() int { return len(s.classes) }

// Count returns the number of classes in the dataset, nested ones included.
func (s *SourceMetadataSet) Count() int {
	n := 0
	for _, c := range s.classes {
		n += c.Count()
	}
	return n
}

// Find returns the class with the given name, searching nested classes too.
func (s *SourceMetadataSet) Find(name string) (ClassMetadata, bool) {
	var walk func([]ClassMetadata) (ClassMetadata, bool)
	walk = func(classes []ClassMetadata) (ClassMetadata, bool) {
		for _, c := range classes {
			if c.Name == name {
				return c.Clone(), true
			}
			if found, ok := walk(c.InnerClasses); ok {
				return found, true
			}
		}
		return ClassMetadata{}, false
	}
	return walk(s.classes)
}

type setJSON struct {
	SpecVersion      SimpleVersion   `json:"specVersion"`
	MinecraftVersion string          `json:"minecraftVersion"`
	Classes          []ClassMetadata `json:"classes"`
}

// MarshalJSON implements json.Marshaler.
func (s *SourceMetadataSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(setJSON{
		SpecVersion:      s.specVersion,
		MinecraftVersion: s.targetVersion,
		Classes:          orEmpty(s.classes),
	})
}

// UnmarshalJSON implements json.Unmarshaler. A dataset without a target
// version is rejected with ErrMissingVersion.
func (s *SourceMetadataSet) UnmarshalJSON(data []byte) error {
	var raw setJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode dataset: %w", err)
	}
	if strings.TrimSpace(raw.MinecraftVersion) == "" {
		return ErrMissingVersion
	}
	*s = SourceMetadataSet{
		specVersion:   raw.SpecVersion,
		targetVersion: raw.MinecraftVersion,
		classes:       orEmpty(raw.Classes),
	}
	return nil
}
