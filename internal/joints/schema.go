// Package joints loads the declarative list of joints to track.
package joints

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
)

//go:embed default_joints.toml
var defaultDocument []byte

// ErrEmptySchema is returned when a document defines no joints at all
var ErrEmptySchema = errors.New("joint schema defines no joints")

// AngleSpec names an angle whose vertex is Anchors[1]
type AngleSpec struct {
	Name    string
	Anchors [3]string
}

// PositionSpec names a single tracked landmark position
type PositionSpec struct {
	Name   string
	Anchor string
}

// Schema is the full set of tracked joints, sorted by name
type Schema struct {
	Angles    []AngleSpec
	Positions []PositionSpec
}

// Len returns the total number of joints
func (s Schema) Len() int {
	return len(s.Angles) + len(s.Positions)
}

type document struct {
	Angles    map[string][]string `toml:"angles"`
	Positions map[string]string   `toml:"positions"`
}

// Default returns the built-in schema
func Default() Schema {
	s, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("joints: built-in schema invalid: %v", err))
	}
	return s
}

// Load reads and validates a schema document from path
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read joint schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Schema{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a schema document. Any malformed entry fails
// the whole document.
func Parse(data []byte) (Schema, error) {
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to decode joint schema: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Schema{}, fmt.Errorf("unknown keys in joint schema: %s", strings.Join(keys, ", "))
	}

	var s Schema
	for name, anchors := range doc.Angles {
		spec, err := angleSpec(name, anchors)
		if err != nil {
			return Schema{}, err
		}
		s.Angles = append(s.Angles, spec)
	}
	for name, anchor := range doc.Positions {
		if err := checkName(name); err != nil {
			return Schema{}, err
		}
		if !pose.IsLandmark(anchor) {
			return Schema{}, fmt.Errorf("position %q: unknown landmark %q", name, anchor)
		}
		s.Positions = append(s.Positions, PositionSpec{Name: name, Anchor: anchor})
	}

	if s.Len() == 0 {
		return Schema{}, ErrEmptySchema
	}

	sort.Slice(s.Angles, func(i, j int) bool { return s.Angles[i].Name < s.Angles[j].Name })
	sort.Slice(s.Positions, func(i, j int) bool { return s.Positions[i].Name < s.Positions[j].Name })
	return s, nil
}

func angleSpec(name string, anchors []string) (AngleSpec, error) {
	if err := checkName(name); err != nil {
		return AngleSpec{}, err
	}
	if len(anchors) != 3 {
		return AngleSpec{}, fmt.Errorf("angle %q: want 3 anchors, got %d", name, len(anchors))
	}
	seen := make(map[string]struct{}, 3)
	var spec AngleSpec
	spec.Name = name
	for i, label := range anchors {
		if !pose.IsLandmark(label) {
			return AngleSpec{}, fmt.Errorf("angle %q: unknown landmark %q", name, label)
		}
		if _, dup := seen[label]; dup {
			return AngleSpec{}, fmt.Errorf("angle %q: landmark %q repeated", name, label)
		}
		seen[label] = struct{}{}
		spec.Anchors[i] = label
	}
	return spec, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("joint name is empty")
	}
	return nil
}
