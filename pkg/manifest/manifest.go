// Package manifest reads the pipeline manifest a repository declares in
// .constructum.yml and fetches repository content for builds.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest's path inside the repository.
const FileName = ".constructum.yml"

// ErrInvalid wraps every manifest shape problem: YAML errors, unknown
// pull policies, steps without a name.
var ErrInvalid = errors.New("invalid manifest")

// PullPolicy is the image pull preference of a step. Always is the only
// supported policy.
type PullPolicy string

const PullAlways PullPolicy = "Always"

func (p *PullPolicy) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch strings.ToLower(raw) {
	case "", "always":
		*p = PullAlways
		return nil
	default:
		return fmt.Errorf("%w: unknown pull policy: %s", ErrInvalid, raw)
	}
}

// SecretDecl is a top-level secret declaration: a name for the secret,
// the location it is stored under, and the key to read there.
type SecretDecl struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Key      string `yaml:"key"`
}

// StepSecret references a declared secret by name and binds it to an
// environment variable of the step.
type StepSecret struct {
	Name    string `yaml:"name"`
	VarName string `yaml:"var_name"`
}

// Step is one stage of the declared pipeline.
type Step struct {
	Name     string       `yaml:"name"`
	Image    string       `yaml:"image"`
	Pull     PullPolicy   `yaml:"pull"`
	Commands []string     `yaml:"commands"`
	Secrets  []StepSecret `yaml:"secrets"`
}

// Manifest is the parsed, normalized view of .constructum.yml.
type Manifest struct {
	Version int          `yaml:"version"`
	Secrets []SecretDecl `yaml:"secrets"`
	Steps   []Step       `yaml:"steps"`
}

// Parse decodes and normalizes a manifest document.
func Parse(doc []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if len(m.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps are declared", ErrInvalid)
	}
	for i := range m.Steps {
		s := &m.Steps[i]
		s.Name = NormalizeName(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("%w: step %d has no name", ErrInvalid, i)
		}
		if s.Image == "" {
			return nil, fmt.Errorf("%w: step %s has no image", ErrInvalid, s.Name)
		}
		if s.Pull == "" {
			s.Pull = PullAlways
		}
	}
	return &m, nil
}

// NormalizeName lowercases a step name, trims it and collapses internal
// whitespace runs to single underscores. The result is used in workload
// names, so it must be stable.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}
