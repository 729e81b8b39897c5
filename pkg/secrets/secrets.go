// Package secrets validates the secrets a manifest requests and
// materializes the injection descriptors for step workloads.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/constructum-ci/constructum/pkg/manifest"
)

// ErrInvalidConfiguration wraps every way a manifest's secret section can
// be unusable. Admission rejects the push; no pipeline record is created.
var ErrInvalidConfiguration = errors.New("invalid secret configuration")

var (
	// ErrDuplicateSecret : two top-level declarations share a name.
	ErrDuplicateSecret = fmt.Errorf("%w: duplicate secret name", ErrInvalidConfiguration)

	// ErrMissingSecret : a declared key is not present at its location
	// in the secret store.
	ErrMissingSecret = fmt.Errorf("%w: secret missing in store", ErrInvalidConfiguration)

	// ErrUnknownStepSecret : a step references a name with no top-level
	// declaration.
	ErrUnknownStepSecret = fmt.Errorf("%w: step references undeclared secret", ErrInvalidConfiguration)
)

// MetadataStore lists which keys exist at a secret location. It is the
// only capability secret validation needs from the secret store.
type MetadataStore interface {
	ListSubkeys(ctx context.Context, location string) ([]string, error)
}

// MaterializedSecret is a validated, resolvable reference to one named
// secret value.
type MaterializedSecret struct {
	ObjectName string `json:"objectName"`
	SecretPath string `json:"secretPath"`
	SecretKey  string `json:"secretKey"`
}

// MaterializedSecretConfig is the set of materialized secrets of one
// manifest, indexed by object name.
type MaterializedSecretConfig struct {
	secrets []MaterializedSecret
	index   map[string]MaterializedSecret
}

func NewMaterializedSecretConfig(secrets []MaterializedSecret) MaterializedSecretConfig {
	index := map[string]MaterializedSecret{}
	for _, s := range secrets {
		index[s.ObjectName] = s
	}
	return MaterializedSecretConfig{secrets: secrets, index: index}
}

func (c MaterializedSecretConfig) Secrets() []MaterializedSecret {
	return c.secrets
}

func (c MaterializedSecretConfig) Lookup(objectName string) (MaterializedSecret, bool) {
	s, ok := c.index[objectName]
	return s, ok
}

func (c MaterializedSecretConfig) Empty() bool {
	return len(c.secrets) == 0
}

// ForStep narrows the config to the secrets a single step references.
//
// Every reference should already be validated at resolution; an unknown
// name here is still rejected so a step can never run with a dangling
// injection.
func (c MaterializedSecretConfig) ForStep(refs []manifest.StepSecret) (MaterializedSecretConfig, error) {
	picked := make([]MaterializedSecret, 0, len(refs))
	for _, ref := range refs {
		s, ok := c.Lookup(ref.Name)
		if !ok {
			return MaterializedSecretConfig{}, fmt.Errorf("%w: %s", ErrUnknownStepSecret, ref.Name)
		}
		picked = append(picked, s)
	}
	return NewMaterializedSecretConfig(picked), nil
}

// DefaultRole is the sidecar role granting access to the constructum
// secret mount.
const DefaultRole = "constructum"

// Annotations is the pod template annotation map instructing the secret
// sidecar to materialize files under /vault/secrets/.
//
// The keys and the template shape are a wire contract with the injector;
// do not restyle them.
func (c MaterializedSecretConfig) Annotations(role string) map[string]string {
	if c.Empty() {
		return map[string]string{}
	}
	annotations := map[string]string{
		"vault.hashicorp.com/agent-inject": "true",
		"vault.hashicorp.com/role":         role,
	}
	for _, s := range c.secrets {
		annotations["vault.hashicorp.com/agent-inject-secret-"+s.ObjectName] = s.SecretPath
		annotations["vault.hashicorp.com/agent-inject-template-"+s.ObjectName] = fmt.Sprintf(
			`{{ with secret "constructum/%s" -}}
export %s="{{ .Data.data.%s }}"
{{- end }}`,
			s.SecretPath, strings.ToUpper(s.ObjectName), s.SecretKey,
		)
	}
	return annotations
}

// SourcePreamble is the list of shell commands sourcing each
// materialized secret file, to be prepended to the step's own commands.
func (c MaterializedSecretConfig) SourcePreamble() []string {
	preamble := make([]string, 0, len(c.secrets))
	for _, s := range c.secrets {
		preamble = append(preamble, ". /vault/secrets/"+s.ObjectName)
	}
	return preamble
}

// Resolve validates the manifest's secret section against the store and
// materializes it.
//
// Rules, in order:
//   - no two top-level declarations may share a name;
//   - every declared key must exist among the subkeys at its location;
//   - every step-level reference must name a top-level declaration.
//
// A manifest without secrets resolves to an empty config and never
// touches the store (store may be nil in that case).
func Resolve(ctx context.Context, m *manifest.Manifest, store MetadataStore) (MaterializedSecretConfig, error) {
	if len(m.Secrets) == 0 {
		for _, step := range m.Steps {
			if len(step.Secrets) > 0 {
				return MaterializedSecretConfig{}, fmt.Errorf(
					"%w: %s (step %s)", ErrUnknownStepSecret, step.Secrets[0].Name, step.Name,
				)
			}
		}
		return NewMaterializedSecretConfig(nil), nil
	}

	declared := map[string]manifest.SecretDecl{}
	for _, decl := range m.Secrets {
		if _, ok := declared[decl.Name]; ok {
			return MaterializedSecretConfig{}, fmt.Errorf("%w: %s", ErrDuplicateSecret, decl.Name)
		}
		declared[decl.Name] = decl
	}

	if store == nil {
		return MaterializedSecretConfig{}, fmt.Errorf(
			"%w: manifest uses secrets but no secret store is configured", ErrInvalidConfiguration,
		)
	}

	materialized := make([]MaterializedSecret, 0, len(m.Secrets))
	for _, decl := range m.Secrets {
		subkeys, err := store.ListSubkeys(ctx, decl.Location)
		if err != nil {
			return MaterializedSecretConfig{}, fmt.Errorf("listing secret %s: %w", decl.Location, err)
		}
		if !contains(subkeys, decl.Key) {
			return MaterializedSecretConfig{}, fmt.Errorf(
				"%w: %s has no key %s", ErrMissingSecret, decl.Location, decl.Key,
			)
		}
		materialized = append(materialized, MaterializedSecret{
			ObjectName: decl.Name,
			SecretPath: decl.Location,
			SecretKey:  decl.Key,
		})
	}

	for _, step := range m.Steps {
		for _, ref := range step.Secrets {
			if _, ok := declared[ref.Name]; !ok {
				return MaterializedSecretConfig{}, fmt.Errorf(
					"%w: %s (step %s)", ErrUnknownStepSecret, ref.Name, step.Name,
				)
			}
		}
	}

	return NewMaterializedSecretConfig(materialized), nil
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
