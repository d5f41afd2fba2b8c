// Package models is the registry that maps user-supplied identifiers and
// aliases to canonical model identifiers. It is a pure lookup table; the
// session loop never mutates it.
package models

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m4xw311/drover/errors"
)

// Model describes one known remote model.
type Model struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Registry resolves identifiers and aliases to canonical models.
type Registry struct {
	models []Model
}

// builtin is the shipped table. Users extend it via ~/.drover/models.yaml;
// entries there take precedence over these.
var builtin = []Model{
	{ID: "gpt-4o", Name: "GPT-4o", Aliases: []string{"4o"}},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Aliases: []string{"4o-mini", "mini"}},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Aliases: []string{"sonnet"}},
	{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", Aliases: []string{"opus"}},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Aliases: []string{"flash"}},
	{ID: "deepseek-chat", Name: "DeepSeek Chat", Aliases: []string{"deepseek"}},
}

// NewRegistry builds the registry from the builtin table plus the optional
// user overlay file. A missing overlay is fine; a malformed one is an error.
func NewRegistry() (*Registry, error) {
	r := &Registry{models: append([]Model(nil), builtin...)}

	home, err := os.UserHomeDir()
	if err != nil {
		return r, nil
	}
	overlayPath := filepath.Join(home, ".drover", "models.yaml")
	data, err := os.ReadFile(overlayPath)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrapf(err, "could not read model overlay")
	}
	var extra []Model
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, errors.Wrapf(err, "malformed model overlay %s", overlayPath)
	}
	r.models = append(extra, r.models...)
	return r, nil
}

// NewStaticRegistry builds a registry from an explicit table. Used by tests.
func NewStaticRegistry(models []Model) *Registry {
	return &Registry{models: models}
}

// Resolve maps an identifier or alias to its canonical model. Matching is
// case-insensitive. An unknown identifier resolves to itself with ok=false
// so callers can still pass arbitrary model ids through to the endpoint.
func (r *Registry) Resolve(idOrAlias string) (Model, bool) {
	needle := strings.ToLower(strings.TrimSpace(idOrAlias))
	for _, m := range r.models {
		if strings.ToLower(m.ID) == needle {
			return m, true
		}
		for _, a := range m.Aliases {
			if strings.ToLower(a) == needle {
				return m, true
			}
		}
	}
	return Model{ID: idOrAlias, Name: idOrAlias}, false
}

// List returns the known models in registry order.
func (r *Registry) List() []Model {
	return append([]Model(nil), r.models...)
}
