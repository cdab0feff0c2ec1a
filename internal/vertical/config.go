// Package vertical maps products' source categories to configured verticals.
package vertical

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config describes one vertical: the categories that map into it and the
// attribute hygiene rules applied to its products. Configuration is owned
// externally; the engine never mutates it.
type Config struct {
	ID string `yaml:"id"`

	// MatchingCategories are datasource category labels that classify a
	// product into this vertical. Matching is case-insensitive on the
	// whitespace-trimmed label.
	MatchingCategories []string `yaml:"matching_categories"`

	// ExcludingTokens disqualify an otherwise matching product when any of
	// its categories contains one of these substrings.
	ExcludingTokens []string `yaml:"excluding_tokens,omitempty"`

	// ExcludedAttributes are attribute names stripped from products of this
	// vertical during the batch cleanup stage.
	ExcludedAttributes []string `yaml:"excluded_attributes,omitempty"`
}

// File is the on-disk shape of the verticals configuration.
type File struct {
	Verticals []Config `yaml:"verticals"`
}

// LoadConfigs reads the verticals configuration file. Order is meaningful:
// classification tries verticals in the order they are declared.
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vertical: read config %s", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "vertical: parse config %s", path)
	}

	for i, vc := range f.Verticals {
		if strings.TrimSpace(vc.ID) == "" {
			return nil, eris.Errorf("vertical: config entry %d has no id", i)
		}
	}
	return f.Verticals, nil
}

// ExcludesAttribute reports whether the vertical strips the given
// attribute name.
func (c *Config) ExcludesAttribute(name string) bool {
	for _, excluded := range c.ExcludedAttributes {
		if strings.EqualFold(excluded, name) {
			return true
		}
	}
	return false
}
