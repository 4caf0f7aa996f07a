package publisher

import (
	"fmt"
	"strings"
)

// DependencyKind is the relation between the published artifact and another
// project. Drivers translate it into their platform's own vocabulary.
type DependencyKind string

const (
	DependencyRequired     DependencyKind = "required"
	DependencyOptional     DependencyKind = "optional"
	DependencyIncompatible DependencyKind = "incompatible"
	DependencyEmbedded     DependencyKind = "embedded"
)

// ParseDependencyKind parses a dependency kind name, case-insensitively.
func ParseDependencyKind(value string) (DependencyKind, error) {
	switch DependencyKind(strings.ToLower(value)) {
	case DependencyRequired:
		return DependencyRequired, nil
	case DependencyOptional:
		return DependencyOptional, nil
	case DependencyIncompatible:
		return DependencyIncompatible, nil
	case DependencyEmbedded:
		return DependencyEmbedded, nil
	}
	return "", fmt.Errorf("invalid dependency kind: %s. Must be one of: required, optional, incompatible, embedded", value)
}

// Dependency identifies a related project either by platform ID or by slug.
// Exactly one of ID and Slug must be set for platforms that accept both.
type Dependency struct {
	ID   string `yaml:"id,omitempty"`
	Slug string `yaml:"slug,omitempty"`

	// Version constrains the dependency to a specific version of the related
	// project. Optional; only honored by platforms with versioned relations.
	Version string `yaml:"version,omitempty"`

	Kind DependencyKind `yaml:"kind,omitempty"`
}
