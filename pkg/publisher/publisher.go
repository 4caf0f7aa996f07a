package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Publisher is implemented by each platform upload driver. A driver instance
// is constructed fresh per target with only its own resolved configuration;
// drivers share no state with each other.
type Publisher interface {
	// Name returns the target name (unique within a run).
	Name() string

	// Kind returns the platform this driver uploads to.
	Kind() Kind

	// Options returns the target's shared publish options.
	Options() *Options

	// Validate checks the target configuration without touching the network.
	Validate(dryRun bool) error

	// Files returns the local artifact paths that a publish would upload,
	// primary file first. May be empty for platforms with optional files.
	Files() []string

	// Publish uploads the artifact and returns the platform's result.
	Publish(ctx context.Context) (Result, error)

	// DryRunResult synthesizes a result with randomized platform identifiers
	// so downstream URL deduplication is still exercised.
	DryRunResult() Result

	// DryRunInfo logs the resolved configuration a real publish would use.
	DryRunInfo(log *logrus.Entry)
}

// DecodeFunc unmarshals a target's platform-specific configuration section
// into the driver's own options struct.
type DecodeFunc func(out interface{}) error

// Factory constructs a driver for one named target. shared holds the already
// merged publish options; decode provides the platform-specific section.
type Factory func(name string, shared Options, decode DecodeFunc) (Publisher, error)

var (
	mu        sync.RWMutex
	factories = make(map[Kind]Factory)
)

// Register registers a driver factory for a platform kind. Platform packages
// call this from init; registering the same kind twice is an error.
func Register(kind Kind, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil factory")
	}
	if kind == "" {
		return fmt.Errorf("platform kind cannot be empty")
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[kind]; exists {
		return fmt.Errorf("platform %q is already registered", kind)
	}

	factories[kind] = factory
	return nil
}

// Lookup retrieves the factory for a platform kind. Returns nil if the kind
// is not registered.
func Lookup(kind Kind) Factory {
	mu.RLock()
	defer mu.RUnlock()

	return factories[kind]
}

// Kinds returns all registered platform kinds.
func Kinds() []Kind {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]Kind, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	return kinds
}
