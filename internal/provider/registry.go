package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Completer from a config map. Each provider registers a
// factory in its init function.
type Factory func(ctx context.Context, config map[string]any) (Completer, error)

var (
	factoryMu sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterFactory registers a provider factory under a name. Later
// registrations with the same name win, which tests use to inject fakes.
func RegisterFactory(name string, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[name] = f
}

// NewCompleter builds a Completer by provider name.
func NewCompleter(ctx context.Context, name string, config map[string]any) (Completer, error) {
	factoryMu.RLock()
	f, ok := factories[name]
	factoryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, registeredNames())
	}
	return f(ctx, config)
}

func registeredNames() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// configString pulls a string value out of a factory config map.
func configString(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}
