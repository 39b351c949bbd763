package setup

import (
	"fmt"
	"sort"
	"sync"
)

// Handlers holds Go-defined setups by name. A handler named after a setup file
// stem (such as "metamask-two") replaces that file's onboarding; any other
// name can be referenced from a file's onboarding.handler field.
type Handlers struct {
	mu       sync.RWMutex
	handlers map[string]Setup
}

// NewHandlers returns an empty handler set.
func NewHandlers() *Handlers {
	return &Handlers{handlers: make(map[string]Setup)}
}

// Register adds a named setup. Names must be unique and the setup needs an
// onboarding function.
func (h *Handlers) Register(name string, s Setup) error {
	if name == "" {
		return fmt.Errorf("setup handler name cannot be empty")
	}
	if s.Onboard == nil {
		return fmt.Errorf("setup handler %q has no onboarding function", name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.handlers[name]; dup {
		return fmt.Errorf("setup handler %q already registered", name)
	}
	h.handlers[name] = s
	return nil
}

// Lookup returns the setup registered under name.
func (h *Handlers) Lookup(name string) (Setup, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.handlers[name]
	return s, ok
}

// Names lists the registered handler names, sorted.
func (h *Handlers) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.handlers))
	for n := range h.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var defaultHandlers = NewHandlers()

// DefaultHandlers is the handler set used by the setup-wallet command.
func DefaultHandlers() *Handlers { return defaultHandlers }

// Register adds a setup to the default handler set. It panics on an invalid
// or duplicate registration, so it is meant to be called from init.
func Register(name string, s Setup) {
	if err := defaultHandlers.Register(name, s); err != nil {
		panic(err)
	}
}
