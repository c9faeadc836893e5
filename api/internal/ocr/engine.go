package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownEngine is returned by Engines.GetEngine for unregistered names.
var ErrUnknownEngine = errors.New("unknown engine")

// Engine turns an image into raw text. Implementations must be safe for
// concurrent use.
type Engine interface {
	Name() string
	GetModel() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// Engines is the set of configured backends.
type Engines struct {
	mu     sync.RWMutex
	byName map[string]Engine
	def    string
}

func NewEngines() *Engines {
	return &Engines{byName: make(map[string]Engine)}
}

// Register adds e under its name. The first registered engine becomes the default.
func (e *Engines) Register(eng Engine) {
	if eng == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	name := strings.ToLower(eng.Name())
	e.byName[name] = eng
	if e.def == "" {
		e.def = name
	}
}

// SetDefault makes name the engine used when a request names none.
func (e *Engines) SetDefault(name string) error {
	name = canonical(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byName[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	e.def = name
	return nil
}

func (e *Engines) Default() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.def
}

// GetEngine resolves a name; "" means the default. "gpt" is an alias of "openai".
func (e *Engines) GetEngine(name string) (Engine, error) {
	name = canonical(name)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if name == "" {
		name = e.def
	}
	if eng, ok := e.byName[name]; ok {
		return eng, nil
	}
	return nil, fmt.Errorf("%w: %q; available: %s", ErrUnknownEngine, name, strings.Join(e.namesLocked(), ", "))
}

func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "gpt" {
		return "openai"
	}
	return name
}

func (e *Engines) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.namesLocked()
}

func (e *Engines) namesLocked() []string {
	out := make([]string, 0, len(e.byName))
	for n := range e.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (e *Engines) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byName)
}

// Manager keeps a per-chat engine choice on top of Engines.
type Manager struct {
	engines *Engines
	m       sync.Map // chatID -> string (engine name)
}

func NewManager(engines *Engines) *Manager {
	return &Manager{engines: engines}
}

// Get returns the engine picked for chatID, or the default one.
func (m *Manager) Get(chatID int64) (Engine, error) {
	if v, ok := m.m.Load(chatID); ok {
		if eng, err := m.engines.GetEngine(v.(string)); err == nil {
			return eng, nil
		}
	}
	return m.engines.GetEngine("")
}

// Set pins chatID to the named engine.
func (m *Manager) Set(chatID int64, name string) (Engine, error) {
	eng, err := m.engines.GetEngine(name)
	if err != nil {
		return nil, err
	}
	m.m.Store(chatID, eng.Name())
	return eng, nil
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}

func (m *Manager) Engines() *Engines { return m.engines }
