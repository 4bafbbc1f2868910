package engine

import (
	"sort"
	"sync"
)

// Engine is registry of named actions.
type Engine struct {
	lk      sync.Mutex
	actions map[string]Doer
}

func NewEngine() *Engine {
	self := &Engine{
		actions: make(map[string]Doer, 32),
	}
	return self
}

func (self *Engine) Register(action string, d Doer) {
	self.lk.Lock()
	self.actions[action] = d
	self.lk.Unlock()
}

// Resolve returns nil for unknown action.
func (self *Engine) Resolve(action string) Doer {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.actions[action]
}

// Names are sorted.
func (self *Engine) Names() []string {
	self.lk.Lock()
	names := make([]string, 0, len(self.actions))
	for name := range self.actions {
		names = append(names, name)
	}
	self.lk.Unlock()
	sort.Strings(names)
	return names
}
