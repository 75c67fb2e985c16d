package repo

import "sync"

// ActiveProfile guards the name of the profile currently mounted on the
// dispatcher. Control handlers and the data plane share one instance
type ActiveProfile struct {
	mu   sync.Mutex
	name string
	set  bool
}

// Get returns the active profile name, if any
func (a *ActiveProfile) Get() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name, a.set
}

// Set points the dispatcher at the named profile
func (a *ActiveProfile) Set(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
	a.set = true
}

// Clear unsets the active profile
func (a *ActiveProfile) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = ""
	a.set = false
}
