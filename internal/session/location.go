package session

import "sync"

// FragmentLocation is the fragment a shell stream was opened with. Clearing it
// notifies the stream so the browser can drop the fragment from its URL.
type FragmentLocation struct {
	mu       sync.Mutex
	fragment string
	cleared  chan struct{}
}

func NewFragmentLocation(fragment string) *FragmentLocation {
	return &FragmentLocation{fragment: fragment, cleared: make(chan struct{}, 1)}
}

func (l *FragmentLocation) Fragment() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fragment
}

func (l *FragmentLocation) ClearFragment() {
	l.mu.Lock()
	had := l.fragment != ""
	l.fragment = ""
	l.mu.Unlock()

	if had {
		select {
		case l.cleared <- struct{}{}:
		default:
		}
	}
}

// Cleared signals each time a non-empty fragment is cleared
func (l *FragmentLocation) Cleared() <-chan struct{} {
	return l.cleared
}
