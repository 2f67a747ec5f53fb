//go:build !windows

package hotkey

import "fmt"

type stubListener struct {
	events chan Event
}

// NewListener returns the platform key listener.
func NewListener() Listener {
	return &stubListener{events: make(chan Event)}
}

func (l *stubListener) Start() error {
	return fmt.Errorf("global key capture is not supported on this platform")
}

func (l *stubListener) Events() <-chan Event { return l.events }

func (l *stubListener) Stop() { close(l.events) }
