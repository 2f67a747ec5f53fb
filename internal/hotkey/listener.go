package hotkey

// Listener delivers raw key events from the platform into a channel. The
// delivering thread never blocks: when the channel is full the event is
// dropped, which at worst costs one edge that the tracker re-derives from
// the next transition.
type Listener interface {
	// Start begins delivery. It returns once the platform hook is installed.
	Start() error
	// Events is the raw event stream. Closed after Stop returns.
	Events() <-chan Event
	// Stop tears down the platform hook and closes the event channel.
	Stop()
}

// Drain discards any queued events without blocking. Called after a session
// completes so edges that piled up while transcribing cannot start a ghost
// session.
func Drain(events <-chan Event) int {
	n := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
