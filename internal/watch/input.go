package watch

// KeySource yields the characters typed on a window since the last call
type KeySource interface {
	PollKeys() []rune
}

// KeyInput turns a key on a window into reset requests
type KeyInput struct {
	src KeySource
	key rune
}

// NewKeyInput creates a reset input that fires on key
func NewKeyInput(src KeySource, key rune) *KeyInput {
	return &KeyInput{src: src, key: key}
}

// ResetRequested drains pending key presses and reports whether key was among them
func (k *KeyInput) ResetRequested() bool {
	requested := false
	for _, r := range k.src.PollKeys() {
		if r == k.key {
			requested = true
		}
	}
	return requested
}

// ResetQueue carries reset requests from other goroutines (the status
// server) into the loop. Requests made between two ticks collapse into one.
type ResetQueue struct {
	ch chan struct{}
}

// NewResetQueue creates an empty queue
func NewResetQueue() *ResetQueue {
	return &ResetQueue{ch: make(chan struct{}, 1)}
}

// Request queues a reset; safe for concurrent use
func (q *ResetQueue) Request() {
	select {
	case q.ch <- struct{}{}:
	default:
	}
}

// ResetRequested consumes a pending request, if any
func (q *ResetQueue) ResetRequested() bool {
	select {
	case <-q.ch:
		return true
	default:
		return false
	}
}

// AnyInput combines reset inputs. Every input is polled on each call so
// none of them accumulates stale requests.
type AnyInput []ResetInput

// ResetRequested reports whether any input requested a reset
func (a AnyInput) ResetRequested() bool {
	requested := false
	for _, in := range a {
		if in.ResetRequested() {
			requested = true
		}
	}
	return requested
}
