package director

import "sync/atomic"

// Liveness is a shared flag that outlives its owner. Callbacks that may run after the
// owner is torn down check it first and become no-ops once it is killed.
type Liveness struct {
	dead atomic.Bool
}

// NewLiveness returns a live token.
func NewLiveness() *Liveness {
	return &Liveness{}
}

// Alive reports whether Kill has not been called.
func (l *Liveness) Alive() bool {
	return !l.dead.Load()
}

// Kill marks the owner as gone. It is safe to call more than once.
func (l *Liveness) Kill() {
	l.dead.Store(true)
}

// Guard wraps fn so that it only runs while the token is alive.
func (l *Liveness) Guard(fn func(result string)) func(result string) {
	return func(result string) {
		if !l.Alive() || fn == nil {
			return
		}
		fn(result)
	}
}
