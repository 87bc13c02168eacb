package director

// ChangeCause says why subscribers are being notified.
type ChangeCause int

const (
	// CauseInitialized is sent once when the baseline is installed.
	CauseInitialized ChangeCause = iota

	// CauseApplied is sent when a decoded configuration replaces the current one.
	CauseApplied

	// CauseRestored is sent when the baseline comes back, by timer or by explicit reset.
	CauseRestored

	// CauseReplay is sent only to a new subscriber, carrying the current configuration.
	CauseReplay
)

func (c ChangeCause) String() string {
	switch c {
	case CauseInitialized:
		return "initialized"
	case CauseApplied:
		return "applied"
	case CauseRestored:
		return "restored"
	case CauseReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// DifficultyChangedEvent is delivered synchronously to subscribers on every change and
// once on subscription.
type DifficultyChangedEvent struct {
	// Difficulty is the configuration now in effect.
	Difficulty Difficulty

	// Previous is the configuration that was in effect before this change.
	// Equal to Difficulty for CauseReplay and for the first CauseInitialized.
	Previous Difficulty

	Cause ChangeCause

	// Reason is the model's explanation for CauseApplied, empty otherwise.
	Reason string

	// Diff is a unified diff between Previous and Difficulty. Empty when they are equal.
	Diff string
}
