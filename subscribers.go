package director

// DifficultySubscriber receives configuration changes. Gameplay agents implement it to
// mirror the current difficulty into their own state.
//
// # Example
//
//	type CombatController struct {
//	    cached director.Difficulty
//	}
//
//	func (c *CombatController) OnDifficultyChanged(e *director.DifficultyChangedEvent) {
//	    c.cached = e.Difficulty
//	    c.pushToBlackboard()
//	}
//
//	unsubscribe := sub.Subscribe(&CombatController{})
//	defer unsubscribe()
type DifficultySubscriber interface {
	OnDifficultyChanged(event *DifficultyChangedEvent)
}

// SubscriberFunc adapts a plain function to DifficultySubscriber.
type SubscriberFunc func(event *DifficultyChangedEvent)

// OnDifficultyChanged calls f.
func (f SubscriberFunc) OnDifficultyChanged(event *DifficultyChangedEvent) {
	f(event)
}
