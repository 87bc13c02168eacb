// Package director provides a dynamic difficulty adjustment engine for real-time games.
//
// The engine periodically samples world state, asks a language model to propose tuning
// parameters, validates and clamps the proposal, applies it to gameplay agents, and
// reverts to a baseline after a timed window.
//
// The root package holds the shared data types. Implementations live in subpackages:
//
//   - scheduler: asynchronous inference job scheduler with priority ordering and a
//     concurrency ceiling
//   - decoder: turns free-form model output into a validated [Difficulty]
//   - state: baseline/current difficulty, timed reversion and subscriber fan-out
//   - timer: cancellable one-shot timers driven by a [Clock]
//   - subsystem: wires the pieces above into one service
//   - evaluator: builds scenario snapshots and requests evaluations on an interval
//   - models: [Backend] adapters for LangChainGo models
//
// # Quick Start
//
//	llm, _ := ollama.New(ollama.WithModel("director"))
//	backend := models.NewLCGBackend(llm)
//
//	sub := subsystem.New(backend, subsystem.DefaultConfig(), logger)
//	defer sub.Close()
//
//	sub.Subscribe(director.SubscriberFunc(func(e *director.DifficultyChangedEvent) {
//	    agent.Apply(e.Difficulty)
//	}))
//
//	eval := evaluator.New(world, sub, evaluator.DefaultConfig(), logger)
//	for range ticker.C {
//	    eval.Tick(frameDelta)
//	    sub.Tick()
//	}
//
// # Threading
//
// A single consumer goroutine (the game loop) owns every call except inference itself.
// Inference runs on scheduler worker goroutines; results come back to the consumer through
// the scheduler's Pump, which is what [subsystem.Subsystem.Tick] calls.
package director
