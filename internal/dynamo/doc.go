// Package dynamo provides the shared primitives of the rigidsim run harness.
//
// The engine itself lives in package physics; dynamo defines what the
// harness observes and reports about it:
//
//   - [Frame]: sampled body and joint state at one step
//   - [Metric]: scalar accumulated over frames
//   - [Observer]: per-step callback
//   - [Result]: frames and metric values of one run
//   - [Ensemble]: independent runs executed concurrently
//
// Sentinel errors such as [ErrNumericalInstability] and [ErrPoolExhausted]
// are shared by the engine and the harness and are matched with errors.Is.
//
// # Example
//
//	world, _ := experiment.Build("stack", cfg)
//	runner := sim.NewRunner(world)
//	result, _ := runner.Run(ctx, dynamo.DefaultConfig())
//
// # Thread Safety
//
// A physics.Simulator is not safe for concurrent use. For parallel runs
// use [Ensemble], where every job builds its own world.
package dynamo
