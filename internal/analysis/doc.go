// Package analysis post-processes recorded runs.
//
//   - [Spectrum] and [DominantFrequency]: FFT of a body coordinate, used to
//     find the swing frequency of pendulums or residual jitter of resting bodies
//   - [SettleTime]: when a series stops moving
//   - [LyapunovExponent]: divergence rate of two nearly identical worlds
//   - [PhasePortrait] and [PoincareSection]: phase-space views of one body
//
// # Jitter
//
// A body resting on the ground should have no spectral energy above the
// frame rate's noise floor:
//
//	heights := result.Series(id, func(b dynamo.BodySample) float64 { return b.Pos[1] })
//	f := analysis.DominantFrequency(heights, dt)
package analysis
