// Package physics is a rigid-body simulator built around resting contact.
//
// A [Simulator] owns fixed-size pools of [RigidBody], [CollisionBody] and
// [Constraint] values. Each call to [Simulator.Advance] runs a number of
// sub-steps; every sub-step detects collisions, integrates forces, solves
// joint chains and contact stacks with a sequential impulse solver, then
// integrates positions.
//
// Bodies that come to rest record up to three [RestRecord] points against
// their supports. Those records build a [RestHull] and link the bodies into
// [StackHeader] groups that are solved together and put to sleep together.
//
// Collision detection is pluggable: a [BroadPhase] yields candidate pairs, a
// [NarrowPhase] turns them into contacts and a [Terrain] supplies static
// ground. Package collide provides the default implementations.
//
//	sim, err := physics.New(physics.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	sim.SetNarrowPhase(collide.NewNarrow())
//	sim.SetTerrain(collide.NewPlane(mgl64.Vec3{0, 1, 0}, 0, 0))
//	box, _ := sim.CreateRigidBody()
//	box.SetGeometry(physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}, 0))
//	box.SetPos(mgl64.Vec3{0, 3, 0})
//	for i := 0; i < 600; i++ {
//		if err := sim.Advance(1.0/60, 1); err != nil {
//			log.Println(err)
//		}
//	}
package physics
