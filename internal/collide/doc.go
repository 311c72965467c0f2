// Package collide provides the collision detection the physics engine
// plugs in: a sweep-and-prune broad phase, a narrow phase for boxes and
// spheres, and a plane terrain for ground and slopes.
//
// Every contact follows the engine convention: the normal points from body
// B towards body A and Depth is the penetration along it.
package collide
