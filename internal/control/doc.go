// Package control provides controllers that drive rigid bodies and joints
// through the engine's periodic controller callbacks.
//
// Every controller exposes a [physics.ControllerFunc] through its Func
// method, which is registered with Simulator.AddBodyController or
// Simulator.AddJointController:
//
//   - [Hover]: PID height hold on a body
//   - [LQR]: linear state feedback towards a target position
//   - [Constant]: fixed force and torque
//   - [Manual]: one-shot pushes set from the outside
//   - [MotorSchedule]: hinge or slide motor that reverses periodically
//   - [None]: writes zero forces
//
// # Usage
//
//	pid := control.NewPID(20, 2, 8, 3) // Kp, Ki, Kd, target height
//	hover := control.NewHover(pid, 9.8)
//	world.AddBodyController(body, hover.Func(), 0)
//
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
