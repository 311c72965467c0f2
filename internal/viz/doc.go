// Package viz draws rigid body worlds in the terminal.
//
// [Canvas] packs a braille dot grid into text cells. [Camera] and
// [Render3D] project body bounding boxes onto it; [RenderSide] draws a flat
// x/y view instead. [LiveModel] is a Bubble Tea model that steps a world
// in real time, and [App] wraps it with a scenario and preset picker.
// [Summary] renders a finished run as a lipgloss panel.
//
// # Key Bindings
//
//	Space  - pause / resume
//	N      - single step
//	R      - rebuild the scene
//	W/A/S/D - push the focus body
//	Arrows - orbit the camera
//	V      - toggle side view
//	T      - cycle themes
//	Tab [] - select and tune controller parameters
//	?      - help overlay
package viz
