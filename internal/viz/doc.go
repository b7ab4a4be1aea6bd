// Package viz provides a terminal viewer for running particle simulations.
//
// The viewer is a Bubble Tea program drawing the ensemble on a braille
// [Canvas] above the ground line, next to live energy and contact readouts.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to the initial conditions
//	Tab   - Select restitution or drag
//	Up/K  - Increase the selected parameter
//	Down/J- Decrease the selected parameter
//	Q     - Quit
package viz
