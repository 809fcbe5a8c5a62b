// Package viz renders a live ascent in the terminal with Bubble Tea.
//
// The left pane traces the flight path on a braille [Canvas] with downrange
// distance across and altitude up. The right pane shows stage, fuel and
// kinematics with asciigraph histories of altitude and speed.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Relaunch from the pad
//	T     - Cycle color themes
//	+/-   - More or fewer ticks per frame
//	Q     - Quit
package viz
