// Package dynamo provides the core numerical primitives shared by the
// rigid-body kernel and its drivers.
//
//   - [State]: flat vector holding a body's physical state
//   - [System]: right-hand side of an ODE (dX/dt = f(X, t))
//   - [Integrator]: fixed-step integrator
//   - [Stepper]: advances across an interval, substepping as needed
//   - [Sample]: read-only per-tick snapshot passed to metrics and observers
//
// Step failures are classified with the sentinel errors in errors.go and
// wrapped in [SimulationError]; callers test them with errors.Is.
//
// # Thread Safety
//
// Steppers keep step-size history and scratch buffers and are NOT
// thread-safe. Each rigid body owns its own stepper.
package dynamo
