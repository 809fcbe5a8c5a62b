// Package physics provides the rigid-body kernel of the launch simulator.
//
// A [RigidBody] owns a flat 19-value state (position, row-major rotation,
// linear momentum, body angular momentum, mass) and implements
// [dynamo.System] through its force and torque model:
//
//   - gravity toward a fixed [Source]
//   - thrust from mass flow and specific impulse
//   - linear drag proportional to momentum
//   - torque from thrust and drag about the centre of mass
//
// Update advances the body by exactly dt using an adaptive stepper. Failed
// updates keep the last good state, are logged, and are returned as a
// classified error so callers may keep stepping:
//
//	body := physics.NewRigidBody(mass, 0, physics.WithLogger(log))
//	if err := body.Update(0.1); err != nil {
//	    // state unchanged, clock advanced
//	}
package physics
