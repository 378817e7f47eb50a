// Package profile loads named run profiles from CUE.
//
// A profile bundles everything a poll run needs: the application identity
// passed to context creation, the loop mode and bounds, and the simulated
// runtime's tick and pose source. Profiles are validated against an
// embedded schema (schema.cue) which also supplies defaults, so a user file
// only states what differs:
//
//	profiles: lab: {
//		app: name: "Lab Rig"
//		mode: "bracketed"
//		runtime: tick: "8ms"
//	}
//
// Built-in profiles (defaults.cue) are always present; a user file may add
// profiles or refine built-in ones, subject to CUE unification.
package profile
