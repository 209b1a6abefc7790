// Package md defines the contracts between the equilibration protocol and a
// molecular dynamics engine.
//
// The protocol never talks to an engine directly; it goes through the narrow
// [Adapter] capability set:
//
//   - set the thermostat target
//   - attach or detach a barostat
//   - advance integration by a step count
//   - read back a scalar [State] snapshot
//
// Any concrete engine binding plugs in by implementing Adapter. The package
// also carries the protocol's error taxonomy and run [Status] values.
package md
