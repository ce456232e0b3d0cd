// Package fetchbot drives a small table-top robot that patrols a table,
// dodges obstacles and drops its load over the far edge.
//
// # Installation
//
//	go install github.com/gwillem/fetchbot/cmd/fetchbot@latest
//
// # Usage
//
// Find the controller board and the arm servo:
//
//	fetchbot ports
//
// Record the arm's travel range and point arm.calibration_file at it:
//
//	fetchbot calibrate --port /dev/ttyUSB1 -o arm.json
//
// Drive from the remote, with a live dashboard:
//
//	fetchbot run
//
// Or try the autopilot against a scripted table first:
//
//	fetchbot simulate examples/far-edge.yaml
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/fetchbot: CLI with run, autopilot, simulate, ports and calibrate commands
//   - pkg/robot: Controller board link, arm servo, configuration
//   - pkg/motion: Motion commands and their executor
//   - pkg/autopilot: Patrol state machine and session runner
//   - pkg/remote: Remote code decoding and manual/autopilot dispatch
//   - pkg/telemetry: Event hub, Prometheus metrics, MQTT and HTTP status
//   - pkg/sim: Simulated device for tests and dry runs
package fetchbot
