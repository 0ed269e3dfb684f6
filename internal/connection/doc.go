// Package connection keeps one live session with a device.
//
// A Channel owns a single WebSocket: it serializes writes, sends a Ping
// heartbeat and decodes inbound frames into typed messages.
//
// A Controller runs the reconnect loop around it:
//   - Resolves the device from a fresh candidate list
//   - Logs in when the device asks for it, then pauses on rejection until Retry
//   - Opens a Channel and pumps its messages to Messages()
//   - On any fatal error, waits a fixed backoff and starts over
//
// The Controller is the only writer of the observable State.
package connection
