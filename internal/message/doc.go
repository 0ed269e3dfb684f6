// Package message defines the JSON wire envelope exchanged with a VIEW device.
//
// Every frame is a JSON object carrying a "type" discriminator plus
// type-specific fields. Decoding reads the discriminator first and then
// dispatches through a table of known inbound types:
//   - known types decode into their concrete struct
//   - unknown types decode into Unknown, keeping the raw frame
//   - frames that are not JSON objects return a *DecodeError
package message
