// Package poller re-requests device status on a fixed interval.
//
// The device pushes most status changes on its own, but battery and program
// state can drift while nothing is happening. The poller sends a Get for each
// configured key every Interval while a session is live, and quietly skips
// ticks while disconnected.
package poller
