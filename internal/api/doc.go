// Package api provides the HTTP client for a VIEW device or its cloud relay.
//
// Endpoints (relative to the device base URL, which always ends in "/"):
//   - GET  socket/address  WebSocket address, or a login-required notice
//   - POST api/login       credential exchange for a session token
//
// Authenticated requests carry the session token in the x-view-session header.
package api
