// Package auth logs in to a device that answered discovery with a login
// prompt, stores the resulting session and re-resolves the socket address.
package auth
