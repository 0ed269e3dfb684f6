// Package router dispatches inbound device messages to per-type handlers.
//
// Messages are pulled from the connection controller into a growable queue
// so a slow handler never stalls the socket, then handed to handlers one at
// a time in arrival order.
package router
