package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SocketAddressPath is the discovery endpoint, relative to the base URL.
const SocketAddressPath = "socket/address"

// ErrUnrecognizedAddress is returned when a socket/address body has neither shape.
var ErrUnrecognizedAddress = errors.New("unrecognized socket address response")

// AddressKind tells the two socket/address response shapes apart.
type AddressKind int

const (
	// AddressReachable carries a WebSocket address to open.
	AddressReachable AddressKind = iota

	// AddressLoginRequired means the device wants credentials first.
	AddressLoginRequired
)

// String returns a human-readable kind name.
func (k AddressKind) String() string {
	switch k {
	case AddressReachable:
		return "reachable"
	case AddressLoginRequired:
		return "login_required"
	default:
		return "unknown"
	}
}

// AddressResponse is a decoded socket/address body.
type AddressResponse struct {
	Kind    AddressKind
	Address string // WebSocket URL, Reachable only
	Action  string // LoginRequired only
	Message string // LoginRequired only
}

// ParseAddressResponse peeks at the object keys to pick a shape and then
// decodes it: "address" means Reachable, "action" means LoginRequired.
func ParseAddressResponse(body []byte) (AddressResponse, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return AddressResponse{}, fmt.Errorf("%w: %v", ErrUnrecognizedAddress, err)
	}

	switch {
	case keys["address"] != nil:
		var wire struct {
			Address string `json:"address"`
		}
		if err := json.Unmarshal(body, &wire); err != nil {
			return AddressResponse{}, fmt.Errorf("decode address: %w", err)
		}
		if wire.Address == "" {
			return AddressResponse{}, fmt.Errorf("%w: empty address", ErrUnrecognizedAddress)
		}
		return AddressResponse{Kind: AddressReachable, Address: wire.Address}, nil

	case keys["action"] != nil:
		var wire struct {
			Action  string `json:"action"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &wire); err != nil {
			return AddressResponse{}, fmt.Errorf("decode login notice: %w", err)
		}
		return AddressResponse{Kind: AddressLoginRequired, Action: wire.Action, Message: wire.Message}, nil
	}

	return AddressResponse{}, ErrUnrecognizedAddress
}

// SocketAddress asks the device where its WebSocket lives.
func (c *Client) SocketAddress(ctx context.Context) (AddressResponse, error) {
	var raw json.RawMessage
	if err := c.get(ctx, SocketAddressPath, &raw); err != nil {
		return AddressResponse{}, err
	}
	return ParseAddressResponse(raw)
}
