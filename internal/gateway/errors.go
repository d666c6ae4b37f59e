package gateway

import "errors"

// Close codes sent on the websocket close frame.
const (
	CloseNone            = 0 // drop the transport without a close frame
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseGeoDenied       = 4003
	CloseUnauthenticated = 4401
)

var (
	// ErrUnauthenticated covers every session resolution failure. Callers never
	// learn which check failed.
	ErrUnauthenticated = errors.New("gateway: unauthenticated")

	ErrGeoDenied = errors.New("gateway: jurisdiction check failed")

	ErrConnectionClosed = errors.New("gateway: connection closed")

	ErrSendFailed = errors.New("gateway: send failed")

	ErrDuplicateConnection = errors.New("gateway: duplicate connection id")

	ErrUnknownConnection = errors.New("gateway: unknown connection")

	ErrShuttingDown = errors.New("gateway: shutting down")
)
