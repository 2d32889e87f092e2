// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoOrganization = errors.New("token is not bound to an organization")
)
