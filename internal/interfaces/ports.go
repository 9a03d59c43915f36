package interfaces

import (
	"context"
	"encoding/json"
)

// Messenger delivers one message to a channel and returns the remote
// service's response body untouched.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, content, token string) (json.RawMessage, error)
}

// Database is a live handle produced by the startup bootstrap.
type Database interface {
	Driver() string
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
