package store

import "context"

// Store defines the interface for message storage operations
type Store interface {
	// Message operations
	CreateMessage(ctx context.Context, m *Message) (*Message, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	ListMessages(ctx context.Context) ([]*Message, error)
	ListMessagesByRegion(ctx context.Context, region string) ([]*Message, error)
	UpdateMessage(ctx context.Context, m *Message) error
	SetStatus(ctx context.Context, id int64, status MessageStatus) error
	DeleteMessage(ctx context.Context, id int64) error

	// Event operations
	RecordEvent(ctx context.Context, messageID int64, eventType string, visitorID string) error
	GetMessageStats(ctx context.Context, messageID int64) (MessageStats, error)
	GetEvents(ctx context.Context, messageID int64) ([]*Event, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}
