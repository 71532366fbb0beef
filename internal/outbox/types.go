package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Event is one queued relay event, written in the same transaction as
// the domain change it describes.
type Event struct {
	ID        uuid.UUID
	RoomCode  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}
