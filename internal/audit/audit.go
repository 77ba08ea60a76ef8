// Package audit publishes business events (order created, status changed,
// soft deletes) to a configurable sink.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID uuid.UUID      `json:"entityId"`
	Actor    string         `json:"actor"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}

// Key is the routing/partition key for the event.
func (e Event) Key() string {
	return e.Entity + "." + e.Action
}

// Recorder delivers events. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Closer is implemented by recorders holding broker connections.
type Closer interface {
	Close() error
}

// LogRecorder writes events to the standard logger.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, ev Event) error {
	body, err := json.Marshal(stamp(ev))
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	log.Printf("AUDIT: %s", body)
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(ctx context.Context, ev Event) error { return nil }

// stamp fills At when the caller left it zero.
func stamp(ev Event) Event {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}
