package service

import (
	"context"
	"log"

	"github.com/tablewise/restaurant-api/internal/audit"
)

// recordEvent publishes an audit event after the owning transaction committed.
// Delivery failures are logged and never fail the request.
func recordEvent(ctx context.Context, rec audit.Recorder, ev audit.Event) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, ev); err != nil {
		log.Printf("WARN: audit %s %s: %v", ev.Key(), ev.EntityID, err)
	}
}
