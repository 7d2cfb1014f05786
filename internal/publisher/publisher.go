// Package publisher announces reconciled matches to downstream consumers.
package publisher

import (
	"context"

	"github.com/sells-group/odds-cli/internal/model"
)

// Publisher delivers the records persisted by one reconciliation run.
type Publisher interface {
	Publish(ctx context.Context, runID, competition string, records []model.MatchRecord) error
}

// Nop discards everything. It is used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, string, []model.MatchRecord) error { return nil }
