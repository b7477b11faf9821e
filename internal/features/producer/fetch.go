package producer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// remoteUpdateLogDoctype is the doctype name of the change log on the
// producer site.
const remoteUpdateLogDoctype = "Update Log"

// fetchUpdates pulls the change log entries newer than the producer's
// cursor, restricted to the subscribed doctypes, ordered oldest first.
//
// The remote log answers newest first; the batch is reversed locally because
// dependency resolution and last-write-wins both need source order.
func fetchUpdates(ctx context.Context, client SiteClient, p *EventProducer, doctypes []string, logger *zap.Logger) ([]UpdateLog, error) {
	var after time.Time
	if p.LastUpdate != "" {
		value, err := client.GetValue(ctx, remoteUpdateLogDoctype, p.LastUpdate, "creation")
		if err != nil {
			return nil, err
		}
		if value == "" {
			logger.Warn("cursor entry has no creation timestamp, refetching full history",
				zap.String("producer", p.URL),
				zap.String("cursor", p.LastUpdate))
		} else if parsed, parseErr := time.Parse(time.RFC3339Nano, value); parseErr != nil {
			// Apply is idempotent, so the unbounded refetch is safe; the
			// misbehaving producer still has to be visible.
			logger.Warn("cursor creation timestamp unparseable, refetching full history",
				zap.String("producer", p.URL),
				zap.String("cursor", p.LastUpdate),
				zap.String("value", value),
				zap.Error(parseErr))
		} else {
			after = parsed
		}
	}

	logs, err := client.GetUpdateLogs(ctx, UpdateLogFilter{
		Doctypes: doctypes,
		After:    after,
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}
