package postgres

import (
	"database/sql"
	"time"

	"github.com/dinematters/dinematters/internal/types"
)

func parseEventType(raw string) types.WebhookEventType {
	return types.ParseWebhookEventType(raw)
}

func parseStatus(raw string) types.Status {
	if raw == "" {
		return types.StatusActive
	}
	return types.Status(raw)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
