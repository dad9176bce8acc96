package types

import (
	"context"
	"time"
)

// Status is the lifecycle status of a persisted record.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// BaseModel carries the audit columns shared by all persisted entities.
type BaseModel struct {
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetDefaultBaseModel returns a BaseModel initialised for a new record.
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	return BaseModel{
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
