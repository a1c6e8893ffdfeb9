// Package store persists reconciled sailings and wind observations.
// Writes go through a merge contract shared by every implementation: a
// record updates only when the observed status differs, canceled is
// terminal, and a recorded status reason is never cleared by a blank one.
package store

import (
	"context"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// UpsertResult reports what one sailing write did.
type UpsertResult struct {
	Created       bool
	StatusChanged bool
	OldStatus     domain.OperatorStatus
	NewStatus     domain.OperatorStatus
}

// SailingStore is the persistence boundary for the reconciliation
// pipeline and the board handlers.
type SailingStore interface {
	Migrate(ctx context.Context) error
	UpsertSailing(ctx context.Context, s domain.Sailing) (UpsertResult, error)
	ApplyReason(ctx context.Context, serviceDate, key, reason string) (bool, error)
	ListSailings(ctx context.Context, serviceDate string) ([]domain.Sailing, error)
	CountCanceled(ctx context.Context, serviceDate string) (int, error)
	SaveWindObservation(ctx context.Context, o domain.WindObservation) error
	RecentWindObservations(ctx context.Context, terminal string, since time.Time) ([]domain.WindObservation, error)
	Close() error
}

// mergeSailings folds an incoming reconciled sailing onto the persisted
// one. FirstSeenAt and Origin survive from the persisted record unless the
// incoming write is the one that cancels it.
func mergeSailings(existing, incoming domain.Sailing) (domain.Sailing, bool) {
	merged := existing
	merged.LastSeenAt = incoming.LastSeenAt

	if incoming.ArrivalTime != "" {
		merged.ArrivalTime = incoming.ArrivalTime
	}
	if incoming.StatusReason != "" {
		merged.StatusReason = incoming.StatusReason
	}

	if incoming.Status == existing.Status || !domain.CanTransition(existing.Status, incoming.Status) {
		return merged, false
	}

	merged.Status = incoming.Status
	if incoming.Status == domain.StatusCanceled && incoming.Origin == domain.OriginOperatorRemoved {
		merged.Origin = domain.OriginOperatorRemoved
		merged.RemovedDetectedAt = incoming.RemovedDetectedAt
	}
	return merged, true
}
