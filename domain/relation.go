package domain

import (
	"context"
	"time"
)

// Kind names a directed many-to-many relation between an actor and a target.
type Kind string

const (
	// KindFollow relates a User to another User. Self-follows are never stored.
	KindFollow Kind = "follow"
	// KindFavorite relates a User to a Micropost.
	KindFavorite Kind = "favorite"
)

// Side selects which end of an edge a count or filter refers to.
type Side string

const (
	SideActor  Side = "actor"
	SideTarget Side = "target"
)

// Edge is a stored relationship between an actor and a target.
type Edge struct {
	Kind      Kind      `json:"kind"`
	ActorID   int       `json:"actor_id"`
	TargetID  int       `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EdgeFilter narrows a listing of edges. Nil ids match everything.
type EdgeFilter struct {
	ActorID  *int `json:"actor_id"`
	TargetID *int `json:"target_id"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RelationService toggles relationship membership. Add and Remove report
// whether they changed state; calling either one twice has the same end
// state as calling it once. A false result is not an error.
type RelationService interface {
	Add(ctx context.Context, kind Kind, actorID, targetID int) (bool, error)
	Remove(ctx context.Context, kind Kind, actorID, targetID int) (bool, error)
	Exists(ctx context.Context, kind Kind, actorID, targetID int) (bool, error)
	ExistsMany(ctx context.Context, kind Kind, actorID int, targetIDs []int) (map[int]bool, error)
	ListEdges(ctx context.Context, kind Kind, filter EdgeFilter) ([]Edge, error)
	Count(ctx context.Context, kind Kind, side Side, id int) (int64, error)
	RemoveAllForTarget(ctx context.Context, kind Kind, targetID int) (int64, error)
}

// CountCache stores relationship counts outside the database.
type CountCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, n int64) error
	CondIncr(ctx context.Context, key string) error
	CondDecr(ctx context.Context, key string) error
	Delete(ctx context.Context, keys ...string) error
}

// Actions carried by a RelationEvent.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// RelationEvent announces that an edge was created or removed.
type RelationEvent struct {
	Kind       Kind      `json:"kind"`
	Action     string    `json:"action"`
	ActorID    int       `json:"actor_id"`
	TargetID   int       `json:"target_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers RelationEvents to other services.
type EventPublisher interface {
	Publish(ctx context.Context, event RelationEvent) error
}
