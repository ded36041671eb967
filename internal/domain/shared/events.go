package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	EventUserRegistered   EventType = "user.registered"
	EventScoreRecorded    EventType = "score.recorded"
	EventChallengeClaimed EventType = "challenge.claimed"
	EventUserRoleChanged  EventType = "user.role_changed"
	EventUserDeleted      EventType = "user.deleted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted after a new account is created.
type UserRegisteredEvent struct {
	BaseEvent
	Email   string `json:"email"`
	Faculty string `json:"faculty"`
}

// NewUserRegisteredEvent creates a UserRegisteredEvent.
func NewUserRegisteredEvent(userID, email, faculty string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent: NewBaseEvent(EventUserRegistered, userID),
		Email:     email,
		Faculty:   faculty,
	}
}

// ScoreRecordedEvent is emitted after a score record commits.
type ScoreRecordedEvent struct {
	BaseEvent
	RecordID    string    `json:"record_id"`
	GameType    string    `json:"game_type"`
	Points      int       `json:"points"`
	TotalPoints int       `json:"total_points"`
	Streak      int       `json:"streak"`
	PlayedAt    time.Time `json:"played_at"`
}

// NewScoreRecordedEvent creates a ScoreRecordedEvent.
func NewScoreRecordedEvent(userID, recordID, gameType string, points, totalPoints, streak int, playedAt time.Time) ScoreRecordedEvent {
	return ScoreRecordedEvent{
		BaseEvent:   NewBaseEvent(EventScoreRecorded, userID),
		RecordID:    recordID,
		GameType:    gameType,
		Points:      points,
		TotalPoints: totalPoints,
		Streak:      streak,
		PlayedAt:    playedAt,
	}
}

// ChallengeClaimedEvent is emitted after a challenge reward is granted.
type ChallengeClaimedEvent struct {
	BaseEvent
	Challenge string `json:"challenge"`
	Points    int    `json:"points"`
}

// NewChallengeClaimedEvent creates a ChallengeClaimedEvent.
func NewChallengeClaimedEvent(userID, challenge string, points int) ChallengeClaimedEvent {
	return ChallengeClaimedEvent{
		BaseEvent: NewBaseEvent(EventChallengeClaimed, userID),
		Challenge: challenge,
		Points:    points,
	}
}

// UserRoleChangedEvent is emitted when an admin changes a user's role.
type UserRoleChangedEvent struct {
	BaseEvent
	Role string `json:"role"`
}

// NewUserRoleChangedEvent creates a UserRoleChangedEvent.
func NewUserRoleChangedEvent(userID, role string) UserRoleChangedEvent {
	return UserRoleChangedEvent{
		BaseEvent: NewBaseEvent(EventUserRoleChanged, userID),
		Role:      role,
	}
}

// UserDeletedEvent is emitted when an admin deletes a user.
type UserDeletedEvent struct {
	BaseEvent
	DeletedBy string `json:"deleted_by"`
}

// NewUserDeletedEvent creates a UserDeletedEvent.
func NewUserDeletedEvent(userID, deletedBy string) UserDeletedEvent {
	return UserDeletedEvent{
		BaseEvent: NewBaseEvent(EventUserDeleted, userID),
		DeletedBy: deletedBy,
	}
}

// EventPublisher defines the interface for publishing events.
// Implementations must not block the caller on a slow broker for long.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(ctx context.Context, event Event) error
}
