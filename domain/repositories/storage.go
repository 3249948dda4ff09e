package repositories

import (
	"context"

	"github.com/hanzigo/backend/domain/entities"
)

// SessionRepository defines data access methods for tutor sessions.
type SessionRepository interface {
	// Upsert writes the session wholesale, creating it on first turn.
	Upsert(ctx context.Context, session *entities.TutorSession) error
	GetByID(ctx context.Context, id string) (*entities.TutorSession, error)
	// List returns all sessions, most recent first.
	List(ctx context.Context) ([]*entities.TutorSession, error)
	Delete(ctx context.Context, id string) error
}
