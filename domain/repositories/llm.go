package repositories

import (
	"context"

	"github.com/hanzigo/backend/domain/entities"
)

// ChatModel abstracts the streaming tutor chat completion call.
type ChatModel interface {
	// StreamReply sends the conversation so far (ending with the newest user
	// message) and invokes onDelta for every raw text fragment the model
	// produces, in arrival order. Fragments may split protocol tags at any
	// byte; callers reassemble. A non-nil error from onDelta aborts the
	// stream.
	StreamReply(ctx context.Context, history []entities.ChatMessage, locale string, onDelta func(fragment string) error) error
}
