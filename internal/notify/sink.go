// Package notify formats watcher diffs into human-readable messages and
// delivers them to an external conversation store, generalizing the
// teacher's ipc.SuccessResponse/ErrorResponse envelope style (a small
// struct, marshaled once) into a message body instead of a command
// response.
package notify

import "context"

// Conversation identifies a single conversation in the external store.
type Conversation struct {
	ID        string
	UpdatedAt int64
}

// ListOptions mirrors the conversation store's list({orderBy, limit}) call.
type ListOptions struct {
	OrderBy string
	Limit   int
}

// Sink is the external conversation store collaborator. browsercore only
// ever needs the most-recently-updated conversation and the ability to
// append a message to it; everything else about the store is out of scope.
type Sink interface {
	List(ctx context.Context, opts ListOptions) ([]Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, body string) error
}
