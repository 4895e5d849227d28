package taskqueue

import (
	"context"

	"github.com/google/uuid"
)

// Kind classifies a task for logging and metrics.
type Kind string

const (
	KindOwnNickname    Kind = "own-nickname"
	KindMemberNickname Kind = "member-nickname"
	KindTitleRevert    Kind = "title-revert"
)

// Task is one unit of work bound to a target.
type Task struct {
	ID          uuid.UUID
	Target      string
	Kind        Kind
	Description string
	Run         func(ctx context.Context) error
}

// NewTask returns a Task with a fresh ID.
func NewTask(target string, kind Kind, description string, run func(ctx context.Context) error) Task {
	return Task{
		ID:          uuid.New(),
		Target:      target,
		Kind:        kind,
		Description: description,
		Run:         run,
	}
}
