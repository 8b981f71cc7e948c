package domain

import (
	"context"
	"time"
)

// AgentInitiator starts a new action of the given class for a sub-agent.
type AgentInitiator interface {
	InitAgent(ctx context.Context, class Addr, args ...Addr) (Addr, error)
}

// ActionSignaler marks an action finished. Results are attached on success.
type ActionSignaler interface {
	FinishAction(ctx context.Context, action Addr, success bool, results ...Addr) error
}

// ActionWaiter blocks until an action finishes or the timeout elapses.
type ActionWaiter interface {
	Wait(ctx context.Context, action Addr, timeout time.Duration) bool
}

// ReplyFormatter fills in the content of a generated reply message.
type ReplyFormatter interface {
	FormatReply(ctx context.Context, reply, rule, lang, params Addr) bool
}

type LanguageResolver interface {
	Language(ctx context.Context, message Addr) Addr
}

type MessageResolver interface {
	Author(ctx context.Context, message Addr) Addr
	Theme(ctx context.Context, message Addr) Addr
}

// Message is one turn of a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMClient interface {
	Complete(ctx context.Context, conversation []Message) (string, error)
}
