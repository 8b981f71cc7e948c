package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"go.uber.org/zap"
)

const replyPrompt = `You are a dialog assistant. Write a short reply to the message below.

Message: %s
%s
Reply in the language "%s". Respond with ONLY the reply text. No explanation, no formatting.`

// LLMReplyFormatter asks a completion model for the reply text and writes it
// into the graph as the text translation of the reply message.
type LLMReplyFormatter struct {
	store         domain.GraphStore
	keynodes      *keynodes.Keynodes
	llm           domain.LLMClient
	messages      *MessageSearcher
	constructions *ConstructionsGenerator
	logger        *zap.Logger
}

func NewLLMReplyFormatter(s domain.GraphStore, k *keynodes.Keynodes, llm domain.LLMClient, messages *MessageSearcher, constructions *ConstructionsGenerator, logger *zap.Logger) *LLMReplyFormatter {
	return &LLMReplyFormatter{
		store:         s,
		keynodes:      k,
		llm:           llm,
		messages:      messages,
		constructions: constructions,
		logger:        logger,
	}
}

// FormatReply reports false when no text could be produced or stored. The
// params bundle carries the message under rrel_1, its author under rrel_2 and
// its theme under rrel_3. A reply that already has a text is left as is.
func (f *LLMReplyFormatter) FormatReply(ctx context.Context, reply, rule, lang, params domain.Addr) bool {
	if f.messages.TextLink(ctx, reply).IsValid() {
		f.logger.Debug("reply already has a text", zap.String("reply", reply.String()))
		return true
	}

	prompt, err := f.prompt(ctx, rule, lang, params)
	if err != nil {
		f.logger.Warn("failed to build reply prompt", zap.Error(err))
		return false
	}

	text, err := f.llm.Complete(ctx, []domain.Message{{Role: "user", Content: prompt}})
	if err != nil {
		f.logger.Warn("reply completion failed", zap.Error(err))
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		f.logger.Warn("reply completion is empty")
		return false
	}

	if _, err := f.constructions.GenerateTextTranslation(ctx, reply, lang, text); err != nil {
		f.logger.Warn("failed to store reply text", zap.Error(err))
		return false
	}
	return true
}

func (f *LLMReplyFormatter) prompt(ctx context.Context, rule, lang, params domain.Addr) (string, error) {
	k := f.keynodes
	message, err := graph.RoleTarget(ctx, f.store, params, k.Rrel1)
	if err != nil {
		return "", fmt.Errorf("read parameters: %w", err)
	}
	if !message.IsValid() {
		return "", fmt.Errorf("parameters bundle has no message")
	}

	var sb strings.Builder
	if author, _ := graph.RoleTarget(ctx, f.store, params, k.Rrel2); author.IsValid() {
		fmt.Fprintf(&sb, "Author: %s\n", f.messages.Text(ctx, author))
	}
	if theme, _ := graph.RoleTarget(ctx, f.store, params, k.Rrel3); theme.IsValid() {
		fmt.Fprintf(&sb, "Theme: %s\n", f.messages.Text(ctx, theme))
	}
	if rule.IsValid() {
		fmt.Fprintf(&sb, "Rule: %s\n", f.messages.Text(ctx, rule))
	}

	langName, _ := f.store.Identifier(ctx, lang)
	if langName == "" {
		langName = "lang_en"
	}
	return fmt.Sprintf(replyPrompt, f.messages.Text(ctx, message), sb.String(), langName), nil
}

var _ domain.ReplyFormatter = (*LLMReplyFormatter)(nil)
