package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tablewise/concierge/agent/contract"
)

const (
	defaultCallTimeout   = 30 * time.Second
	defaultHistoryWindow = 12
)

// Gateway adapts an eino chat model to the contract.LLMGateway boundary.
// Every call is bounded by a timeout and replays at most historyWindow past
// turns, so per-turn cost stays constant as conversations grow.
type Gateway struct {
	model         einomodel.BaseChatModel
	timeout       time.Duration
	historyWindow int
}

type GatewayOption func(*Gateway)

func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithHistoryWindow(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.historyWindow = n
		}
	}
}

func NewGateway(model einomodel.BaseChatModel, opts ...GatewayOption) (*Gateway, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	g := &Gateway{
		model:         model,
		timeout:       defaultCallTimeout,
		historyWindow: defaultHistoryWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

func (g *Gateway) Generate(
	ctx context.Context,
	systemPrompt string,
	history []contractx.Turn,
	userMessage string,
) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return "", fmt.Errorf("%w: system prompt is empty", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(userMessage) == "" {
		return "", fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	window := history
	if len(window) > g.historyWindow {
		window = window[len(window)-g.historyWindow:]
	}

	messages := make([]*schema.Message, 0, len(window)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, turn := range window {
		if turn.Sender == contractx.SenderAgent {
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		} else {
			messages = append(messages, schema.UserMessage(turn.Text))
		}
	}
	messages = append(messages, schema.UserMessage(userMessage))

	out, err := g.model.Generate(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("model generate failed")
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", fmt.Errorf("%w: empty model reply", contractx.ErrSchemaViolation)
	}
	return out.Content, nil
}
