package oracle

import (
	"context"
	"fmt"

	"github.com/kirillm/trading-copilot/pkg/utils"
)

// ChatAssistant разговорный агент для свободных сообщений пользователя
type ChatAssistant struct {
	chat   ChatClient
	logger *utils.Logger
}

// NewChatAssistant создает нового разговорного агента
func NewChatAssistant(chat ChatClient, logger *utils.Logger) *ChatAssistant {
	return &ChatAssistant{
		chat:   chat,
		logger: logger.WithPrefix("chat"),
	}
}

// Reply отвечает на свободное сообщение пользователя с учетом контекста бота
func (ca *ChatAssistant) Reply(ctx context.Context, userMessage, contextInfo string) (string, error) {
	messages := []Message{
		{Role: "system", Content: GetChatSystemPrompt(contextInfo)},
		{Role: "user", Content: userMessage},
	}

	response, err := ca.chat.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat assistant failed: %w", err)
	}

	return response, nil
}
