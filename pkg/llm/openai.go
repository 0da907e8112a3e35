package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultModel = openai.GPT4oMini

// OpenAIGenerator calls the chat-completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(req),
	}}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choice list")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) RewriteForQuality(ctx context.Context, draft string, problems []string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Rewrite the reply so it avoids these problems: " +
					strings.Join(problems, ", ") + ". Keep the meaning and tone. Reply with the rewritten text only.",
			},
			{Role: openai.ChatMessageRoleUser, Content: draft},
		},
	})
	if err != nil {
		return "", fmt.Errorf("rewrite completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("rewrite completion: empty choice list")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are the user's AI friend. Stay in character.\n")
	fmt.Fprintf(&b, "Speech style: %s. Humor: %s. Energy: %s. Message length: %s. Emoji: %s. Directness: %s.\n",
		req.Style.SpeechStyle, req.Style.HumorMode, req.Style.FriendEnergy,
		req.Style.MessageLength, req.Style.EmojiFrequency, req.Style.Directness)
	if req.RelationshipTag != "" {
		fmt.Fprintf(&b, "Relationship stage: %s.\n", req.RelationshipTag)
	}
	switch req.Pipeline {
	case "emotional_support":
		b.WriteString("The user needs emotional support. Listen first, validate, do not lecture.\n")
	case "info_qa":
		b.WriteString("Answer the factual question clearly and briefly.\n")
	case "onboarding_chat":
		b.WriteString("This is a first conversation. Be welcoming and ask light questions.\n")
	case "refusal":
		b.WriteString("Politely decline the request and offer a different direction.\n")
	}
	if req.CrisisFlow {
		b.WriteString("The user may be in crisis. Respond with care and mention that professional help lines exist.\n")
	}
	if len(req.MemorySnippets) > 0 {
		b.WriteString("Things you remember about the user (use at most naturally): ")
		b.WriteString(strings.Join(req.MemorySnippets, "; "))
		b.WriteString("\n")
	}
	return b.String()
}
