// Package analysis implements the message-analysis collaborator on top of
// OpenAI chat completions. It answers free-text messages, scores buying
// intent and suggests products; the flow orchestrator never calls it while
// a structured step is active.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/config"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

type ProductService interface {
	GetRecommendations(ctx context.Context, productID string, limit int) ([]entity.ProductInfo, error)
}

type Analyzer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxHistory  int
	products    ProductService
	log         *slog.Logger
}

func NewAnalyzer(conf *config.Config, logger *slog.Logger) *Analyzer {
	if conf.OpenAI.ApiKey == "" {
		return nil
	}
	return &Analyzer{
		client:      openai.NewClient(conf.OpenAI.ApiKey),
		model:       conf.OpenAI.Model,
		temperature: conf.OpenAI.Temperature,
		maxHistory:  conf.OpenAI.MaxHistory,
		log:         logger.With(sl.Module("analysis")),
	}
}

func (a *Analyzer) SetProductService(products ProductService) {
	a.products = products
}

const systemPrompt = `Tu es Rose, l'assistante d'achat de la boutique.
Réponds en français, avec chaleur et concision.
Réponds UNIQUEMENT en JSON avec les champs:
{"content": string, "choices": [string], "nextStep": string, "buyingIntent": number entre 0 et 1}`

type analyzerReply struct {
	Content      string   `json:"content"`
	Choices      []string `json:"choices"`
	NextStep     string   `json:"nextStep"`
	BuyingIntent float64  `json:"buyingIntent"`
}

// Analyze sends the user message plus product context and recent history to
// the model and decodes the structured reply.
func (a *Analyzer) Analyze(ctx context.Context, userMessage string, product entity.ProductInfo, history []flow.Message) (*flow.Analysis, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(
			"Produit en discussion: %s, prix %d FCFA, stock %d.", product.Name, product.Price, product.Stock)},
	}

	start := 0
	if a.maxHistory > 0 && len(history) > a.maxHistory {
		start = len(history) - a.maxHistory
	}
	for _, msg := range history[start:] {
		role := openai.ChatMessageRoleAssistant
		if msg.Type == flow.MessageUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	raw := resp.Choices[0].Message.Content
	var reply analyzerReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		a.log.With(
			slog.String("response", raw),
			sl.Err(err),
		).Error("unmarshalling analyzer reply")
		// degrade to a plain text answer rather than failing the turn
		reply = analyzerReply{Content: raw, NextStep: string(flow.StepGenericResponse)}
	}

	analysis := &flow.Analysis{
		Content:      reply.Content,
		Choices:      reply.Choices,
		NextStep:     flow.Step(reply.NextStep),
		BuyingIntent: reply.BuyingIntent,
	}

	if a.products != nil && reply.BuyingIntent > 0 {
		recs, err := a.products.GetRecommendations(ctx, product.ID, 2)
		if err != nil {
			a.log.With(slog.String("product_id", product.ID), sl.Err(err)).Error("loading recommendations")
		} else {
			analysis.Recommendations = recs
		}
	}
	return analysis, nil
}
