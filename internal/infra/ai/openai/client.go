package openai

import (
    "context"
    "encoding/base64"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/sashabaranov/go-openai"

    "github.com/bryanwahyu/brainscan/internal/domain/ai"
    domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
    "github.com/bryanwahyu/brainscan/internal/infra/ai/prompt"
)

const (
    maxTokens    = 1024
    defaultModel = "gpt-4o"
)

// Client is a vision-capable chat completion client. BaseURL may point at any
// OpenAI-compatible endpoint, including Gemini's.
type Client struct {
    *openai.Client
    Model string
    Now   func() time.Time
}

func NewClient(apiKey, model, baseURL string) *Client {
    cfg := openai.DefaultConfig(apiKey)
    if baseURL != "" {
        cfg.BaseURL = strings.TrimRight(baseURL, "/")
    }
    return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Analyze sends the image inline as a data URI and parses the JSON diagnosis.
func (c *Client) Analyze(ctx context.Context, image []byte, contentType string) (domain.Diagnosis, error) {
    const op = "diagnosis.analyze"

    if len(image) == 0 {
        return domain.Diagnosis{}, domain.Errorf(domain.KindAnalysis, op, "empty image")
    }
    if contentType == "" {
        contentType = http.DetectContentType(image)
    }

    model := c.Model
    if model == "" {
        model = defaultModel
    }
    req := openai.ChatCompletionRequest{
        Model: model,
        ResponseFormat: &openai.ChatCompletionResponseFormat{
            Type: openai.ChatCompletionResponseFormatTypeJSONObject,
        },
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
            {
                Role: openai.ChatMessageRoleUser,
                MultiContent: []openai.ChatMessagePart{
                    {Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt()},
                    {
                        Type: openai.ChatMessagePartTypeImageURL,
                        ImageURL: &openai.ChatMessageImageURL{
                            URL:    dataURI(image, contentType),
                            Detail: openai.ImageURLDetailAuto,
                        },
                    },
                },
            },
        },
    }
    // For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
    if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
        req.MaxCompletionTokens = maxTokens
    } else {
        req.MaxTokens = maxTokens
    }

    resp, err := c.CreateChatCompletion(ctx, req)
    if err != nil {
        if isQuota(err) {
            err = fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
        }
        return domain.Diagnosis{}, domain.E(domain.KindAnalysis, op, fmt.Errorf("failed to create chat completion: %w", err))
    }
    if len(resp.Choices) == 0 {
        return domain.Diagnosis{}, domain.E(domain.KindAnalysis, op, fmt.Errorf("%w: no choices", ai.ErrMalformedResponse))
    }

    diag, err := prompt.ParseDiagnosis(resp.Choices[0].Message.Content, c.now())
    if err != nil {
        return domain.Diagnosis{}, domain.E(domain.KindAnalysis, op, err)
    }
    return diag, nil
}

func (c *Client) now() time.Time {
    if c.Now != nil {
        return c.Now()
    }
    return time.Now().UTC()
}

func dataURI(image []byte, contentType string) string {
    return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func isQuota(err error) bool {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) {
        return apiErr.HTTPStatusCode == http.StatusTooManyRequests
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) {
        return reqErr.HTTPStatusCode == http.StatusTooManyRequests
    }
    return false
}
