package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

const (
	defaultMaxTokens = 1024
	defaultModel     = "claude-sonnet-4-5-20250929"
)

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
	client     *anthropic.Client
	logger     zerolog.Logger
}

// AnthropicOption configures the provider.
type AnthropicOption func(*AnthropicProvider)

func WithModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) { p.model = model }
}

func WithMaxTokens(n int) AnthropicOption {
	return func(p *AnthropicProvider) { p.maxTokens = n }
}

func WithHTTPClient(c *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) { p.httpClient = c }
}

// WithBaseURL points the provider at another endpoint (tests, proxies).
func WithBaseURL(u string) AnthropicOption {
	return func(p *AnthropicProvider) { p.baseURL = u }
}

func WithLogger(l zerolog.Logger) AnthropicOption {
	return func(p *AnthropicProvider) { p.logger = l }
}

// NewAnthropicProvider constructs a new Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With().Str("component", "llm.anthropic").Logger()

	clientOpts := []anthropic.ClientOption{anthropic.WithHTTPClient(p.httpClient)}
	if p.baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(p.baseURL))
	}
	p.client = anthropic.NewClient(apiKey, clientOpts...)
	return p
}

func buildMessages(msgs []Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantTextMessage(m.Content))
			continue
		}
		out = append(out, anthropic.NewUserTextMessage(m.Content))
	}
	return out
}

func (p *AnthropicProvider) buildRequest(req CompletionRequest) anthropic.MessagesRequest {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTok := p.maxTokens
	if req.MaxTokens > 0 {
		maxTok = req.MaxTokens
	}
	return anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		MaxTokens: maxTok,
		System:    req.SystemPrompt,
		Messages:  buildMessages(req.Messages),
	}
}

// Complete sends a blocking completion request.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, perrors.NewGatewayError(perrors.GatewayMalformed, "no messages to send", nil)
	}

	ar := p.buildRequest(req)
	resp, err := p.client.CreateMessages(ctx, ar)
	if err != nil {
		return nil, classifyError(err)
	}

	out := &CompletionResponse{
		StopReason:   string(resp.StopReason),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			b.WriteString(*block.Text)
		}
	}
	out.Text = b.String()
	if strings.TrimSpace(out.Text) == "" {
		return nil, perrors.NewGatewayError(perrors.GatewayMalformed, "response has no text content", nil)
	}

	p.logger.Debug().
		Str("model", string(ar.Model)).
		Str("stop_reason", out.StopReason).
		Int("in_tokens", out.InputTokens).
		Int("out_tokens", out.OutputTokens).
		Msg("anthropic complete")
	return out, nil
}

func classifyError(err error) *perrors.GatewayError {
	if errors.Is(err, context.DeadlineExceeded) {
		return perrors.NewGatewayError(perrors.GatewayTimeout, "", err)
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		kind := perrors.GatewayAPI
		if apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr() {
			kind = perrors.GatewayAuth
		}
		return &perrors.GatewayError{Kind: kind, Message: apiErr.Message, Err: err}
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		kind := perrors.GatewayAPI
		if reqErr.StatusCode == http.StatusUnauthorized || reqErr.StatusCode == http.StatusForbidden {
			kind = perrors.GatewayAuth
		}
		return &perrors.GatewayError{Kind: kind, StatusCode: reqErr.StatusCode, Err: err}
	}

	return perrors.NewGatewayError(perrors.GatewayNetwork, "", err)
}
