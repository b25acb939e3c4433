package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultMessagesURL = "https://api.anthropic.com/v1/messages"

// anthropicGenerator implements Generator against the Anthropic messages API.
type anthropicGenerator struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func newAnthropicGenerator(cfg Config) (*anthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 50
	}

	return &anthropicGenerator{
		apiKey:      cfg.APIKey,
		baseURL:     defaultMessagesURL,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

const systemPrompt = "You are a CFO providing specific, actionable business insights. " +
	"Focus on trends and concrete next steps. Keep responses under 20 words."

// Summarize sends the metrics to the API and returns the generated insight.
func (g *anthropicGenerator) Summarize(ctx context.Context, m Metrics) (string, error) {
	requestBody := map[string]any{
		"model":       g.model,
		"max_tokens":  g.maxTokens,
		"temperature": g.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(m)},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(apiResp.Content) == 0 || strings.TrimSpace(apiResp.Content[0].Text) == "" {
		return "", fmt.Errorf("empty response from anthropic API")
	}

	return strings.TrimSpace(apiResp.Content[0].Text), nil
}

// buildPrompt renders the CFO prompt. Category lines are sorted so the prompt
// is deterministic for a given metrics snapshot.
func buildPrompt(m Metrics) string {
	categories := make([]string, 0, len(m.ExpenseCategories))
	for name := range m.ExpenseCategories {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var expenseInfo strings.Builder
	for _, name := range categories {
		fmt.Fprintf(&expenseInfo, "\n- %s: $%.0f", name, m.ExpenseCategories[name])
	}

	return strings.TrimSpace(fmt.Sprintf(`
Analyze this business P&L and provide ONE actionable insight in 15-20 words:

FINANCIALS:
- Revenue: $%.0f (%+.1f%% MoM, %+.1f%% YoY)
- Expenses: $%.0f (%+.1f%% MoM, %+.1f%% YoY)
- Expenses detailed info with categories: %s
- Net Profit: $%.0f (%+.1f%% MoM, %+.1f%% YoY)

FOCUS ON:
1. Most concerning trend (revenue decline, expense growth, margin pressure)
2. Specific category driving changes
3. Clear action item

GOOD EXAMPLES (use similar format):
- "Revenue down 15%% while Marketing up 25%% - optimize ad spend efficiency"
- "Payroll costs rising 20%% faster than revenue - review headcount strategy"
- "Strong 12%% revenue growth but COGS increasing - negotiate supplier terms"

Respond with format: "[Main trend] - [specific action]"`,
		m.TotalRevenue, m.RevenueMoM, m.RevenueYoY,
		m.TotalExpenses, m.ExpensesMoM, m.ExpensesYoY,
		expenseInfo.String(),
		m.NetProfit, m.ProfitMoM, m.ProfitYoY,
	))
}
