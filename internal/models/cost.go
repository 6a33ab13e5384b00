package models

import "time"

// UsageRecord captures one oracle invocation's token spend.
type UsageRecord struct {
	ID           string    `db:"id" json:"id"`
	RequestID    string    `db:"request_id" json:"requestId"`
	Model        string    `db:"model" json:"model"`
	InputTokens  int       `db:"input_tokens" json:"inputTokens"`
	OutputTokens int       `db:"output_tokens" json:"outputTokens"`
	Cost         float64   `db:"cost" json:"cost"`
	Success      bool      `db:"success" json:"success"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// CostSummary aggregates usage over all requests.
type CostSummary struct {
	TotalRequests     int       `db:"total_requests" json:"totalRequests"`
	TotalInputTokens  int       `db:"total_input_tokens" json:"totalInputTokens"`
	TotalOutputTokens int       `db:"total_output_tokens" json:"totalOutputTokens"`
	TotalCost         float64   `db:"total_cost" json:"totalCost"`
	GeneratedAt       time.Time `json:"generatedAt"`
}
