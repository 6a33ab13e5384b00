package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/pkg/export"
)

type usageRepository interface {
	Insert(ctx context.Context, rec models.UsageRecord) error
	ListByRequest(ctx context.Context, requestID string) ([]models.UsageRecord, error)
	ListAll(ctx context.Context, limit int) ([]models.UsageRecord, error)
	Summary(ctx context.Context) (*models.CostSummary, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// modelPricing is USD per million tokens.
type modelPricing struct {
	input  float64
	output float64
}

var pricingTable = map[string]modelPricing{
	"gemini-2.5-pro":        {input: 1.25, output: 10.00},
	"gemini-2.5-flash-lite": {input: 0.10, output: 0.40},
}

// Unknown models bill at the most expensive known rate so the ledger never
// understates spend.
var defaultPricing = modelPricing{input: 1.25, output: 10.00}

// CostService keeps the oracle cost ledger. It doubles as the adapter's
// usage recorder.
type CostService struct {
	repo   usageRepository
	csv    csvRenderer
	logger *zap.Logger
}

func NewCostService(repo usageRepository, csv csvRenderer, logger *zap.Logger) *CostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &CostService{repo: repo, csv: csv, logger: logger}
}

// ComputeCost converts token counts into dollars for the given model.
func ComputeCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := pricingTable[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		pricing = defaultPricing
	}
	return float64(inputTokens)/1e6*pricing.input + float64(outputTokens)/1e6*pricing.output
}

// RecordUsage appends one generation call to the ledger. Ledger failures are
// logged, never propagated: billing must not break scheduling.
func (s *CostService) RecordUsage(ctx context.Context, requestID, model string, inputTokens, outputTokens int, success bool) {
	rec := models.UsageRecord{
		RequestID:    requestID,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         ComputeCost(model, inputTokens, outputTokens),
		Success:      success,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		s.logger.Warn("usage record insert failed",
			zap.String("requestId", requestID),
			zap.Error(err))
	}
}

// Summary aggregates total spend.
func (s *CostService) Summary(ctx context.Context) (*models.CostSummary, error) {
	return s.repo.Summary(ctx)
}

// RequestUsage lists ledger entries for one request.
func (s *CostService) RequestUsage(ctx context.Context, requestID string) ([]models.UsageRecord, error) {
	return s.repo.ListByRequest(ctx, requestID)
}

// ExportCSV renders the ledger as CSV for the admin export endpoint.
func (s *CostService) ExportCSV(ctx context.Context, limit int) ([]byte, error) {
	records, err := s.repo.ListAll(ctx, limit)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Request ID", "Model", "Input Tokens", "Output Tokens", "Cost (USD)", "Success", "Created At"},
	}
	for _, rec := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":            rec.ID,
			"Request ID":    rec.RequestID,
			"Model":         rec.Model,
			"Input Tokens":  strconv.Itoa(rec.InputTokens),
			"Output Tokens": strconv.Itoa(rec.OutputTokens),
			"Cost (USD)":    fmt.Sprintf("%.6f", rec.Cost),
			"Success":       strconv.FormatBool(rec.Success),
			"Created At":    rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return s.csv.Render(dataset)
}
