package observability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	"github.com/sideseat/sideseat-core/pkg/ulid"
)

// PricingService implements observability.PricingLookup on top of the
// project-scoped-with-global-fallback model pricing table.
type PricingService struct {
	modelRepo *ModelRepository
}

// NewPricingService creates a pricing lookup backed by the Postgres model
// pricing table.
func NewPricingService(modelRepo *ModelRepository) *PricingService {
	return &PricingService{modelRepo: modelRepo}
}

var _ observability.PricingLookup = (*PricingService)(nil)

// GetPricingSnapshot resolves the rate table in effect for modelName at
// atTime, preferring a project-specific entry over the global one.
func (s *PricingService) GetPricingSnapshot(ctx context.Context, projectID *ulid.ULID, modelName string, atTime time.Time) (*observability.PricingSnapshot, error) {
	projectIDStr := ""
	if projectID != nil {
		projectIDStr = projectID.String()
	}

	model, err := s.modelRepo.FindByModelName(ctx, modelName, projectIDStr)
	if err != nil {
		return nil, err
	}

	pricing := make(map[string]decimal.Decimal)

	var inputPrice, outputPrice decimal.Decimal
	if model.InputPrice != nil {
		inputPrice = decimal.NewFromFloat(*model.InputPrice)
		pricing["input"] = inputPrice
	}
	if model.OutputPrice != nil {
		outputPrice = decimal.NewFromFloat(*model.OutputPrice)
		pricing["output"] = outputPrice
	}
	if model.TotalPrice != nil {
		pricing["total"] = decimal.NewFromFloat(*model.TotalPrice)
	}
	if model.InputPrice != nil && model.CacheReadMultiplier > 0 {
		pricing["cache_read_input_tokens"] = inputPrice.Mul(decimal.NewFromFloat(model.CacheReadMultiplier))
	}
	if model.InputPrice != nil && model.CacheWriteMultiplier > 0 {
		pricing["cache_creation_input_tokens"] = inputPrice.Mul(decimal.NewFromFloat(model.CacheWriteMultiplier))
	}

	return &observability.PricingSnapshot{
		ModelName:    model.ModelName,
		Pricing:      pricing,
		SnapshotTime: atTime,
	}, nil
}

// CalculateCost prices raw usage counts against a snapshot's per-million
// rates, skipping any usage type the snapshot has no rate for.
func (s *PricingService) CalculateCost(usage map[string]uint64, pricing *observability.PricingSnapshot) map[string]decimal.Decimal {
	cost := make(map[string]decimal.Decimal)
	if pricing == nil {
		return cost
	}

	perMillion := decimal.NewFromInt(1_000_000)
	var total decimal.Decimal
	for usageType, tokens := range usage {
		if usageType == "total" {
			continue
		}
		rate, ok := pricing.Pricing[usageType]
		if !ok {
			continue
		}
		amount := decimal.NewFromInt(int64(tokens)).Mul(rate).Div(perMillion)
		cost[usageType] = amount
		total = total.Add(amount)
	}

	if totalRate, ok := pricing.Pricing["total"]; ok && totalTokens(usage) > 0 {
		total = decimal.NewFromInt(int64(totalTokens(usage))).Mul(totalRate).Div(perMillion)
	}

	cost["total"] = total
	return cost
}

func totalTokens(usage map[string]uint64) uint64 {
	if v, ok := usage["total"]; ok {
		return v
	}
	return 0
}
