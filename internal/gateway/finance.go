package gateway

import (
	"context"
	"slices"

	"github.com/Veraticus/spice-gateway/internal/cache"
	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/fallback"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/Veraticus/spice-gateway/internal/model"
)

type financeOutcome struct {
	err    error
	result model.ParseResult
}

// ParseFinanceText extracts transactions from rawText. Only validation errors
// are returned; every remote failure degrades to the fallback extractor.
func (g *Gateway) ParseFinanceText(ctx context.Context, rawText, userID string) (model.ParseResult, error) {
	start := g.clock.Now()

	text, err := validateText(rawText, g.cfg.MaxTextLength)
	if err != nil {
		g.recordAudit(ctx, auditEntry{
			module:  model.ModuleFinance,
			userID:  userID,
			rawText: rawText,
			status:  model.AuditRejected,
			err:     err,
			start:   start,
		})
		return model.ParseResult{}, err
	}

	ctx = cache.WithMemo(ctx)
	key := cache.Key(model.ModuleFinance, text)

	var cached model.ParseResult
	found, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.logger.Warn("cache lookup failed", "module", model.ModuleFinance, "error", err)
	}
	if found {
		g.logger.Debug("cache hit", "module", model.ModuleFinance, "transactions", len(cached.Transactions))
		g.recordAudit(ctx, auditEntry{
			module:     model.ModuleFinance,
			userID:     userID,
			rawText:    text,
			parsed:     cached,
			modelName:  cached.Model,
			status:     model.AuditCached,
			confidence: cached.MinConfidence(),
			start:      start,
		})
		return cached, nil
	}

	v, _, _ := g.flights.Do(key, func() (any, error) {
		return g.resolveFinance(ctx, key, text), nil
	})
	outcome := v.(financeOutcome)
	result := outcome.result
	result.Transactions = slices.Clone(result.Transactions)

	g.recordAudit(ctx, auditEntry{
		module:     model.ModuleFinance,
		userID:     userID,
		rawText:    text,
		parsed:     result,
		modelName:  result.Model,
		status:     outcomeStatus(outcome.err),
		err:        outcome.err,
		confidence: result.MinConfidence(),
		start:      start,
	})

	g.logger.Info("parsed finance text",
		"transactions", len(result.Transactions),
		"source", result.Source,
		"requires_confirmation", result.RequiresConfirmation)

	return result, nil
}

func (g *Gateway) resolveFinance(ctx context.Context, key, text string) financeOutcome {
	today := g.clock.Now()

	var result model.ParseResult
	resp, err := g.generate(ctx, llm.GenerateRequest{Prompt: g.prompts.FinancePrompt(text, today)})
	if err == nil {
		var txns []model.ParsedTransaction
		txns, err = llm.ParseFinanceResponse(resp.Text, today)
		if err == nil && len(txns) == 0 {
			err = common.ErrEmptyResult
		}
		if err == nil {
			result = model.ParseResult{
				Transactions: txns,
				Source:       model.SourceAI,
				Model:        g.client.Model(),
			}
		}
	}

	if err != nil {
		g.logFallback(model.ModuleFinance, err)
		result = fallback.Finance(text, today)
		result.ErrorNote = fallbackNote(err)
	}

	result.ApplyConfirmationGate()
	g.storeResult(ctx, key, result, result.FallbackUsed)

	return financeOutcome{result: result, err: err}
}
