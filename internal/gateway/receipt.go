package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/Veraticus/spice-gateway/internal/cache"
	"github.com/Veraticus/spice-gateway/internal/fallback"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/Veraticus/spice-gateway/internal/model"
)

type receiptOutcome struct {
	err     error
	receipt model.ReceiptData
}

// ScanReceipt extracts receipt details from a base64 encoded image. A plain
// base64 payload or a data URL is accepted.
func (g *Gateway) ScanReceipt(ctx context.Context, imageBase64, mimeType string) (model.ReceiptData, error) {
	start := g.clock.Now()

	data, mimeType, decoded, err := validateImage(imageBase64, mimeType, g.cfg.MaxImageBytes)
	if err != nil {
		g.recordAudit(ctx, auditEntry{
			module:  model.ModuleReceipt,
			rawText: "receipt image",
			status:  model.AuditRejected,
			err:     err,
			start:   start,
		})
		return model.ReceiptData{}, err
	}

	sum := sha256.Sum256(decoded)
	description := fmt.Sprintf("%s image, %d bytes, sha256 %s", mimeType, len(decoded), hex.EncodeToString(sum[:8]))

	ctx = cache.WithMemo(ctx)
	key := cache.Key(model.ModuleReceipt, mimeType+":"+hex.EncodeToString(sum[:]))

	var cached model.ReceiptData
	found, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.logger.Warn("cache lookup failed", "module", model.ModuleReceipt, "error", err)
	}
	if found {
		g.logger.Debug("cache hit", "module", model.ModuleReceipt)
		g.recordAudit(ctx, auditEntry{
			module:     model.ModuleReceipt,
			rawText:    description,
			parsed:     cached,
			modelName:  cached.Model,
			status:     model.AuditCached,
			confidence: cached.Confidence,
			start:      start,
		})
		return cached, nil
	}

	v, _, _ := g.flights.Do(key, func() (any, error) {
		return g.resolveReceipt(ctx, key, data, mimeType), nil
	})
	outcome := v.(receiptOutcome)
	receipt := outcome.receipt
	receipt.Items = slices.Clone(receipt.Items)

	g.recordAudit(ctx, auditEntry{
		module:     model.ModuleReceipt,
		rawText:    description,
		parsed:     receipt,
		modelName:  receipt.Model,
		status:     outcomeStatus(outcome.err),
		err:        outcome.err,
		confidence: receipt.Confidence,
		start:      start,
	})

	g.logger.Info("scanned receipt",
		"vendor", receipt.Vendor,
		"source", receipt.Source,
		"requires_confirmation", receipt.RequiresConfirmation)

	return receipt, nil
}

func (g *Gateway) resolveReceipt(ctx context.Context, key, data, mimeType string) receiptOutcome {
	today := g.clock.Now()

	var receipt model.ReceiptData
	resp, err := g.generate(ctx, llm.GenerateRequest{
		Prompt: g.prompts.ReceiptPrompt(today),
		Image:  &llm.InlineImage{MIMEType: mimeType, Data: data},
	})
	if err == nil {
		receipt, err = llm.ParseReceiptResponse(resp.Text, today)
		if err == nil {
			receipt.Source = model.SourceAI
			receipt.Model = g.client.Model()
		}
	}

	if err != nil {
		g.logFallback(model.ModuleReceipt, err)
		receipt = fallback.Receipt(today, fallbackNote(err))
	}

	receipt.ApplyConfirmationGate()
	g.storeResult(ctx, key, receipt, receipt.FallbackUsed)

	return receiptOutcome{receipt: receipt, err: err}
}
