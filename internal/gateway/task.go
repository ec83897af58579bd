package gateway

import (
	"context"

	"github.com/Veraticus/spice-gateway/internal/cache"
	"github.com/Veraticus/spice-gateway/internal/fallback"
	"github.com/Veraticus/spice-gateway/internal/llm"
	"github.com/Veraticus/spice-gateway/internal/model"
)

type taskOutcome struct {
	err  error
	task model.ParsedTask
}

// ParseTaskText extracts a single task from rawText.
func (g *Gateway) ParseTaskText(ctx context.Context, rawText string) (model.ParsedTask, error) {
	start := g.clock.Now()

	text, err := validateText(rawText, g.cfg.MaxTextLength)
	if err != nil {
		g.recordAudit(ctx, auditEntry{
			module:  model.ModuleTask,
			rawText: rawText,
			status:  model.AuditRejected,
			err:     err,
			start:   start,
		})
		return model.ParsedTask{}, err
	}

	ctx = cache.WithMemo(ctx)
	key := cache.Key(model.ModuleTask, text)

	var cached model.ParsedTask
	found, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.logger.Warn("cache lookup failed", "module", model.ModuleTask, "error", err)
	}
	if found {
		g.logger.Debug("cache hit", "module", model.ModuleTask)
		g.recordAudit(ctx, auditEntry{
			module:     model.ModuleTask,
			rawText:    text,
			parsed:     cached,
			modelName:  cached.Model,
			status:     model.AuditCached,
			confidence: cached.Confidence,
			start:      start,
		})
		return cached, nil
	}

	v, _, _ := g.flights.Do(key, func() (any, error) {
		return g.resolveTask(ctx, key, text), nil
	})
	outcome := v.(taskOutcome)

	g.recordAudit(ctx, auditEntry{
		module:     model.ModuleTask,
		rawText:    text,
		parsed:     outcome.task,
		modelName:  outcome.task.Model,
		status:     outcomeStatus(outcome.err),
		err:        outcome.err,
		confidence: outcome.task.Confidence,
		start:      start,
	})

	g.logger.Info("parsed task text",
		"source", outcome.task.Source,
		"requires_confirmation", outcome.task.RequiresConfirmation)

	return outcome.task, nil
}

func (g *Gateway) resolveTask(ctx context.Context, key, text string) taskOutcome {
	today := g.clock.Now()

	var task model.ParsedTask
	resp, err := g.generate(ctx, llm.GenerateRequest{Prompt: g.prompts.TaskPrompt(text, today)})
	if err == nil {
		task, err = llm.ParseTaskResponse(resp.Text)
		if err == nil {
			task.Source = model.SourceAI
			task.Model = g.client.Model()
		}
	}

	if err != nil {
		g.logFallback(model.ModuleTask, err)
		task = fallback.Task(text, today)
		task.ErrorNote = fallbackNote(err)
	}

	task.ApplyConfirmationGate()
	g.storeResult(ctx, key, task, task.FallbackUsed)

	return taskOutcome{task: task, err: err}
}
