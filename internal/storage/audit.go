package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/google/uuid"
)

// DefaultAuditLimit is how many records ListAudit returns when no limit is given.
const DefaultAuditLimit = 50

// RecordAudit appends one audit record. Missing ids and timestamps are filled in.
func (s *SQLiteStorage) RecordAudit(ctx context.Context, rec model.AuditRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditRecord(&rec); err != nil {
		return err
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			id, module, user_id, raw_text, parsed_json, model,
			status, failure_reason, confidence, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Module), rec.UserID, rec.RawText, rec.ParsedJSON, rec.Model,
		string(rec.Status), rec.FailureReason, rec.Confidence, rec.DurationMS, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit records, newest first.
func (s *SQLiteStorage) ListAudit(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module, COALESCE(user_id, ''), raw_text, COALESCE(parsed_json, ''),
			COALESCE(model, ''), status, COALESCE(failure_reason, ''), confidence,
			duration_ms, created_at
		FROM audit_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var module, status string
		if err := rows.Scan(&rec.ID, &module, &rec.UserID, &rec.RawText, &rec.ParsedJSON,
			&rec.Model, &status, &rec.FailureReason, &rec.Confidence,
			&rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Module = model.Module(module)
		rec.Status = model.AuditStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return records, nil
}

// AuditCounts returns how many records exist per status.
func (s *SQLiteStorage) AuditCounts(ctx context.Context) (map[model.AuditStatus]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM audit_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.AuditStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan audit count: %w", err)
		}
		counts[model.AuditStatus(status)] = n
	}
	return counts, rows.Err()
}
