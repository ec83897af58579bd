package model

import "time"

// AuditStatus indicates how a gateway invocation ended.
type AuditStatus string

// Audit statuses.
const (
	AuditSuccess  AuditStatus = "success"
	AuditFallback AuditStatus = "fallback"
	AuditCached   AuditStatus = "cached"
	AuditRejected AuditStatus = "rejected"
)

// AuditRecord is the append-only log entry written for every gateway invocation.
type AuditRecord struct {
	CreatedAt     time.Time
	ID            string
	Module        Module
	UserID        string
	RawText       string
	ParsedJSON    string
	Model         string
	Status        AuditStatus
	FailureReason string
	Confidence    float64
	DurationMS    int64
}
