package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/domain/auditlog"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// AuditFeedOptions groups dependencies for AuditFeed.
type AuditFeedOptions struct {
	Backend ports.Backend
	Logger  *slog.Logger
}

// AuditFeed serves the shared audit log scoped to the viewer's department.
type AuditFeed struct {
	backend ports.Backend
	logger  *slog.Logger
}

// NewAuditFeed constructs an AuditFeed.
func NewAuditFeed(opts AuditFeedOptions) *AuditFeed {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditFeed{backend: opts.Backend, logger: logger.With("component", "audit_feed")}
}

// AuditResult is the visible part of the feed. Result holds the query output
// when a query was given.
type AuditResult struct {
	Role    domainauth.RoleTag     `json:"role"`
	Total   int                    `json:"total"`
	Visible int                    `json:"visible"`
	Records []auditlog.EventRecord `json:"records"`
	Result  any                    `json:"result,omitempty"`
}

// ValidateQuery reports whether expr is a valid JMESPath expression.
func ValidateQuery(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return apperrors.ValidationField("q", "Invalid search expression.")
	}
	return nil
}

// Fetch loads the feed with the session token and keeps the records the
// session's role may see. The query, if any, only ever sees visible records.
func (a *AuditFeed) Fetch(ctx context.Context, sess domainauth.Session, query string) (AuditResult, error) {
	p := sess.Principal
	if !p.IsAdmin() {
		return AuditResult{}, apperrors.Forbidden("Audit logs are only available to administrators.")
	}
	if err := ValidateQuery(query); err != nil {
		return AuditResult{}, err
	}

	records, err := a.backend.AuditLogs(ctx, sess.Token)
	if err != nil {
		return AuditResult{}, err
	}
	visible := auditlog.Filter(p.RoleTag, records)
	a.logger.DebugContext(ctx, "audit feed filtered",
		"role", p.RoleTag, "total", len(records), "visible", len(visible))

	res := AuditResult{
		Role:    p.RoleTag,
		Total:   len(records),
		Visible: len(visible),
		Records: visible,
	}
	if strings.TrimSpace(query) == "" {
		return res, nil
	}

	data, err := toGeneric(visible)
	if err != nil {
		return AuditResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "prepare audit search")
	}
	out, err := jmespath.Search(query, data)
	if err != nil {
		return AuditResult{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Search expression failed.")
	}
	res.Result = out
	return res, nil
}

// toGeneric converts records into the map/slice form JMESPath walks.
func toGeneric(records []auditlog.EventRecord) (any, error) {
	buf, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}
