package agent

import "context"

// CredentialSink is the narrow slice of the application orchestrator
// (C4) that the report_credential browser tool needs: record the
// password used when the agent created a new account on the current
// job board, so the orchestrator can persist it keyed by
// (portal, tenant, email). Implemented by internal/orchestrator.
type CredentialSink interface {
	ReportCredential(ctx context.Context, password string) error
}
