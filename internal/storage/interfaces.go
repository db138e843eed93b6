// Package storage persists job application records and job-board
// credentials to local SQLite.
package storage

import (
	"context"
	"errors"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ErrNotFound is returned by Get when no row matches.
var ErrNotFound = errors.New("not found")

// JobApplicationRepository persists the lifecycle of one apply attempt
// per JobApplicationRecord: created pending, mutated once to a terminal
// status.
type JobApplicationRepository interface {
	Add(ctx context.Context, record *models.JobApplicationRecord) error
	Update(ctx context.Context, record *models.JobApplicationRecord) error
	Get(ctx context.Context, id string) (*models.JobApplicationRecord, error)
	ListAll(ctx context.Context) ([]models.JobApplicationRecord, error)
}

// CredentialRepository persists job-board account credentials keyed by
// (portal, tenant, email).
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *models.AccountCredential) error
	Get(ctx context.Context, portal, tenant, email string) (*models.AccountCredential, error)
	ListAll(ctx context.Context) ([]models.AccountCredential, error)
}
