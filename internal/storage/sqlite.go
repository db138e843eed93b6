package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/nexus/pkg/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS applied_jobs (
	id             TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	job_title      TEXT NOT NULL,
	job_url        TEXT NOT NULL,
	status         TEXT NOT NULL,
	applied_at     TEXT,
	failure_reason TEXT,
	debug_run_id   TEXT
);

CREATE TABLE IF NOT EXISTS credentials (
	id         TEXT PRIMARY KEY,
	portal     TEXT NOT NULL,
	tenant     TEXT NOT NULL,
	email      TEXT NOT NULL,
	password   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (portal, tenant, email)
);
`

// SQLiteStore owns the single database connection both repositories
// are carved out of. JobApplicationRepository and CredentialRepository
// declare same-named methods with different signatures (Get, ListAll),
// so one Go type cannot implement both at once; SQLiteStore instead
// hands out two narrow views, Jobs() and Credentials(), each over the
// shared *sql.DB.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or migrates the database at dbPath and returns a ready
// store. The pure-Go modernc.org/sqlite driver is used so the binary
// needs no cgo toolchain to build.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set foreign_keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Jobs returns the JobApplicationRepository view over this store.
func (s *SQLiteStore) Jobs() *JobStore {
	return &JobStore{db: s.db}
}

// Credentials returns the CredentialRepository view over this store.
func (s *SQLiteStore) Credentials() *CredentialStore {
	return &CredentialStore{db: s.db}
}

// --- JobApplicationRepository --------------------------------------

// JobStore persists JobApplicationRecord rows.
type JobStore struct {
	db *sql.DB
}

func (s *JobStore) Add(ctx context.Context, record *models.JobApplicationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applied_jobs
		 (id, company_name, job_title, job_url, status, applied_at, failure_reason, debug_run_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.CompanyName, record.JobTitle, record.JobURL, string(record.Status),
		timeToISO(record.AppliedAt), record.FailureReason, record.DebugRunID,
	)
	if err != nil {
		return fmt.Errorf("add job application: %w", err)
	}
	return nil
}

func (s *JobStore) Update(ctx context.Context, record *models.JobApplicationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE applied_jobs SET
		 company_name=?, job_title=?, job_url=?, status=?,
		 applied_at=?, failure_reason=?, debug_run_id=?
		 WHERE id=?`,
		record.CompanyName, record.JobTitle, record.JobURL, string(record.Status),
		timeToISO(record.AppliedAt), record.FailureReason, record.DebugRunID, record.ID,
	)
	if err != nil {
		return fmt.Errorf("update job application: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*models.JobApplicationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_name, job_title, job_url, status, applied_at, failure_reason, debug_run_id
		 FROM applied_jobs WHERE id = ?`, id)
	record, err := scanJobApplication(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job application: %w", err)
	}
	return record, nil
}

func (s *JobStore) ListAll(ctx context.Context) ([]models.JobApplicationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_name, job_title, job_url, status, applied_at, failure_reason, debug_run_id
		 FROM applied_jobs ORDER BY applied_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list job applications: %w", err)
	}
	defer rows.Close()

	var out []models.JobApplicationRecord
	for rows.Next() {
		record, err := scanJobApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job application: %w", err)
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobApplication(row rowScanner) (*models.JobApplicationRecord, error) {
	var (
		r             models.JobApplicationRecord
		status        string
		appliedAt     sql.NullString
		failureReason sql.NullString
		debugRunID    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.CompanyName, &r.JobTitle, &r.JobURL, &status, &appliedAt, &failureReason, &debugRunID); err != nil {
		return nil, err
	}
	r.Status = models.JobApplicationStatus(status)
	r.AppliedAt = isoToTime(appliedAt)
	if failureReason.Valid {
		r.FailureReason = &failureReason.String
	}
	if debugRunID.Valid {
		r.DebugRunID = &debugRunID.String
	}
	return &r, nil
}

// --- CredentialRepository --------------------------------------------

// CredentialStore persists AccountCredential rows.
type CredentialStore struct {
	db *sql.DB
}

func (s *CredentialStore) Upsert(ctx context.Context, cred *models.AccountCredential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, portal, tenant, email, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(portal, tenant, email) DO UPDATE SET
		 id=excluded.id, password=excluded.password, updated_at=excluded.updated_at`,
		cred.ID, cred.Portal, cred.Tenant, cred.Email, cred.Password,
		timeToISO(&cred.CreatedAt), timeToISO(&cred.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, portal, tenant, email string) (*models.AccountCredential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, portal, tenant, email, password, created_at, updated_at
		 FROM credentials WHERE portal = ? AND tenant = ? AND email = ?`, portal, tenant, email)
	cred, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}

func (s *CredentialStore) ListAll(ctx context.Context) ([]models.AccountCredential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, portal, tenant, email, password, created_at, updated_at
		 FROM credentials ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []models.AccountCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, *cred)
	}
	return out, rows.Err()
}

func scanCredential(row rowScanner) (*models.AccountCredential, error) {
	var (
		c                    models.AccountCredential
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Portal, &c.Tenant, &c.Email, &c.Password, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = mustISOToTime(createdAt)
	c.UpdatedAt = mustISOToTime(updatedAt)
	return &c, nil
}

// timeToISO and isoToTime mirror _datetime.py's dt_to_iso/iso_to_dt: a
// naive (no-location) time is treated as UTC, not local.
func timeToISO(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func isoToTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := parseISO(ns.String)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func mustISOToTime(s string) time.Time {
	t, err := parseISO(s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// parseISO accepts RFC 3339 timestamps and, failing that, offset-less
// ISO-8601 timestamps, which time.Parse reads as UTC.
func parseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

var (
	_ JobApplicationRepository = (*JobStore)(nil)
	_ CredentialRepository     = (*CredentialStore)(nil)
)
