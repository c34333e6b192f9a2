package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rujoshi/zonetrack/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so row loaders can run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ZoneStore owns the set of zones. Zones are created lazily on first
// reference and never deleted.
type ZoneStore struct {
	db *sql.DB
}

func NewZoneStore(db *sql.DB) *ZoneStore {
	return &ZoneStore{db: db}
}

// GetOrCreate fetches a zone by id, creating an empty one if absent. The
// insert is an idempotent upsert, so concurrent first access for the same id
// yields exactly one row.
func (s *ZoneStore) GetOrCreate(ctx context.Context, id int) (*domain.Zone, error) {
	if id <= 0 {
		return nil, fmt.Errorf("zone id must be positive: %w", domain.ErrValidation)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO zones (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create zone %d: %w", id, err)
	}

	return s.Get(ctx, id)
}

// EnsureRange creates zones 1..n that do not exist yet. It is the explicit
// one-time bootstrap invoked at startup, keeping list reads side-effect-free.
func (s *ZoneStore) EnsureRange(ctx context.Context, n int) error {
	now := time.Now().UTC()
	for id := 1; id <= n; id++ {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO zones (id, created_at, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, id, now, now)
		if err != nil {
			return fmt.Errorf("failed to ensure zone %d: %w", id, err)
		}
	}
	return nil
}

// Get returns the zone with its work records in creation order.
func (s *ZoneStore) Get(ctx context.Context, id int) (*domain.Zone, error) {
	zone := &domain.Zone{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at FROM zones WHERE id = ?
	`, id).Scan(&zone.ID, &zone.CreatedAt, &zone.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("zone %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get zone %d: %w", id, err)
	}

	records, err := loadZoneWork(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	zone.WorkRecords = records
	return zone, nil
}

// List returns all zones with their work records, ordered by zone id.
func (s *ZoneStore) List(ctx context.Context) ([]*domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, updated_at FROM zones ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	defer rows.Close()

	var zones []*domain.Zone
	for rows.Next() {
		zone := &domain.Zone{}
		if err := rows.Scan(&zone.ID, &zone.CreatedAt, &zone.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating zones: %w", err)
	}

	for _, zone := range zones {
		records, err := loadZoneWork(ctx, s.db, zone.ID)
		if err != nil {
			return nil, err
		}
		zone.WorkRecords = records
	}
	return zones, nil
}

// loadZoneWork loads a zone's work records in insertion order, each with its
// before/after photo sequences.
func loadZoneWork(ctx context.Context, q querier, zoneID int) ([]domain.WorkRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, zone_id, work_type, status, approval_comment, approved_at, created_at
		FROM work_records WHERE zone_id = ? ORDER BY rowid ASC
	`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work records for zone %d: %w", zoneID, err)
	}
	defer rows.Close()

	records := []domain.WorkRecord{}
	for rows.Next() {
		rec, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work records: %w", err)
	}

	for i := range records {
		if err := loadPhotos(ctx, q, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWork(row rowScanner) (*domain.WorkRecord, error) {
	rec := &domain.WorkRecord{}
	var approvedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.ZoneID, &rec.WorkType, &rec.Status,
		&rec.ApprovalComment, &approvedAt, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan work record: %w", err)
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		rec.ApprovedAt = &t
	}
	return rec, nil
}

func loadPhotos(ctx context.Context, q querier, rec *domain.WorkRecord) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, filename, original_name, url, storage_key, captured_at, size, mime_type
		FROM photos WHERE work_id = ? ORDER BY position ASC
	`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to list photos for work %s: %w", rec.ID, err)
	}
	defer rows.Close()

	rec.BeforePhotos = []domain.Photo{}
	rec.AfterPhotos = []domain.Photo{}
	for rows.Next() {
		var p domain.Photo
		var kind domain.PhotoKind
		err := rows.Scan(&p.ID, &kind, &p.Filename, &p.OriginalName, &p.URL,
			&p.StorageKey, &p.CapturedAt, &p.Size, &p.MimeType)
		if err != nil {
			return fmt.Errorf("failed to scan photo: %w", err)
		}
		if kind == domain.PhotoBefore {
			rec.BeforePhotos = append(rec.BeforePhotos, p)
		} else {
			rec.AfterPhotos = append(rec.AfterPhotos, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating photos: %w", err)
	}
	return nil
}
