package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rujoshi/zonetrack/internal/domain"
)

// WorkStore performs all work-record mutations. Every mutation runs in a
// single transaction that re-verifies the lifecycle guards against current
// state, so concurrent submissions on the same zone cannot lose updates or
// skip a precondition.
type WorkStore struct {
	db *sql.DB
}

func NewWorkStore(db *sql.DB) *WorkStore {
	return &WorkStore{db: db}
}

// CreateWork creates a work record at inprogress seeded with exactly one
// before photo. The owning zone is created lazily if absent.
func (s *WorkStore) CreateWork(ctx context.Context, zoneID int, workType domain.WorkType, photo domain.Photo) (*domain.WorkRecord, error) {
	if zoneID <= 0 {
		return nil, fmt.Errorf("zone id must be positive: %w", domain.ErrValidation)
	}

	var created *domain.WorkRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO zones (id, created_at, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, zoneID, now, now)
		if err != nil {
			return fmt.Errorf("failed to ensure zone %d: %w", zoneID, err)
		}

		rec := &domain.WorkRecord{
			ID:           uuid.NewString(),
			ZoneID:       zoneID,
			WorkType:     workType,
			BeforePhotos: []domain.Photo{photo},
			AfterPhotos:  []domain.Photo{},
			Status:       domain.StatusInProgress,
			CreatedAt:    now,
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO work_records (id, zone_id, work_type, status, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, zoneID, workType, domain.StatusInProgress, now)
		if err != nil {
			return fmt.Errorf("failed to create work record: %w", err)
		}

		if err := insertPhoto(ctx, tx, rec.ID, domain.PhotoBefore, photo, 0); err != nil {
			return err
		}

		if err := touchZone(ctx, tx, zoneID, now); err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AttachAfterPhoto appends an after photo to the work record. A rejected
// record is re-opened to inprogress; a complete record is terminal and the
// call fails the precondition.
func (s *WorkStore) AttachAfterPhoto(ctx context.Context, zoneID int, workID string, photo domain.Photo) (*domain.WorkRecord, error) {
	var updated *domain.WorkRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rec, err := loadWorkForUpdate(ctx, tx, zoneID, workID)
		if err != nil {
			return err
		}

		if err := domain.CanAttachAfterPhoto(rec.Status, len(rec.BeforePhotos)); err != nil {
			return fmt.Errorf("cannot attach after photo to work %s (status %s): %w",
				workID, rec.Status.OrDefault(), err)
		}

		if err := insertPhoto(ctx, tx, workID, domain.PhotoAfter, photo, len(rec.AfterPhotos)); err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE work_records SET status = ? WHERE id = ?
		`, domain.StatusInProgress, workID)
		if err != nil {
			return fmt.Errorf("failed to update work status: %w", err)
		}
		if err := touchZone(ctx, tx, zoneID, now); err != nil {
			return err
		}

		rec.AfterPhotos = append(rec.AfterPhotos, photo)
		rec.Status = domain.StatusInProgress
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetOutcome finalizes a work record as complete or rejected, recording the
// comment and decision time. On approval the denormalized archive snapshot is
// written in the same transaction, so the transition and the audit entry
// either both land or neither does.
func (s *WorkStore) SetOutcome(ctx context.Context, zoneID int, workID string, approved bool, comment string) (*domain.WorkRecord, error) {
	var updated *domain.WorkRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rec, err := loadWorkForUpdate(ctx, tx, zoneID, workID)
		if err != nil {
			return err
		}

		if err := domain.CanDecide(rec.Status, len(rec.BeforePhotos), len(rec.AfterPhotos)); err != nil {
			return fmt.Errorf("cannot decide work %s without both photo sets: %w", workID, err)
		}

		status := domain.StatusRejected
		if approved {
			status = domain.StatusComplete
		}
		now := time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE work_records SET status = ?, approval_comment = ?, approved_at = ? WHERE id = ?
		`, status, comment, now, workID)
		if err != nil {
			return fmt.Errorf("failed to set work outcome: %w", err)
		}
		if err := touchZone(ctx, tx, zoneID, now); err != nil {
			return err
		}

		rec.Status = status
		rec.ApprovalComment = comment
		rec.ApprovedAt = &now

		if approved {
			if err := insertArchiveEntry(ctx, tx, rec, now); err != nil {
				return err
			}
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveAfterPhoto deletes one after photo from a rejected work record and
// resets its status to inprogress. The approval comment and timestamp are
// kept as a historical record. The removed photo is returned so the caller
// can clean up the underlying blob.
func (s *WorkStore) RemoveAfterPhoto(ctx context.Context, zoneID int, workID, photoID string) (*domain.Photo, error) {
	var removed *domain.Photo
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rec, err := loadWorkForUpdate(ctx, tx, zoneID, workID)
		if err != nil {
			return err
		}

		var photo *domain.Photo
		for i := range rec.AfterPhotos {
			if rec.AfterPhotos[i].ID == photoID {
				photo = &rec.AfterPhotos[i]
				break
			}
		}
		if photo == nil {
			return fmt.Errorf("photo %s on work %s: %w", photoID, workID, domain.ErrNotFound)
		}

		if err := domain.CanRemoveAfterPhoto(rec.Status); err != nil {
			return fmt.Errorf("cannot remove after photo from work %s (status %s): %w",
				workID, rec.Status.OrDefault(), err)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, photoID)
		if err != nil {
			return fmt.Errorf("failed to delete photo: %w", err)
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE work_records SET status = ? WHERE id = ?
		`, domain.StatusInProgress, workID)
		if err != nil {
			return fmt.Errorf("failed to reset work status: %w", err)
		}
		if err := touchZone(ctx, tx, zoneID, now); err != nil {
			return err
		}

		removed = photo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// FindZoneForWork resolves the owning zone of a work record, for endpoints
// addressed by work id alone.
func (s *WorkStore) FindZoneForWork(ctx context.Context, workID string) (int, error) {
	var zoneID int
	err := s.db.QueryRowContext(ctx, `
		SELECT zone_id FROM work_records WHERE id = ?
	`, workID).Scan(&zoneID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("work %s: %w", workID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve zone for work %s: %w", workID, err)
	}
	return zoneID, nil
}

func (s *WorkStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (also failed to roll back: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// loadWorkForUpdate loads a work record with its photos inside the mutation
// transaction, verifying it belongs to the addressed zone.
func loadWorkForUpdate(ctx context.Context, tx *sql.Tx, zoneID int, workID string) (*domain.WorkRecord, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, zone_id, work_type, status, approval_comment, approved_at, created_at
		FROM work_records WHERE id = ? AND zone_id = ?
	`, workID, zoneID)

	rec := &domain.WorkRecord{}
	var approvedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.ZoneID, &rec.WorkType, &rec.Status,
		&rec.ApprovalComment, &approvedAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work %s in zone %d: %w", workID, zoneID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load work %s: %w", workID, err)
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		rec.ApprovedAt = &t
	}

	if err := loadPhotos(ctx, tx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func insertPhoto(ctx context.Context, tx *sql.Tx, workID string, kind domain.PhotoKind, p domain.Photo, position int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO photos (id, work_id, kind, filename, original_name, url, storage_key,
			captured_at, size, mime_type, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, workID, kind, p.Filename, p.OriginalName, p.URL, p.StorageKey,
		p.CapturedAt, p.Size, p.MimeType, position)
	if err != nil {
		return fmt.Errorf("failed to insert %s photo: %w", kind, err)
	}
	return nil
}

func insertArchiveEntry(ctx context.Context, tx *sql.Tx, rec *domain.WorkRecord, completedAt time.Time) error {
	snapshot, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal archive snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO completed_works (work_id, zone_id, completed_at, record)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.ZoneID, completedAt, string(snapshot))
	if err != nil {
		return fmt.Errorf("failed to insert archive entry: %w", err)
	}
	return nil
}

func touchZone(ctx context.Context, tx *sql.Tx, zoneID int, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `UPDATE zones SET updated_at = ? WHERE id = ?`, now, zoneID); err != nil {
		return fmt.Errorf("failed to touch zone %d: %w", zoneID, err)
	}
	return nil
}
