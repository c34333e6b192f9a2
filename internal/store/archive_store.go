package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rujoshi/zonetrack/internal/domain"
)

// ArchiveStore reads the append-only completed-work audit trail. Entries are
// written by WorkStore inside the approval transaction; this store never
// mutates them.
type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

// ListByZone returns the archive entries for a zone in completion order.
func (s *ArchiveStore) ListByZone(ctx context.Context, zoneID int) ([]domain.ArchiveEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT work_id, zone_id, completed_at, record
		FROM completed_works WHERE zone_id = ? ORDER BY id ASC
	`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive for zone %d: %w", zoneID, err)
	}
	defer rows.Close()

	var entries []domain.ArchiveEntry
	for rows.Next() {
		var entry domain.ArchiveEntry
		var snapshot string
		if err := rows.Scan(&entry.WorkID, &entry.ZoneID, &entry.CompletedAt, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &entry.Record); err != nil {
			return nil, fmt.Errorf("failed to decode archive snapshot for work %s: %w", entry.WorkID, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive entries: %w", err)
	}
	return entries, nil
}
