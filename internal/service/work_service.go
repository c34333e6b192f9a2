package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rujoshi/zonetrack/internal/auth"
	"github.com/rujoshi/zonetrack/internal/domain"
	"github.com/rujoshi/zonetrack/internal/exifdata"
	"github.com/rujoshi/zonetrack/internal/notify"
	"github.com/rujoshi/zonetrack/internal/photostore"
)

// zoneRegistry is the subset of store.ZoneStore that WorkService requires.
type zoneRegistry interface {
	GetOrCreate(ctx context.Context, id int) (*domain.Zone, error)
	Get(ctx context.Context, id int) (*domain.Zone, error)
	List(ctx context.Context) ([]*domain.Zone, error)
}

// workRegistry is the subset of store.WorkStore that WorkService requires.
type workRegistry interface {
	CreateWork(ctx context.Context, zoneID int, workType domain.WorkType, photo domain.Photo) (*domain.WorkRecord, error)
	AttachAfterPhoto(ctx context.Context, zoneID int, workID string, photo domain.Photo) (*domain.WorkRecord, error)
	SetOutcome(ctx context.Context, zoneID int, workID string, approved bool, comment string) (*domain.WorkRecord, error)
	RemoveAfterPhoto(ctx context.Context, zoneID int, workID, photoID string) (*domain.Photo, error)
	FindZoneForWork(ctx context.Context, workID string) (int, error)
}

// archiveRegistry is the subset of store.ArchiveStore that WorkService requires.
type archiveRegistry interface {
	ListByZone(ctx context.Context, zoneID int) ([]domain.ArchiveEntry, error)
}

// eventPublisher is the fire-and-forget side of notify.Dispatcher.
type eventPublisher interface {
	Publish(ev notify.Event)
}

// Upload carries a validated multipart file through the engine. MimeType is
// the sniffed type, not the client's declared one.
type Upload struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// WorkService is the work-record lifecycle engine: it guards every state
// transition, persists photo blobs and record mutations, and publishes
// lifecycle events.
type WorkService struct {
	zones       zoneRegistry
	works       workRegistry
	archive     archiveRegistry
	blobs       photostore.PhotoStore
	events      eventPublisher
	logger      *slog.Logger
	baseURL     string
	maxBytes    int64
	blobTimeout time.Duration
}

func NewWorkService(
	zones zoneRegistry,
	works workRegistry,
	archive archiveRegistry,
	blobs photostore.PhotoStore,
	events eventPublisher,
	logger *slog.Logger,
	baseURL string,
	maxBytes int64,
	blobTimeout time.Duration,
) *WorkService {
	return &WorkService{
		zones:       zones,
		works:       works,
		archive:     archive,
		blobs:       blobs,
		events:      events,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxBytes:    maxBytes,
		blobTimeout: blobTimeout,
	}
}

// SubmitBeforePhoto opens a new work record in the zone, seeded with the
// uploaded photo, and notifies the zone manager.
func (s *WorkService) SubmitBeforePhoto(ctx context.Context, p domain.Principal, zoneID int, workType domain.WorkType, up Upload) (*domain.WorkRecord, error) {
	if !auth.CanSubmitBefore(p) {
		return nil, fmt.Errorf("role %s may not submit photos: %w", p.Role, domain.ErrForbidden)
	}
	if !domain.ValidWorkType(workType) {
		return nil, fmt.Errorf("unknown work type %q: %w", workType, domain.ErrValidation)
	}
	if err := s.validateUpload(up); err != nil {
		return nil, err
	}

	photo := s.buildPhoto(zoneID, domain.PhotoBefore, up)
	if err := s.saveBlob(ctx, photo.StorageKey, up); err != nil {
		return nil, err
	}

	rec, err := s.works.CreateWork(ctx, zoneID, workType, photo)
	if err != nil {
		s.deleteBlob(ctx, photo.StorageKey)
		return nil, err
	}
	s.logger.Info("work record created",
		"zone_id", zoneID, "work_id", rec.ID, "work_type", workType, "bytes", len(up.Data))

	s.events.Publish(notify.Event{
		Kind:       notify.EventWorkCreated,
		ZoneID:     zoneID,
		WorkID:     rec.ID,
		WorkType:   workType,
		CapturedAt: photo.CapturedAt,
		OccurredAt: time.Now(),
	})
	return rec, nil
}

// SubmitAfterPhoto appends an after photo to an existing work record and
// notifies the approver. A rejected record is implicitly re-opened. The work
// category selected in the client's candidate filter is intentionally not
// re-validated here: the target work id is the contract.
func (s *WorkService) SubmitAfterPhoto(ctx context.Context, p domain.Principal, zoneID int, workID string, up Upload) (*domain.WorkRecord, error) {
	if !auth.CanSubmitAfter(p) {
		return nil, fmt.Errorf("role %s may not submit after photos: %w", p.Role, domain.ErrForbidden)
	}
	if err := s.validateUpload(up); err != nil {
		return nil, err
	}

	photo := s.buildPhoto(zoneID, domain.PhotoAfter, up)
	if err := s.saveBlob(ctx, photo.StorageKey, up); err != nil {
		return nil, err
	}

	rec, err := s.works.AttachAfterPhoto(ctx, zoneID, workID, photo)
	if err != nil {
		s.deleteBlob(ctx, photo.StorageKey)
		return nil, err
	}
	s.logger.Info("after photo attached",
		"zone_id", zoneID, "work_id", workID, "photo_id", photo.ID)

	s.events.Publish(notify.Event{
		Kind:       notify.EventAfterPhotoSubmitted,
		ZoneID:     zoneID,
		WorkID:     workID,
		WorkType:   rec.WorkType,
		CapturedAt: photo.CapturedAt,
		OccurredAt: time.Now(),
	})
	return rec, nil
}

// Approve finalizes a work record as complete or rejected. Approval archives
// the record atomically with the transition; both outcomes notify the zone
// manager and the approver.
func (s *WorkService) Approve(ctx context.Context, p domain.Principal, zoneID int, workID string, approved bool, comment string) (*domain.WorkRecord, error) {
	if !auth.CanApprove(p) {
		return nil, fmt.Errorf("role %s may not approve work: %w", p.Role, domain.ErrForbidden)
	}

	rec, err := s.works.SetOutcome(ctx, zoneID, workID, approved, comment)
	if err != nil {
		return nil, err
	}
	s.logger.Info("work outcome recorded",
		"zone_id", zoneID, "work_id", workID, "status", rec.Status)

	kind := notify.EventWorkRejected
	if approved {
		kind = notify.EventWorkApproved
	}
	s.events.Publish(notify.Event{
		Kind:       kind,
		ZoneID:     zoneID,
		WorkID:     workID,
		WorkType:   rec.WorkType,
		Comment:    comment,
		OccurredAt: time.Now(),
	})
	return rec, nil
}

// DeleteAfterPhoto removes one after photo from a rejected work record,
// resetting it to inprogress, and deletes the underlying blob best-effort.
func (s *WorkService) DeleteAfterPhoto(ctx context.Context, p domain.Principal, zoneID int, workID, photoID string) error {
	if !auth.CanSubmitAfter(p) {
		return fmt.Errorf("role %s may not delete after photos: %w", p.Role, domain.ErrForbidden)
	}

	photo, err := s.works.RemoveAfterPhoto(ctx, zoneID, workID, photoID)
	if err != nil {
		return err
	}
	s.logger.Info("after photo removed",
		"zone_id", zoneID, "work_id", workID, "photo_id", photoID)

	s.deleteBlob(ctx, photo.StorageKey)
	return nil
}

// ResolveZoneForWork finds the owning zone of a work record.
func (s *WorkService) ResolveZoneForWork(ctx context.Context, workID string) (int, error) {
	return s.works.FindZoneForWork(ctx, workID)
}

// GetZone fetches a zone, creating it lazily if absent.
func (s *WorkService) GetZone(ctx context.Context, zoneID int) (*domain.Zone, error) {
	return s.zones.GetOrCreate(ctx, zoneID)
}

// ListZones returns the dashboard summaries visible to the principal for one
// tab. Zone managers see only their assigned zone.
func (s *WorkService) ListZones(ctx context.Context, p domain.Principal, tab domain.DashboardTab) ([]domain.ZoneSummary, error) {
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, err
	}

	if scope := auth.ZoneScope(p); scope > 0 {
		scoped := zones[:0]
		for _, zone := range zones {
			if zone.ID == scope {
				scoped = append(scoped, zone)
			}
		}
		zones = scoped
	}

	return Summarize(zones, tab), nil
}

// ListArchive returns the completed-work audit trail for a zone. Zone managers
// may only read their assigned zone.
func (s *WorkService) ListArchive(ctx context.Context, p domain.Principal, zoneID int) ([]domain.ArchiveEntry, error) {
	if scope := auth.ZoneScope(p); scope > 0 && scope != zoneID {
		return nil, fmt.Errorf("zone %d is outside the assigned scope: %w", zoneID, domain.ErrForbidden)
	}
	return s.archive.ListByZone(ctx, zoneID)
}

func (s *WorkService) validateUpload(up Upload) error {
	if len(up.Data) == 0 {
		return fmt.Errorf("photo file required: %w", domain.ErrValidation)
	}
	if int64(len(up.Data)) > s.maxBytes {
		return fmt.Errorf("file size %d exceeds limit %d: %w", len(up.Data), s.maxBytes, domain.ErrValidation)
	}
	if !strings.HasPrefix(up.MimeType, "image/") {
		return fmt.Errorf("file must be an image, got %q: %w", up.MimeType, domain.ErrValidation)
	}
	return nil
}

// buildPhoto assembles the photo metadata: a fresh id, a collision-free
// storage key, the public URL, and the best-effort capture time.
func (s *WorkService) buildPhoto(zoneID int, kind domain.PhotoKind, up Upload) domain.Photo {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(up.OriginalName))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("zone-%d-%s-%d-%s%s", zoneID, kind, time.Now().UnixNano(), id, ext)

	return domain.Photo{
		ID:           id,
		Filename:     key,
		OriginalName: up.OriginalName,
		URL:          s.baseURL + "/uploads/" + key,
		CapturedAt:   exifdata.CaptureTime(up.Data, time.Now().UTC()),
		Size:         int64(len(up.Data)),
		MimeType:     up.MimeType,
		StorageKey:   key,
	}
}

// saveBlob persists the photo bytes under a bounded timeout, retrying once.
// A failed store must fail the whole submission, so the second failure is
// surfaced.
func (s *WorkService) saveBlob(ctx context.Context, key string, up Upload) error {
	save := func() error {
		blobCtx, cancel := context.WithTimeout(ctx, s.blobTimeout)
		defer cancel()
		return s.blobs.Save(blobCtx, key, up.MimeType, bytes.NewReader(up.Data))
	}

	err := save()
	if err == nil {
		return nil
	}
	s.logger.Warn("photo store failed, retrying", "storage_key", key, "error", err)

	if err := save(); err != nil {
		return fmt.Errorf("failed to store photo %s: %w", key, err)
	}
	return nil
}

// deleteBlob is cleanup only: a missing or stuck file is logged, never fatal.
func (s *WorkService) deleteBlob(ctx context.Context, key string) {
	blobCtx, cancel := context.WithTimeout(ctx, s.blobTimeout)
	defer cancel()
	if err := s.blobs.Delete(blobCtx, key); err != nil {
		s.logger.Error("failed to delete photo blob", "storage_key", key, "error", err)
	}
}
