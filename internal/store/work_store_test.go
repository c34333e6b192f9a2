package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/rujoshi/zonetrack/internal/domain"
)

func testPhoto(name string) domain.Photo {
	id := uuid.NewString()
	return domain.Photo{
		ID:           id,
		Filename:     "zone-5-before-" + id + ".jpg",
		OriginalName: name,
		URL:          "/uploads/zone-5-before-" + id + ".jpg",
		CapturedAt:   time.Now().UTC().Truncate(time.Second),
		Size:         2048,
		MimeType:     "image/jpeg",
		StorageKey:   "zone-5-before-" + id + ".jpg",
	}
}

func TestCreateWork(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 5, rec.ZoneID)
	assert.Equal(t, domain.WorkTypeWPP, rec.WorkType)
	assert.Equal(t, domain.StatusInProgress, rec.Status)
	assert.Len(t, rec.BeforePhotos, 1)
	assert.Empty(t, rec.AfterPhotos)

	// Zone was lazily created and holds the record
	zone, err := NewZoneStore(d).Get(ctx, 5)
	require.NoError(t, err)
	require.Len(t, zone.WorkRecords, 1)
	assert.Equal(t, rec.ID, zone.WorkRecords[0].ID)
}

func TestCreateWorkRoundTripsPhotoMetadata(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	photo := testPhoto("site-entrance.jpg")
	_, err := works.CreateWork(ctx, 3, domain.WorkTypeFPP, photo)
	require.NoError(t, err)

	zone, err := NewZoneStore(d).Get(ctx, 3)
	require.NoError(t, err)
	require.Len(t, zone.WorkRecords, 1)
	got := zone.WorkRecords[0].BeforePhotos[0]

	assert.Equal(t, photo.ID, got.ID)
	assert.Equal(t, photo.OriginalName, got.OriginalName)
	assert.Equal(t, photo.URL, got.URL)
	assert.Equal(t, photo.Size, got.Size)
	assert.Equal(t, photo.MimeType, got.MimeType)
	assert.True(t, photo.CapturedAt.Equal(got.CapturedAt))
}

func TestAttachAfterPhoto(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)

	updated, err := works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after.jpg"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Len(t, updated.AfterPhotos, 1)
}

func TestAttachAfterPhotoWorkNotFound(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)

	_, err := works.AttachAfterPhoto(context.Background(), 5, uuid.NewString(), testPhoto("after.jpg"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachAfterPhotoWrongZone(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)

	// The record is owned by zone 5; addressing it through zone 6 fails
	_, err = works.AttachAfterPhoto(ctx, 6, rec.ID, testPhoto("after.jpg"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachAfterPhotoReopensRejected(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after.jpg"))
	require.NoError(t, err)
	_, err = works.SetOutcome(ctx, 5, rec.ID, false, "redo the fencing")
	require.NoError(t, err)

	updated, err := works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after2.jpg"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Len(t, updated.AfterPhotos, 2)
}

func TestAttachAfterPhotoCompleteIsTerminal(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after.jpg"))
	require.NoError(t, err)
	_, err = works.SetOutcome(ctx, 5, rec.ID, true, "looks good")
	require.NoError(t, err)

	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("late.jpg"))
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestSetOutcomeApprove(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after.jpg"))
	require.NoError(t, err)

	updated, err := works.SetOutcome(ctx, 5, rec.ID, true, "looks good")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, updated.Status)
	assert.Equal(t, "looks good", updated.ApprovalComment)
	require.NotNil(t, updated.ApprovedAt)

	// Archive entry written atomically with the transition
	entries, err := NewArchiveStore(d).ListByZone(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, rec.ID, entries[0].WorkID)
	assert.Equal(t, 5, entries[0].ZoneID)
	assert.False(t, entries[0].CompletedAt.IsZero())
	assert.Equal(t, domain.StatusComplete, entries[0].Record.Status)
	assert.Len(t, entries[0].Record.BeforePhotos, 1)
	assert.Len(t, entries[0].Record.AfterPhotos, 1)
}

func TestSetOutcomeRejectDoesNotArchive(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after.jpg"))
	require.NoError(t, err)

	updated, err := works.SetOutcome(ctx, 5, rec.ID, false, "not acceptable")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)
	require.NotNil(t, updated.ApprovedAt)

	entries, err := NewArchiveStore(d).ListByZone(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSetOutcomeRequiresBothPhotoSets(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)

	// Only a before photo: both approve and reject must fail the guard
	_, err = works.SetOutcome(ctx, 5, rec.ID, true, "")
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	_, err = works.SetOutcome(ctx, 5, rec.ID, false, "")
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	// Status must be unchanged
	zone, err := NewZoneStore(d).Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, zone.WorkRecords[0].Status)
}

func TestSetOutcomeOnlyFromInProgress(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, testPhoto("after.jpg"))
	require.NoError(t, err)
	_, err = works.SetOutcome(ctx, 5, rec.ID, false, "redo")
	require.NoError(t, err)

	// rejected is not a decidable state; a new after photo must re-open first
	_, err = works.SetOutcome(ctx, 5, rec.ID, true, "second thoughts")
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestRemoveAfterPhoto(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	after := testPhoto("after.jpg")
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, after)
	require.NoError(t, err)
	_, err = works.SetOutcome(ctx, 5, rec.ID, false, "blurry photo")
	require.NoError(t, err)

	removed, err := works.RemoveAfterPhoto(ctx, 5, rec.ID, after.ID)
	require.NoError(t, err)
	assert.Equal(t, after.StorageKey, removed.StorageKey)

	zone, err := NewZoneStore(d).Get(ctx, 5)
	require.NoError(t, err)
	got := zone.WorkRecords[0]
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Empty(t, got.AfterPhotos)
	// Decision history is retained
	assert.Equal(t, "blurry photo", got.ApprovalComment)
	assert.NotNil(t, got.ApprovedAt)
}

func TestRemoveAfterPhotoOnlyWhenRejected(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)
	after := testPhoto("after.jpg")
	_, err = works.AttachAfterPhoto(ctx, 5, rec.ID, after)
	require.NoError(t, err)

	_, err = works.RemoveAfterPhoto(ctx, 5, rec.ID, after.ID)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestRemoveAfterPhotoNotFound(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("before.jpg"))
	require.NoError(t, err)

	_, err = works.RemoveAfterPhoto(ctx, 5, rec.ID, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindZoneForWork(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	rec, err := works.CreateWork(ctx, 8, domain.WorkTypeWFP, testPhoto("before.jpg"))
	require.NoError(t, err)

	zoneID, err := works.FindZoneForWork(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, zoneID)

	_, err = works.FindZoneForWork(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentAttachNoLostUpdates(t *testing.T) {
	d := openTestDB(t)
	works := NewWorkStore(d)
	ctx := context.Background()

	// Two records in the same zone receiving after photos concurrently
	recA, err := works.CreateWork(ctx, 5, domain.WorkTypeWPP, testPhoto("a-before.jpg"))
	require.NoError(t, err)
	recB, err := works.CreateWork(ctx, 5, domain.WorkTypeWFP, testPhoto("b-before.jpg"))
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() {
		_, err := works.AttachAfterPhoto(ctx, 5, recA.ID, testPhoto("a-after.jpg"))
		done <- err
	}()
	go func() {
		_, err := works.AttachAfterPhoto(ctx, 5, recB.ID, testPhoto("b-after.jpg"))
		done <- err
	}()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	zone, err := NewZoneStore(d).Get(ctx, 5)
	require.NoError(t, err)
	require.Len(t, zone.WorkRecords, 2)
	for _, rec := range zone.WorkRecords {
		assert.Len(t, rec.AfterPhotos, 1)
	}
}
