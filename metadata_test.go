package rotor

import (
	"testing"
	"time"

	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/persist"
)

func TestMetadataStore(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*testing.T)
	}{
		{"TrackCreatesEntry", testTrackCreatesEntry},
		{"TrackPreservesCreatedAt", testTrackPreservesCreatedAt},
		{"RotationCountOnlyGrows", testRotationCountOnlyGrows},
		{"GetStatusDerivesFreshStatus", testGetStatusDerivesFreshStatus},
		{"StatusScans", testStatusScans},
		{"UntrackAlwaysAudits", testUntrackAlwaysAudits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t)
		})
	}
}

func newTestMetadataStore() (*MetadataStore, *persist.MemoryStore, audit.Logger) {
	backend := persist.NewMemoryStore()
	logger := audit.NewStoreLogger(persist.NewMemoryStore())
	return NewMetadataStore(backend, logger), backend, logger
}

// seedMetadata writes a metadata entry directly to the backing store,
// bypassing Track, so tests can stage keys with arbitrary expiry dates.
func seedMetadata(t *testing.T, backend persist.Store, entries ...SecretKeyMetadata) {
	t.Helper()
	doc := metadataDoc{Keys: make(map[string]SecretKeyMetadata)}
	var existing metadataDoc
	if found, _ := backend.Load(metadataDocument, &existing); found && existing.Keys != nil {
		doc = existing
	}
	for _, meta := range entries {
		doc.Keys[meta.KeyName] = meta
	}
	if err := backend.Save(metadataDocument, &doc); err != nil {
		t.Fatalf("failed to seed metadata: %v", err)
	}
}

func testTrackCreatesEntry(t *testing.T) {
	ms, _, _ := newTestMetadataStore()

	meta, err := ms.Track("SECRET_KEY_DEV", StageDev, TrackOptions{
		RotationDays: 90,
		Algorithm:    "AES-256-CTR",
		KeyLength:    256,
		PerformedBy:  "tester",
	})
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}

	if meta.KeyName != "SECRET_KEY_DEV" || meta.Environment != StageDev {
		t.Errorf("unexpected identity fields: %+v", meta)
	}
	if meta.CreatedAt.IsZero() || meta.ExpiresAt.IsZero() {
		t.Error("timestamps not stamped")
	}
	if meta.RotationCount != 0 {
		t.Errorf("fresh key should have rotation count 0, got %d", meta.RotationCount)
	}
	if meta.Status != KeyStatusActive {
		t.Errorf("fresh 90-day key should be active, got %s", meta.Status)
	}
	if meta.LastRotatedAt != nil {
		t.Error("fresh key should not have a last-rotated timestamp")
	}
}

func testTrackPreservesCreatedAt(t *testing.T) {
	ms, _, _ := newTestMetadataStore()

	first, err := ms.Track("SECRET_KEY_DEV", StageDev, TrackOptions{RotationDays: 90})
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}

	second, err := ms.Track("SECRET_KEY_DEV", StageDev, TrackOptions{
		RotationDays: 30,
		IsRotation:   true,
	})
	if err != nil {
		t.Fatalf("second track failed: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("createdAt changed across rotation: %v then %v", first.CreatedAt, second.CreatedAt)
	}
	if second.RotationDays != 30 {
		t.Errorf("rotation days not updated: %d", second.RotationDays)
	}
	if second.LastRotatedAt == nil {
		t.Error("rotation should stamp lastRotatedAt")
	}
}

func testRotationCountOnlyGrows(t *testing.T) {
	ms, _, _ := newTestMetadataStore()

	if _, err := ms.Track("SECRET_KEY_QA", StageQA, TrackOptions{RotationDays: 90}); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	for want := 1; want <= 3; want++ {
		meta, err := ms.Track("SECRET_KEY_QA", StageQA, TrackOptions{
			RotationDays: 90,
			IsRotation:   true,
		})
		if err != nil {
			t.Fatalf("rotation %d failed: %v", want, err)
		}
		if meta.RotationCount != want {
			t.Errorf("expected rotation count %d, got %d", want, meta.RotationCount)
		}
	}

	// A non-rotation update must not bump the count.
	meta, err := ms.Track("SECRET_KEY_QA", StageQA, TrackOptions{RotationDays: 60})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if meta.RotationCount != 3 {
		t.Errorf("non-rotation update changed count to %d", meta.RotationCount)
	}
}

func testGetStatusDerivesFreshStatus(t *testing.T) {
	ms, backend, _ := newTestMetadataStore()

	// The stored status claims active, but the expiry is long past; the
	// derived status must win.
	seedMetadata(t, backend, SecretKeyMetadata{
		KeyName:     "SECRET_KEY_UAT",
		Environment: StageUAT,
		CreatedAt:   time.Now().UTC().Add(-100 * 24 * time.Hour),
		ExpiresAt:   time.Now().UTC().Add(-10 * 24 * time.Hour),
		Status:      KeyStatusActive,
	})

	meta, found, err := ms.GetStatus("SECRET_KEY_UAT")
	if err != nil {
		t.Fatalf("get status failed: %v", err)
	}
	if !found {
		t.Fatal("expected key to be found")
	}
	if meta.Status != KeyStatusExpired {
		t.Errorf("expected derived status expired, got %s", meta.Status)
	}

	_, found, err = ms.GetStatus("NO_SUCH_KEY")
	if err != nil {
		t.Fatalf("get status of unknown key failed: %v", err)
	}
	if found {
		t.Error("unknown key reported as found")
	}
}

func testStatusScans(t *testing.T) {
	ms, backend, _ := newTestMetadataStore()
	now := time.Now().UTC()

	seedMetadata(t, backend,
		SecretKeyMetadata{KeyName: "EXPIRED", Environment: StageDev, CreatedAt: now, ExpiresAt: now.Add(-24 * time.Hour)},
		SecretKeyMetadata{KeyName: "SOON", Environment: StageDev, CreatedAt: now, ExpiresAt: now.Add(3 * 24 * time.Hour)},
		SecretKeyMetadata{KeyName: "HEALTHY", Environment: StageDev, CreatedAt: now, ExpiresAt: now.Add(60 * 24 * time.Hour)},
	)

	expired, err := ms.KeysNeedingRotation()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(expired) != 1 || expired[0].KeyName != "EXPIRED" {
		t.Errorf("expected exactly the expired key, got %+v", expired)
	}

	soon, err := ms.KeysExpiringSoon()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(soon) != 1 || soon[0].KeyName != "SOON" {
		t.Errorf("expected exactly the expiring-soon key, got %+v", soon)
	}

	all, err := ms.All()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 tracked keys, got %d", len(all))
	}
}

func testUntrackAlwaysAudits(t *testing.T) {
	ms, _, logger := newTestMetadataStore()

	if _, err := ms.Track("SECRET_KEY_DEV", StageDev, TrackOptions{RotationDays: 90}); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	if err := ms.Untrack("SECRET_KEY_DEV"); err != nil {
		t.Fatalf("untrack failed: %v", err)
	}
	if _, found, _ := ms.GetStatus("SECRET_KEY_DEV"); found {
		t.Error("key still present after untrack")
	}

	// Untracking an unknown key succeeds but leaves a warning record.
	if err := ms.Untrack("NO_SUCH_KEY"); err != nil {
		t.Fatalf("untrack of unknown key failed: %v", err)
	}

	entries, err := logger.Query(audit.QueryOptions{Action: audit.ActionDelete})
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 delete audit records, got %d", len(entries))
	}
	// Newest first: the warning for the unknown key is at the head.
	if entries[0].Status != audit.StatusWarning || entries[0].KeyName != "NO_SUCH_KEY" {
		t.Errorf("expected warning for unknown key first, got %+v", entries[0])
	}
	if entries[1].Status != audit.StatusSuccess {
		t.Errorf("expected success record for real untrack, got %+v", entries[1])
	}
}
