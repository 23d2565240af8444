package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
)

type stubEventRepo struct {
	inserted     []domain.ChangeEvent
	batches      [][]domain.ChangeEvent
	latest       *domain.ChangeEvent
	insertErr    error
	latestErr    error
	latestCalled int
}

func (s *stubEventRepo) Insert(_ context.Context, event domain.ChangeEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, event)
	return nil
}

func (s *stubEventRepo) InsertBatch(_ context.Context, events []domain.ChangeEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.batches = append(s.batches, events)
	return nil
}

func (s *stubEventRepo) Latest(_ context.Context, _ uuid.UUID, _ string, _ uuid.UUID, _ string) (*domain.ChangeEvent, error) {
	s.latestCalled++
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	return s.latest, nil
}

func (s *stubEventRepo) ListByEntity(_ context.Context, _ uuid.UUID, _ string, _ uuid.UUID, _ int, _ int) ([]domain.ChangeEvent, error) {
	return s.inserted, nil
}

type stubProfileRepo struct {
	names map[uuid.UUID]string
	err   error
}

func (s *stubProfileRepo) DisplayName(_ context.Context, id uuid.UUID) (*string, error) {
	if s.err != nil {
		return nil, s.err
	}
	name, ok := s.names[id]
	if !ok {
		return nil, nil
	}
	return &name, nil
}

func (s *stubProfileRepo) ByExternalID(_ context.Context, _ string) (*uuid.UUID, error) {
	return nil, nil
}

func newTestService(events *stubEventRepo, profiles *stubProfileRepo) *Service {
	svc := NewService(events, profiles)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func testContext() ChangeContext {
	actor := uuid.New()
	return ChangeContext{
		OrganizationID: uuid.New(),
		ActorID:        &actor,
		CorrelationID:  uuid.New(),
	}
}

func TestRecordEntityCreatedWritesLifecycleEvent(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	cc := testContext()
	entityID := uuid.New()

	svc.RecordEntityCreated(context.Background(), "candidate", entityID, cc, CreatedOptions{
		EntityName:    "Jane Doe",
		InitialStatus: "active",
	})

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.inserted))
	}
	event := repo.inserted[0]
	if event.Category != domain.ChangeCategoryCustom {
		t.Fatalf("expected custom category, got %s", event.Category)
	}
	if event.FieldName != "lifecycle" {
		t.Fatalf("expected lifecycle field, got %s", event.FieldName)
	}
	if event.NewValue == nil || *event.NewValue != "created" {
		t.Fatalf("expected new value created, got %v", event.NewValue)
	}
	if event.OldValue != nil {
		t.Fatalf("expected nil old value, got %v", *event.OldValue)
	}
	if event.NewValueLabel == nil || *event.NewValueLabel != `Candidate "Jane Doe" created` {
		t.Fatalf("unexpected label: %v", event.NewValueLabel)
	}
	if event.Metadata["initial_status"] != "active" {
		t.Fatalf("expected initial_status in metadata, got %v", event.Metadata)
	}
	if event.OrganizationID != cc.OrganizationID || event.EntityID != entityID {
		t.Fatalf("event not scoped to caller: %+v", event)
	}
}

func TestRecordEntityCreatedLeavesCallerMetadataUntouched(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	metadata := domain.Metadata{"source": "import"}

	svc.RecordEntityCreated(context.Background(), "candidate", uuid.New(), testContext(), CreatedOptions{
		InitialStatus: "active",
		Metadata:      metadata,
	})

	if _, ok := metadata["initial_status"]; ok {
		t.Fatalf("caller metadata was mutated: %v", metadata)
	}
	event := repo.inserted[0]
	if event.Metadata["initial_status"] != "active" || event.Metadata["source"] != "import" {
		t.Fatalf("event metadata incomplete: %v", event.Metadata)
	}
}

func TestRecordStatusChangeComputesDurationAndLabels(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	prior := &domain.ChangeEvent{OccurredAt: now.Add(-3 * 24 * time.Hour)}
	repo := &stubEventRepo{latest: prior}
	svc := newTestService(repo, &stubProfileRepo{})

	svc.RecordStatusChange(context.Background(), "job", uuid.New(), "open", "filled", testContext(), ChangeOptions{})

	if repo.latestCalled != 1 {
		t.Fatalf("expected exactly one prior-event lookup, got %d", repo.latestCalled)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.inserted))
	}
	event := repo.inserted[0]
	if event.Category != domain.ChangeCategoryStatus {
		t.Fatalf("expected status_change, got %s", event.Category)
	}
	if event.DurationInPrevState == nil || *event.DurationInPrevState != "3 days" {
		t.Fatalf("unexpected duration: %v", event.DurationInPrevState)
	}
	if event.OldValueLabel == nil || *event.OldValueLabel != "Open" {
		t.Fatalf("expected configured label Open, got %v", event.OldValueLabel)
	}
	if event.NewValueLabel == nil || *event.NewValueLabel != "Filled" {
		t.Fatalf("expected configured label Filled, got %v", event.NewValueLabel)
	}
}

func TestRecordStatusChangeNoPriorEventLeavesDurationNil(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	svc.RecordStatusChange(context.Background(), "job", uuid.New(), "draft", "open", testContext(), ChangeOptions{})

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.inserted))
	}
	if repo.inserted[0].DurationInPrevState != nil {
		t.Fatalf("expected nil duration, got %v", *repo.inserted[0].DurationInPrevState)
	}
}

func TestRecordStatusChangeFallsBackToRawValueLabel(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	svc.RecordStatusChange(context.Background(), "job", uuid.New(), "open", "on_hold_custom", testContext(), ChangeOptions{})

	event := repo.inserted[0]
	if event.NewValueLabel == nil || *event.NewValueLabel != "on_hold_custom" {
		t.Fatalf("expected raw fallback label, got %v", event.NewValueLabel)
	}
}

func TestRecordOwnerChangeResolvesDisplayNames(t *testing.T) {
	oldOwner := uuid.New()
	newOwner := uuid.New()
	profiles := &stubProfileRepo{names: map[uuid.UUID]string{
		oldOwner: "Alice Smith",
		newOwner: "Bob Jones",
	}}
	repo := &stubEventRepo{}
	svc := newTestService(repo, profiles)

	svc.RecordOwnerChange(context.Background(), "account", uuid.New(), &oldOwner, &newOwner, testContext(), ChangeOptions{})

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.inserted))
	}
	event := repo.inserted[0]
	if event.Category != domain.ChangeCategoryOwner {
		t.Fatalf("expected owner_change, got %s", event.Category)
	}
	if event.OldValueLabel == nil || *event.OldValueLabel != "Alice Smith" {
		t.Fatalf("unexpected old label: %v", event.OldValueLabel)
	}
	if event.NewValueLabel == nil || *event.NewValueLabel != "Bob Jones" {
		t.Fatalf("unexpected new label: %v", event.NewValueLabel)
	}
	if event.OldValue == nil || *event.OldValue != oldOwner.String() {
		t.Fatalf("unexpected old value: %v", event.OldValue)
	}
}

func TestRecordOwnerChangeMissingProfileYieldsNilLabel(t *testing.T) {
	unknown := uuid.New()
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	svc.RecordOwnerChange(context.Background(), "account", uuid.New(), nil, &unknown, testContext(), ChangeOptions{})

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event despite missing profile, got %d", len(repo.inserted))
	}
	event := repo.inserted[0]
	if event.NewValueLabel != nil {
		t.Fatalf("expected nil label for unknown profile, got %v", *event.NewValueLabel)
	}
	if event.OldValue != nil {
		t.Fatalf("expected nil old value for nil owner, got %v", *event.OldValue)
	}
}

func TestRecordRelatedObjectEvents(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	cc := testContext()
	entityID := uuid.New()
	related := domain.RelatedEntity{Type: "note", ID: uuid.New(), Label: "Call summary"}

	svc.RecordRelatedObjectAdded(context.Background(), "contact", entityID, related, cc)
	svc.RecordRelatedObjectUpdated(context.Background(), "contact", entityID, related, cc)
	svc.RecordRelatedObjectRemoved(context.Background(), "contact", entityID, related, cc)

	if len(repo.inserted) != 3 {
		t.Fatalf("expected 3 events, got %d", len(repo.inserted))
	}

	added, updated, removed := repo.inserted[0], repo.inserted[1], repo.inserted[2]
	for i, event := range repo.inserted {
		if event.FieldName != "related_objects" {
			t.Fatalf("event %d: expected related_objects field, got %s", i, event.FieldName)
		}
		if event.RelatedEntity == nil || event.RelatedEntity.ID != related.ID {
			t.Fatalf("event %d: related entity not carried", i)
		}
	}
	if added.OldValue != nil || added.NewValue == nil || *added.NewValue != "note" {
		t.Fatalf("unexpected added values: %v %v", added.OldValue, added.NewValue)
	}
	if updated.OldValue == nil || updated.NewValue == nil || *updated.OldValue != "note" || *updated.NewValue != "note" {
		t.Fatalf("unexpected updated values: %v %v", updated.OldValue, updated.NewValue)
	}
	if removed.NewValue != nil || removed.OldValue == nil || *removed.OldValue != "note" {
		t.Fatalf("unexpected removed values: %v %v", removed.OldValue, removed.NewValue)
	}
}

// A single-field call on an unconfigured field still records, under category
// custom. The batch diff skips such fields entirely; both behaviors are
// intentional.
func TestRecordFieldChangeUnconfiguredFieldRecordsAsCustom(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	oldValue, newValue := "a", "b"

	svc.RecordFieldChange(context.Background(), "candidate", uuid.New(), "nickname", &oldValue, &newValue, testContext(), ChangeOptions{})

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.inserted))
	}
	event := repo.inserted[0]
	if event.Category != domain.ChangeCategoryCustom {
		t.Fatalf("expected custom category for unconfigured field, got %s", event.Category)
	}
	if event.NewValueLabel == nil || *event.NewValueLabel != "b" {
		t.Fatalf("expected raw fallback label, got %v", event.NewValueLabel)
	}
}

func TestRecordFieldChangeConfiguredFieldUsesRuleCategory(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	oldValue, newValue := "open", "filled"

	svc.RecordFieldChange(context.Background(), "job", uuid.New(), "status", &oldValue, &newValue, testContext(), ChangeOptions{})

	event := repo.inserted[0]
	if event.Category != domain.ChangeCategoryStatus {
		t.Fatalf("expected status_change from tracking rule, got %s", event.Category)
	}
}

func TestRecordFieldChangeSensitiveFieldWritesNothing(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	oldValue, newValue := "100", "150"

	svc.RecordFieldChange(context.Background(), "job", uuid.New(), "billing_rate", &oldValue, &newValue, testContext(), ChangeOptions{})

	if len(repo.inserted) != 0 {
		t.Fatalf("sensitive field must never be recorded, got %d event(s)", len(repo.inserted))
	}
}

func TestDetectAndRecordChangesBatchesQualifyingFields(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	cc := testContext()

	before := map[string]any{
		"status":      "open",
		"remote_type": "onsite",
		"priority":    "low",
	}
	after := map[string]any{
		"status":      "filled",
		"remote_type": "onsite",
		"priority":    "high",
	}

	svc.DetectAndRecordChanges(context.Background(), "job", uuid.New(), before, after, cc, DiffOptions{})

	if len(repo.inserted) != 0 {
		t.Fatalf("diff must use batch insert, got %d single inserts", len(repo.inserted))
	}
	if len(repo.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(repo.batches))
	}
	batch := repo.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 events (status, priority), got %d", len(batch))
	}
	byField := map[string]domain.ChangeEvent{}
	for _, event := range batch {
		byField[event.FieldName] = event
	}
	if _, ok := byField["status"]; !ok {
		t.Fatalf("expected status event in batch")
	}
	if _, ok := byField["priority"]; !ok {
		t.Fatalf("expected priority event in batch")
	}
}

func TestDetectAndRecordChangesSkipsSensitiveFields(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	before := map[string]any{"billing_rate": "100", "status": "open"}
	after := map[string]any{"billing_rate": "150", "status": "open"}

	svc.DetectAndRecordChanges(context.Background(), "job", uuid.New(), before, after, testContext(), DiffOptions{})

	if len(repo.batches) != 0 {
		t.Fatalf("sensitive-only diff must write nothing, got %d batches", len(repo.batches))
	}
}

func TestDetectAndRecordChangesSkipsUnconfiguredEvenWhenListed(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	before := map[string]any{"nickname": "a"}
	after := map[string]any{"nickname": "b"}

	svc.DetectAndRecordChanges(context.Background(), "candidate", uuid.New(), before, after, testContext(), DiffOptions{
		FieldsToTrack: []string{"nickname"},
	})

	if len(repo.batches) != 0 {
		t.Fatalf("unconfigured field must be skipped by the batch diff, got %d batches", len(repo.batches))
	}
}

func TestDetectAndRecordChangesZeroDiffWritesNothing(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	snapshot := map[string]any{"status": "open", "priority": "low"}

	svc.DetectAndRecordChanges(context.Background(), "job", uuid.New(), snapshot, snapshot, testContext(), DiffOptions{})

	if len(repo.batches) != 0 || len(repo.inserted) != 0 {
		t.Fatalf("identical snapshots must produce zero writes")
	}
}

func TestDetectAndRecordChangesNilEquivalence(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})

	// Both absent and explicit nil count as "no value"; empty string does not.
	before := map[string]any{"status": nil, "priority": nil}
	after := map[string]any{"priority": ""}

	svc.DetectAndRecordChanges(context.Background(), "job", uuid.New(), before, after, testContext(), DiffOptions{})

	if len(repo.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(repo.batches))
	}
	batch := repo.batches[0]
	if len(batch) != 1 || batch[0].FieldName != "priority" {
		t.Fatalf("expected only priority (nil -> empty string) to qualify, got %+v", batch)
	}
	if batch[0].OldValue != nil {
		t.Fatalf("expected nil old value, got %v", *batch[0].OldValue)
	}
}

func TestWriteFailuresNeverPropagate(t *testing.T) {
	repo := &stubEventRepo{insertErr: errors.New("connection refused")}
	svc := newTestService(repo, &stubProfileRepo{})
	cc := testContext()
	entityID := uuid.New()

	// None of these may panic or surface the repository error.
	svc.RecordEntityCreated(context.Background(), "candidate", entityID, cc, CreatedOptions{})
	svc.RecordStatusChange(context.Background(), "job", entityID, "open", "filled", cc, ChangeOptions{})
	svc.RecordOwnerChange(context.Background(), "account", entityID, nil, nil, cc, ChangeOptions{})
	svc.RecordFieldChange(context.Background(), "job", entityID, "status", nil, nil, cc, ChangeOptions{})
	svc.DetectAndRecordChanges(context.Background(), "job", entityID,
		map[string]any{"status": "open"}, map[string]any{"status": "filled"}, cc, DiffOptions{})
}

func TestStatusLookupFailureSuppressed(t *testing.T) {
	repo := &stubEventRepo{latestErr: errors.New("timeout")}
	svc := newTestService(repo, &stubProfileRepo{})

	svc.RecordStatusChange(context.Background(), "job", uuid.New(), "open", "filled", testContext(), ChangeOptions{})

	if len(repo.inserted) != 0 {
		t.Fatalf("failed attempt should not have written, got %d events", len(repo.inserted))
	}
}

func TestFormatDurationCoarse(t *testing.T) {
	cases := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"seconds", 45 * time.Second, "less than an hour"},
		{"just under an hour", 59 * time.Minute, "less than an hour"},
		{"one hour", time.Hour, "1 hour"},
		{"several hours", 5*time.Hour + 30*time.Minute, "5 hours"},
		{"just under a day", 23 * time.Hour, "23 hours"},
		{"one day", 24 * time.Hour, "1 day"},
		{"several days", 80 * time.Hour, "3 days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatDurationCoarse(tc.in); got != tc.want {
				t.Fatalf("FormatDurationCoarse(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAutomatedContextWithoutActor(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestService(repo, &stubProfileRepo{})
	cc := ChangeContext{OrganizationID: uuid.New()}

	svc.RecordEntityCreated(context.Background(), "placement", uuid.New(), cc, CreatedOptions{})

	event := repo.inserted[0]
	if !event.Automated {
		t.Fatalf("actorless context must mark the event automated")
	}
	if event.CorrelationID == uuid.Nil {
		t.Fatalf("correlation id must be generated when absent")
	}
}
