package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/blacklist"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

type fakePolicyStore struct {
	policies map[uuid.UUID]*models.Policy
	statuses []models.PolicyStatus
}

func (s *fakePolicyStore) GetByID(ec *authctx.ExecutionContext, policyID uuid.UUID) (*models.Policy, error) {
	policy, ok := s.policies[policyID]
	if !ok || policy.TenantID != ec.TenantID || policy.Status == models.StatusDeleted {
		return nil, apperr.NotFound("policy not found")
	}
	copied := *policy
	return &copied, nil
}

func (s *fakePolicyStore) GetByIDAnyStatus(ec *authctx.ExecutionContext, policyID uuid.UUID) (*models.Policy, error) {
	policy, ok := s.policies[policyID]
	if !ok || policy.TenantID != ec.TenantID {
		return nil, apperr.NotFound("policy not found")
	}
	copied := *policy
	return &copied, nil
}

func (s *fakePolicyStore) ListAll(ec *authctx.ExecutionContext) ([]models.Policy, error) {
	var out []models.Policy
	for _, p := range s.policies {
		if p.TenantID == ec.TenantID && p.Status != models.StatusDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakePolicyStore) SetStatus(ec *authctx.ExecutionContext, policyID uuid.UUID, status models.PolicyStatus) error {
	policy, ok := s.policies[policyID]
	if !ok || policy.TenantID != ec.TenantID || policy.Status == models.StatusDeleted {
		return apperr.NotFound("policy not found")
	}
	policy.Status = status
	s.statuses = append(s.statuses, status)
	return nil
}

type fakeIndex struct {
	saved   []*models.Policy
	deleted []uuid.UUID
}

func (f *fakeIndex) SaveRules(ec *authctx.ExecutionContext, policy *models.Policy) error {
	f.saved = append(f.saved, policy)
	return nil
}

func (f *fakeIndex) DeleteRules(ec *authctx.ExecutionContext, policyID, tenantID uuid.UUID) error {
	f.deleted = append(f.deleted, policyID)
	return nil
}

type fakeBlacklist struct {
	cidrs []string
	calls int
}

func (f *fakeBlacklist) IsBlacklisted(ctx context.Context, tenantID uuid.UUID, ip string) bool {
	f.calls++
	for _, cidr := range f.cidrs {
		if blacklist.IPInCIDR(ip, cidr) {
			return true
		}
	}
	return false
}

type fakePublisher struct {
	err   error
	calls int
}

func (f *fakePublisher) Publish(ctx context.Context, policy *models.Policy, eventType types.EventType) error {
	f.calls++
	return f.err
}

type engineFixture struct {
	engine    *Engine
	store     *fakePolicyStore
	index     *fakeIndex
	blacklist *fakeBlacklist
	publisher *fakePublisher
	tenantID  uuid.UUID
	policy    *models.Policy
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	policy := validPolicy()
	store := &fakePolicyStore{policies: map[uuid.UUID]*models.Policy{policy.ID: policy}}
	index := &fakeIndex{}
	bl := &fakeBlacklist{}
	pub := &fakePublisher{}
	engine := NewEngine(store, index, bl, pub, zap.NewNop(),
		noop.NewTracerProvider().Tracer("test"), time.Second)
	return &engineFixture{
		engine:    engine,
		store:     store,
		index:     index,
		blacklist: bl,
		publisher: pub,
		tenantID:  policy.TenantID,
		policy:    policy,
	}
}

func (f *engineFixture) envelope(eventType types.EventType) *types.EventEnvelope {
	return &types.EventEnvelope{
		EventType:   eventType,
		PolicyID:    f.policy.ID.String(),
		TenantID:    f.tenantID.String(),
		Timestamp:   time.Now().UTC(),
		TriggeredBy: "tester",
	}
}

func TestEngineCreatePublishesAndIndexes(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventCreate)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.policy.Status != models.StatusPublished {
		t.Fatalf("expected published status, got %s", f.policy.Status)
	}
	if f.publisher.calls != 1 {
		t.Fatalf("expected 1 publish call, got %d", f.publisher.calls)
	}
	if len(f.index.saved) != 1 {
		t.Fatalf("expected 1 SaveRules call, got %d", len(f.index.saved))
	}
	if got := f.index.saved[0].Rules[0].Source.Identifier(); got != "alice" {
		t.Fatalf("expected indexed source alice, got %s", got)
	}
}

func TestEngineBlacklistGateSkipsSilently(t *testing.T) {
	f := newFixture(t)
	f.policy.Rules[0].Source = models.RuleSource{IP: "10.5.5.5"}
	f.blacklist.cidrs = []string{"10.0.0.0/8"}

	err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventCreate))
	if err != nil {
		t.Fatalf("blacklist skip must not be an error, got %v", err)
	}
	if f.policy.Status != models.StatusDraft {
		t.Fatalf("expected status unchanged, got %s", f.policy.Status)
	}
	if f.publisher.calls != 0 {
		t.Fatal("publish must not run for a blacklisted policy")
	}
	if len(f.index.saved) != 0 {
		t.Fatal("index must not be written for a blacklisted policy")
	}
}

func TestEngineDeleteSkipsGate(t *testing.T) {
	f := newFixture(t)
	f.blacklist.cidrs = []string{"0.0.0.0/0"}

	if err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventDelete)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.blacklist.calls != 0 {
		t.Fatal("delete events have no content, the gate must not run")
	}
	if f.policy.Status != models.StatusDeleted {
		t.Fatalf("expected deleted status, got %s", f.policy.Status)
	}
	if len(f.index.deleted) != 1 || f.index.deleted[0] != f.policy.ID {
		t.Fatalf("expected index entries deleted for %s", f.policy.ID)
	}
}

func TestEngineDeleteAfterSoftDelete(t *testing.T) {
	// The API soft-deletes the record before emitting the event, so the
	// worker always sees the policy already in deleted status.
	f := newFixture(t)
	f.policy.Status = models.StatusDeleted

	if err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventDelete)); err != nil {
		t.Fatalf("delete event on a soft-deleted policy must be consumed, got %v", err)
	}
	if len(f.index.deleted) != 1 || f.index.deleted[0] != f.policy.ID {
		t.Fatalf("expected index entries deleted for %s, got %v", f.policy.ID, f.index.deleted)
	}
	if f.publisher.calls != 1 {
		t.Fatalf("expected 1 enforcement publish for the removal, got %d", f.publisher.calls)
	}
	if len(f.store.statuses) != 0 {
		t.Fatalf("status is already terminal, no write expected, got %v", f.store.statuses)
	}
	if f.blacklist.calls != 0 {
		t.Fatal("delete events have no content, the gate must not run")
	}
}

func TestEngineValidationFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.policy.Name = ""

	err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventCreate))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if f.publisher.calls != 0 {
		t.Fatal("publish must not run after failed validation")
	}
	if f.policy.Status != models.StatusDraft {
		t.Fatalf("expected status to stay draft, got %s", f.policy.Status)
	}
}

func TestEngineCreatePublishFailureRevertsToDraft(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("enforcement system unreachable")

	err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventCreate))
	if err == nil {
		t.Fatal("expected publish error to propagate")
	}
	if f.policy.Status != models.StatusDraft {
		t.Fatalf("expected revert to draft, got %s", f.policy.Status)
	}
	if len(f.index.saved) != 0 {
		t.Fatal("index must not be written after failed publish")
	}
}

func TestEngineUpdatePublishFailureDoesNotRevert(t *testing.T) {
	f := newFixture(t)
	f.policy.Status = models.StatusPublished
	f.publisher.err = errors.New("enforcement system unreachable")

	err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventUpdate))
	if err == nil {
		t.Fatal("expected publish error to propagate")
	}
	if f.policy.Status != models.StatusPublished {
		t.Fatalf("expected status untouched, got %s", f.policy.Status)
	}
}

func TestEngineUpdateOnPublishedKeepsStatus(t *testing.T) {
	f := newFixture(t)
	f.policy.Status = models.StatusPublished

	if err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventUpdate)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.policy.Status != models.StatusPublished {
		t.Fatalf("expected published to stay published, got %s", f.policy.Status)
	}
	if len(f.index.saved) != 1 {
		t.Fatalf("expected index rebuild on update, got %d", len(f.index.saved))
	}
}

func TestEngineUpdateOnDeletedFails(t *testing.T) {
	f := newFixture(t)
	f.policy.Status = models.StatusDeleted

	err := f.engine.ProcessEvent(context.Background(), f.envelope(types.EventUpdate))
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for deleted policy, got %v", err)
	}
}

func TestEngineTenantIsolation(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(types.EventCreate)
	env.TenantID = uuid.NewString() // someone else's tenant

	err := f.engine.ProcessEvent(context.Background(), env)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFoundError across tenants, got %v", err)
	}
	if f.publisher.calls != 0 || len(f.index.saved) != 0 {
		t.Fatal("no processing may happen for a foreign tenant")
	}
}

func TestEngineIdempotentUnderRedelivery(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(types.EventCreate)

	if err := f.engine.ProcessEvent(context.Background(), env); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.engine.ProcessEvent(context.Background(), env); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if f.policy.Status != models.StatusPublished {
		t.Fatalf("expected converged published status, got %s", f.policy.Status)
	}
	if len(f.index.saved) != 2 {
		t.Fatalf("expected idempotent overwrite on redelivery, got %d saves", len(f.index.saved))
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		current models.PolicyStatus
		event   types.EventType
		want    models.PolicyStatus
	}{
		{models.StatusDraft, types.EventCreate, models.StatusPublished},
		{models.StatusDraft, types.EventUpdate, models.StatusPublished},
		{models.StatusPublished, types.EventUpdate, models.StatusPublished},
		{models.StatusDraft, types.EventDelete, models.StatusDeleted},
		{models.StatusPublished, types.EventDelete, models.StatusDeleted},
	}
	for _, tt := range tests {
		if got := nextStatus(tt.current, tt.event); got != tt.want {
			t.Fatalf("nextStatus(%s, %s) = %s, want %s", tt.current, tt.event, got, tt.want)
		}
	}
}
