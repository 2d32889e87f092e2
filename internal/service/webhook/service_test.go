package webhook

import (
	"context"
	"testing"
	"time"

	"gitwallet-service/internal/domain/billing"
	"gitwallet-service/internal/domain/organization"
	"gitwallet-service/internal/domain/payment"
	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeEvents map[payment.EventKey]bool

func (f fakeEvents) Seen(_ context.Context, key payment.EventKey) (bool, error) { return f[key], nil }

func (f fakeEvents) Mark(_ context.Context, key payment.EventKey) error {
	f[key] = true
	return nil
}

type fakeSubs struct {
	subs    map[string]*subscription.Subscription
	updates int
}

func (f *fakeSubs) FindByExternalRef(_ context.Context, ref string) (*subscription.Subscription, error) {
	for _, s := range f.subs {
		if s.ExternalRef == ref {
			cp := *s
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeSubs) UpdateLifecycle(_ context.Context, s *subscription.Subscription, expected subscription.State) error {
	if f.subs[s.ID].State != expected {
		return xerrors.ErrConflict
	}
	f.updates++
	cp := *s
	f.subs[s.ID] = &cp
	return nil
}

type fakeOrgs struct {
	org *organization.Organization
}

func (f *fakeOrgs) FindByID(_ context.Context, id string) (*organization.Organization, error) {
	if f.org.ID != id {
		return nil, xerrors.ErrNotFound
	}
	return f.org, nil
}

func (f *fakeOrgs) FindByPlatformSubscriptionID(_ context.Context, subID string) (*organization.Organization, error) {
	if f.org.PlatformSubscriptionID != subID {
		return nil, xerrors.ErrNotFound
	}
	cp := *f.org
	return &cp, nil
}

func (f *fakeOrgs) UpdatePlatformBilling(_ context.Context, _, status, planID string, at time.Time, terminal bool) (bool, error) {
	if last := f.org.BillingUpdatedAt; !terminal && last != nil {
		if at.Before(*last) || (at.Equal(*last) && f.org.PlatformSubscriptionStatus == "canceled") {
			return false, nil
		}
	}
	f.org.PlatformSubscriptionStatus = status
	if planID != "" {
		f.org.PlatformPlanID = planID
	}
	if f.org.BillingUpdatedAt == nil || at.After(*f.org.BillingUpdatedAt) {
		f.org.BillingUpdatedAt = &at
	}
	return true, nil
}

type fakeTiers struct{}

func (fakeTiers) FindByID(_ context.Context, id string) (*tier.Tier, error) {
	return &tier.Tier{ID: id, Name: "Pro"}, nil
}

type fakeNotifier struct {
	cancelled int
	billing   []billing.SubscriptionInfo
}

func (f *fakeNotifier) SubscriptionCancelled(context.Context, *organization.Organization, string, *subscription.Subscription, time.Time) {
	f.cancelled++
}

func (f *fakeNotifier) BillingUpdated(_ string, info billing.SubscriptionInfo) {
	f.billing = append(f.billing, info)
}

var t0 = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *WebhookService
	events   fakeEvents
	subs     *fakeSubs
	orgs     *fakeOrgs
	notifier *fakeNotifier
}

func newFixture() *fixture {
	f := &fixture{
		events: fakeEvents{},
		subs: &fakeSubs{subs: map[string]*subscription.Subscription{
			"s1": {ID: "s1", OrganizationID: "org1", TierID: "t1", State: subscription.StateRenewing, ExternalRef: "sub_vendor"},
		}},
		orgs:     &fakeOrgs{org: &organization.Organization{ID: "org1", PlatformPlanID: "pro", PlatformSubscriptionID: "sub_platform"}},
		notifier: &fakeNotifier{},
	}
	f.svc = NewWebhookService(f.events, f.subs, f.orgs, fakeTiers{}, f.notifier, zap.NewNop())
	return f
}

func TestCancelAtPeriodEndKeepsAccess(t *testing.T) {
	f := newFixture()
	periodEnd := t0.Add(10 * 24 * time.Hour)

	err := f.svc.Apply(context.Background(), &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionUpdated,
		OccurredAt:             t0,
		Status:                 "active",
		CancelAtPeriodEnd:      true,
		CurrentPeriodEnd:       &periodEnd,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	s := f.subs.subs["s1"]
	if s.State != subscription.StateCancelled || !s.ActiveUntil.Equal(periodEnd) || !s.IsActive(t0.Add(time.Hour)) {
		t.Fatalf("subscription = %+v", s)
	}
	if f.notifier.cancelled != 1 {
		t.Fatalf("cancel notifications = %d, want 1", f.notifier.cancelled)
	}
}

func TestDuplicateEventAppliedOnce(t *testing.T) {
	f := newFixture()
	ev := &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionDeleted,
		OccurredAt:             t0,
		Status:                 "canceled",
	}

	for i := 0; i < 3; i++ {
		if err := f.svc.Apply(context.Background(), ev); err != nil {
			t.Fatalf("Apply() #%d error = %v", i, err)
		}
	}
	if f.subs.updates != 1 || f.notifier.cancelled != 1 {
		t.Fatalf("updates = %d notifications = %d, want 1 each", f.subs.updates, f.notifier.cancelled)
	}
}

func TestOutOfOrderEvents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	periodEnd := t0.Add(30 * 24 * time.Hour)

	// the deletion at t0+2h is delivered before the cancel-at-period-end at t0+1h
	deleted := &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionDeleted,
		OccurredAt:             t0.Add(2 * time.Hour),
		Status:                 "canceled",
	}
	updated := &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionUpdated,
		OccurredAt:             t0.Add(time.Hour),
		Status:                 "active",
		CancelAtPeriodEnd:      true,
		CurrentPeriodEnd:       &periodEnd,
	}

	if err := f.svc.Apply(ctx, deleted); err != nil {
		t.Fatalf("Apply(deleted) error = %v", err)
	}
	if err := f.svc.Apply(ctx, updated); err != nil {
		t.Fatalf("Apply(updated) error = %v", err)
	}

	s := f.subs.subs["s1"]
	if s.ActiveUntil != nil || s.IsActive(t0.Add(3*time.Hour)) {
		t.Fatalf("stale event extended access: %+v", s)
	}
	if !s.LastEventAt.Equal(deleted.OccurredAt) {
		t.Fatalf("last event at = %v, want %v", s.LastEventAt, deleted.OccurredAt)
	}
}

func TestDeletionInSameSecondAsUpdateEndsAccess(t *testing.T) {
	ctx := context.Background()
	periodEnd := t0.Add(30 * 24 * time.Hour)

	updated := &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionUpdated,
		OccurredAt:             t0,
		Status:                 "active",
		CancelAtPeriodEnd:      true,
		CurrentPeriodEnd:       &periodEnd,
	}
	deleted := &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionDeleted,
		OccurredAt:             t0,
		Status:                 "canceled",
	}

	tests := []struct {
		name  string
		order []*payment.StatusEvent
	}{
		{"update first", []*payment.StatusEvent{updated, deleted}},
		{"delete first", []*payment.StatusEvent{deleted, updated}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			for _, ev := range tt.order {
				if err := f.svc.Apply(ctx, ev); err != nil {
					t.Fatalf("Apply(%s) error = %v", ev.Type, err)
				}
			}

			s := f.subs.subs["s1"]
			if s.State != subscription.StateCancelled || s.IsActive(t0.Add(time.Hour)) {
				t.Fatalf("deleted subscription still entitled: %+v", s)
			}
			if !f.events[deleted.Key()] || !f.events[updated.Key()] {
				t.Fatal("both events should be recorded")
			}
		})
	}
}

func TestEarlierDeletionStillEndsAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	periodEnd := t0.Add(30 * 24 * time.Hour)

	// the cancel-at-period-end at t0+1h arrives before the deletion at t0
	err := f.svc.Apply(ctx, &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionUpdated,
		OccurredAt:             t0.Add(time.Hour),
		Status:                 "active",
		CancelAtPeriodEnd:      true,
		CurrentPeriodEnd:       &periodEnd,
	})
	if err != nil {
		t.Fatalf("Apply(updated) error = %v", err)
	}
	err = f.svc.Apply(ctx, &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionDeleted,
		OccurredAt:             t0,
		Status:                 "canceled",
	})
	if err != nil {
		t.Fatalf("Apply(deleted) error = %v", err)
	}

	s := f.subs.subs["s1"]
	if s.IsActive(t0.Add(2 * time.Hour)) {
		t.Fatalf("deletion ignored: %+v", s)
	}
	if !s.LastEventAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("last event at = %v, must not move backwards", s.LastEventAt)
	}
}

func TestDeletionNeverExtendsGrace(t *testing.T) {
	f := newFixture()
	until := t0.Add(time.Hour)
	cancelledAt := t0.Add(-time.Hour)
	s := f.subs.subs["s1"]
	s.State = subscription.StateCancelled
	s.CancelledAt = &cancelledAt
	s.ActiveUntil = &until

	err := f.svc.Apply(context.Background(), &payment.StatusEvent{
		ExternalSubscriptionID: "sub_vendor",
		Type:                   payment.EventSubscriptionDeleted,
		OccurredAt:             t0.Add(5 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := f.subs.subs["s1"].ActiveUntil; !got.Equal(until) {
		t.Fatalf("active until = %v, want %v", got, until)
	}
	if f.notifier.cancelled != 0 {
		t.Fatal("already cancelled subscription must not notify again")
	}
}

func TestPlatformBillingEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.svc.Apply(ctx, &payment.StatusEvent{
		ExternalSubscriptionID: "sub_platform",
		Type:                   payment.EventSubscriptionUpdated,
		OccurredAt:             t0,
		Status:                 "past_due",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if f.orgs.org.PlatformSubscriptionStatus != "past_due" || len(f.notifier.billing) != 1 {
		t.Fatalf("org = %+v, billing pushes = %d", f.orgs.org, len(f.notifier.billing))
	}
	if info := f.notifier.billing[0]; info.CurrentPlanName != "Pro" || info.StatusType != billing.StatusSecondary {
		t.Fatalf("info = %+v", info)
	}

	// an older event arriving late is ignored
	err = f.svc.Apply(ctx, &payment.StatusEvent{
		ExternalSubscriptionID: "sub_platform",
		Type:                   payment.EventSubscriptionUpdated,
		OccurredAt:             t0.Add(-time.Minute),
		Status:                 "active",
	})
	if err != nil {
		t.Fatalf("Apply(stale) error = %v", err)
	}
	if f.orgs.org.PlatformSubscriptionStatus != "past_due" || len(f.notifier.billing) != 1 {
		t.Fatal("stale platform event must not change billing")
	}
}

func TestPlatformDeletionInSameSecondApplies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, ev := range []*payment.StatusEvent{
		{ExternalSubscriptionID: "sub_platform", Type: payment.EventSubscriptionUpdated, OccurredAt: t0, Status: "active"},
		{ExternalSubscriptionID: "sub_platform", Type: payment.EventSubscriptionDeleted, OccurredAt: t0, Status: "canceled"},
		{ExternalSubscriptionID: "sub_platform", Type: payment.EventSubscriptionUpdated, OccurredAt: t0, Status: "past_due"},
	} {
		if err := f.svc.Apply(ctx, ev); err != nil {
			t.Fatalf("Apply(%s) error = %v", ev.Type, err)
		}
	}

	if got := f.orgs.org.PlatformSubscriptionStatus; got != "canceled" {
		t.Fatalf("platform status = %q, want canceled", got)
	}
}

func TestUnknownSubscriptionIsAcknowledged(t *testing.T) {
	f := newFixture()
	ev := &payment.StatusEvent{ExternalSubscriptionID: "sub_unknown", Type: payment.EventSubscriptionUpdated, OccurredAt: t0}

	if err := f.svc.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !f.events[ev.Key()] {
		t.Fatal("unknown subscription event should still be marked")
	}
}
