package tier

import (
	"context"
	"errors"
	"testing"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeRepo struct {
	tiers map[string]*tier.Tier
	refs  map[string]tier.References
	seq   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tiers: map[string]*tier.Tier{}, refs: map[string]tier.References{}}
}

func (f *fakeRepo) Create(_ context.Context, t *tier.Tier) error {
	f.seq++
	t.ID = "tier-" + string(rune('0'+f.seq))
	cp := *t
	f.tiers[t.ID] = &cp
	return nil
}

func (f *fakeRepo) Update(_ context.Context, t *tier.Tier) error {
	if _, ok := f.tiers[t.ID]; !ok {
		return xerrors.ErrNotFound
	}
	cp := *t
	f.tiers[t.ID] = &cp
	return nil
}

func (f *fakeRepo) SetPublished(_ context.Context, orgID, id string, published bool) error {
	t, ok := f.tiers[id]
	if !ok || t.OrganizationID != orgID {
		return xerrors.ErrNotFound
	}
	t.Published = published
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*tier.Tier, error) {
	t, ok := f.tiers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) ListByOrganization(_ context.Context, orgID string, publishedOnly bool) ([]tier.Tier, error) {
	var out []tier.Tier
	for _, t := range f.tiers {
		if t.OrganizationID == orgID && (!publishedOnly || t.Published) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountReferences(_ context.Context, id string) (tier.References, error) {
	return f.refs[id], nil
}

func (f *fakeRepo) Delete(_ context.Context, orgID, id string) error {
	t, ok := f.tiers[id]
	if !ok || t.OrganizationID != orgID {
		return xerrors.ErrNotFound
	}
	delete(f.tiers, id)
	return nil
}

var vendor = identity.Actor{UserID: "u1", OrganizationID: "org1", Roles: []string{"vendor"}}

func createTier(t *testing.T, svc *TierService, req *tier.CreateTierRequest) *tier.SaveResult {
	t.Helper()
	res, err := svc.CreateTier(context.Background(), vendor, req)
	if err != nil {
		t.Fatalf("CreateTier() error = %v", err)
	}
	return res
}

func TestCreateTier(t *testing.T) {
	svc := NewTierService(newFakeRepo(), "USD", zap.NewNop())
	annual := int64(40000)

	res := createTier(t, svc, &tier.CreateTierRequest{
		Name:         "  <b>Pro</b> support ",
		Features:     []string{"Email support", "<i>SLA</i>"},
		Price:        2900,
		PriceAnnual:  &annual,
		Cadence:      tier.CadenceMonth,
		CheckoutType: tier.CheckoutDirectPayment,
	})

	if res.Tier.Name != "Pro support" {
		t.Errorf("name = %q, want markup stripped", res.Tier.Name)
	}
	if res.Tier.Features[1] != "SLA" {
		t.Errorf("feature = %q, want SLA", res.Tier.Features[1])
	}
	if res.Tier.Currency != "usd" {
		t.Errorf("currency = %q, want default usd", res.Tier.Currency)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want one annual price warning", res.Warnings)
	}
}

func TestCreateTierRejectsInvalidInput(t *testing.T) {
	svc := NewTierService(newFakeRepo(), "usd", zap.NewNop())

	_, err := svc.CreateTier(context.Background(), vendor, &tier.CreateTierRequest{
		Name:         "Pro",
		Price:        -1,
		Cadence:      tier.CadenceMonth,
		CheckoutType: tier.CheckoutDirectPayment,
	})
	if xerrors.KindOf(err) != xerrors.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateTierRequiresVendor(t *testing.T) {
	svc := NewTierService(newFakeRepo(), "usd", zap.NewNop())
	buyer := identity.Actor{UserID: "b1"}

	_, err := svc.CreateTier(context.Background(), buyer, &tier.CreateTierRequest{Name: "x"})
	if !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestUpdateTierClearsAnnualPrice(t *testing.T) {
	svc := NewTierService(newFakeRepo(), "usd", zap.NewNop())
	annual := int64(29000)
	res := createTier(t, svc, &tier.CreateTierRequest{
		Name: "Pro", Price: 2900, PriceAnnual: &annual,
		Cadence: tier.CadenceMonth, CheckoutType: tier.CheckoutDirectPayment,
	})

	updated, err := svc.UpdateTier(context.Background(), vendor, res.Tier.ID, &tier.UpdateTierRequest{ClearAnnual: true})
	if err != nil {
		t.Fatalf("UpdateTier() error = %v", err)
	}
	if updated.Tier.PriceAnnual != nil {
		t.Fatalf("PriceAnnual = %v, want nil", *updated.Tier.PriceAnnual)
	}
}

func TestOtherOrganizationTierIsHidden(t *testing.T) {
	svc := NewTierService(newFakeRepo(), "usd", zap.NewNop())
	res := createTier(t, svc, &tier.CreateTierRequest{
		Name: "Pro", Price: 2900, Cadence: tier.CadenceMonth, CheckoutType: tier.CheckoutDirectPayment,
	})

	other := identity.Actor{UserID: "u2", OrganizationID: "org2"}
	if _, err := svc.GetTier(context.Background(), other, res.Tier.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetPublishedTier(t *testing.T) {
	svc := NewTierService(newFakeRepo(), "usd", zap.NewNop())
	res := createTier(t, svc, &tier.CreateTierRequest{
		Name: "Pro", Price: 2900, Cadence: tier.CadenceMonth, CheckoutType: tier.CheckoutDirectPayment,
	})
	ctx := context.Background()

	if _, err := svc.GetPublishedTier(ctx, res.Tier.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("unpublished tier: err = %v, want ErrNotFound", err)
	}

	if _, err := svc.SetPublished(ctx, vendor, res.Tier.ID, true); err != nil {
		t.Fatalf("SetPublished() error = %v", err)
	}
	if _, err := svc.GetPublishedTier(ctx, res.Tier.ID); err != nil {
		t.Fatalf("published tier: err = %v", err)
	}

	views, err := svc.ListPublishedTiers(ctx, "org1")
	if err != nil || len(views) != 1 {
		t.Fatalf("ListPublishedTiers() = %d views, err %v", len(views), err)
	}
}

func TestDeleteTier(t *testing.T) {
	repo := newFakeRepo()
	svc := NewTierService(repo, "usd", zap.NewNop())
	ctx := context.Background()

	referenced := createTier(t, svc, &tier.CreateTierRequest{
		Name: "Pro", Price: 2900, Cadence: tier.CadenceMonth, CheckoutType: tier.CheckoutDirectPayment,
	})
	repo.refs[referenced.Tier.ID] = tier.References{Charges: 1}

	err := svc.DeleteTier(ctx, vendor, referenced.Tier.ID)
	if xerrors.KindOf(err) != xerrors.KindConflict {
		t.Fatalf("referenced tier: err = %v, want conflict", err)
	}
	if _, ok := repo.tiers[referenced.Tier.ID]; !ok {
		t.Fatal("referenced tier was deleted")
	}

	unused := createTier(t, svc, &tier.CreateTierRequest{
		Name: "Basic", Price: 900, Cadence: tier.CadenceOnce, CheckoutType: tier.CheckoutDirectPayment,
	})
	if err := svc.DeleteTier(ctx, vendor, unused.Tier.ID); err != nil {
		t.Fatalf("DeleteTier() error = %v", err)
	}
}
