package prospect

import (
	"context"
	"errors"
	"testing"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/prospect"
	xerrors "gitwallet-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeRepo struct {
	prospects map[string]*prospect.Prospect
}

func (f *fakeRepo) FindByID(_ context.Context, orgID, id string) (*prospect.Prospect, error) {
	p, ok := f.prospects[id]
	if !ok || p.OrganizationID != orgID {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpdateQualification(_ context.Context, orgID, id string, status prospect.Qualification, reason string) error {
	p, ok := f.prospects[id]
	if !ok || p.OrganizationID != orgID {
		return xerrors.ErrNotFound
	}
	p.Status = status
	p.QualificationReason = reason
	return nil
}

func (f *fakeRepo) List(_ context.Context, orgID string, filters *prospect.ListFilters) ([]prospect.Prospect, int64, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	var out []prospect.Prospect
	for _, p := range f.prospects {
		if p.OrganizationID == orgID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

type fakeNotifier struct{ qualified []prospect.Qualification }

func (f *fakeNotifier) ProspectQualified(_ string, p *prospect.Prospect) {
	f.qualified = append(f.qualified, p.Status)
}

var vendor = identity.Actor{UserID: "v1", OrganizationID: "org1"}

func newService() (*ProspectService, *fakeRepo, *fakeNotifier) {
	repo := &fakeRepo{prospects: map[string]*prospect.Prospect{
		"p1": {ID: "p1", OrganizationID: "org1", Name: "Ada", Status: prospect.Unqualified},
		"p2": {ID: "p2", OrganizationID: "org2", Name: "Grace", Status: prospect.Unqualified},
	}}
	n := &fakeNotifier{}
	return NewProspectService(repo, n, zap.NewNop()), repo, n
}

func TestQualify(t *testing.T) {
	tests := []struct {
		name     string
		req      prospect.QualifyRequest
		wantKind xerrors.Kind
	}{
		{"qualified without reason", prospect.QualifyRequest{Status: prospect.Qualified}, xerrors.KindUnknown},
		{"disqualified with reason", prospect.QualifyRequest{Status: prospect.Disqualified, Reason: "no budget"}, xerrors.KindUnknown},
		{"disqualified without reason", prospect.QualifyRequest{Status: prospect.Disqualified, Reason: "  "}, xerrors.KindValidation},
		{"unknown status", prospect.QualifyRequest{Status: "hot"}, xerrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, n := newService()

			p, err := svc.Qualify(context.Background(), vendor, "p1", &tt.req)
			if xerrors.KindOf(err) != tt.wantKind {
				t.Fatalf("Qualify() error = %v, want kind %q", err, tt.wantKind)
			}
			if tt.wantKind != xerrors.KindUnknown {
				if repo.prospects["p1"].Status != prospect.Unqualified || len(n.qualified) != 0 {
					t.Fatal("rejected qualification must not change the prospect")
				}
				return
			}
			if p.Status != tt.req.Status || len(n.qualified) != 1 {
				t.Fatalf("prospect = %+v, notifications = %v", p, n.qualified)
			}
		})
	}
}

func TestProspectsAreScopedToOrganization(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	if _, err := svc.Get(ctx, vendor, "p2"); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("Get() other org: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Qualify(ctx, vendor, "p2", &prospect.QualifyRequest{Status: prospect.Qualified}); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("Qualify() other org: err = %v, want ErrNotFound", err)
	}

	resp, err := svc.List(ctx, vendor, &prospect.ListFilters{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 || resp.Prospects[0].ID != "p1" || resp.TotalPages != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	if _, err := svc.List(ctx, identity.Actor{UserID: "buyer"}, &prospect.ListFilters{}); !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("buyer List(): err = %v, want ErrForbidden", err)
	}
}
