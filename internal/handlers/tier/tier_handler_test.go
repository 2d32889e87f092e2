package tier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"
	service "gitwallet-service/internal/service/tier"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type memoryRepo struct {
	tiers map[string]*tier.Tier
	refs  map[string]tier.References
}

func (m *memoryRepo) Create(_ context.Context, t *tier.Tier) error {
	t.ID = "tier-new"
	cp := *t
	m.tiers[t.ID] = &cp
	return nil
}

func (m *memoryRepo) Update(_ context.Context, t *tier.Tier) error {
	cp := *t
	m.tiers[t.ID] = &cp
	return nil
}

func (m *memoryRepo) SetPublished(_ context.Context, orgID, id string, published bool) error {
	t, ok := m.tiers[id]
	if !ok || t.OrganizationID != orgID {
		return xerrors.ErrNotFound
	}
	t.Published = published
	return nil
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (*tier.Tier, error) {
	t, ok := m.tiers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) ListByOrganization(_ context.Context, orgID string, publishedOnly bool) ([]tier.Tier, error) {
	var out []tier.Tier
	for _, t := range m.tiers {
		if t.OrganizationID == orgID && (!publishedOnly || t.Published) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryRepo) CountReferences(_ context.Context, id string) (tier.References, error) {
	return m.refs[id], nil
}

func (m *memoryRepo) Delete(_ context.Context, orgID, id string) error {
	delete(m.tiers, id)
	return nil
}

var vendor = identity.Actor{UserID: "u1", OrganizationID: "org-1", Roles: []string{"vendor"}}

func newRouter(repo *memoryRepo, actor *identity.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTierHandler(service.NewTierService(repo, "usd", zap.NewNop()))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor != nil {
			c.Set("actor", *actor)
		}
		c.Next()
	})
	r.POST("/tiers", h.CreateTier)
	r.DELETE("/tiers/:id", h.DeleteTier)
	r.GET("/public/tiers/:id", h.GetPublishedTier)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTier(t *testing.T) {
	repo := &memoryRepo{tiers: map[string]*tier.Tier{}}
	body := `{"name":"Pro","price":2500,"cadence":"month","checkout_type":"direct-payment"}`

	tests := []struct {
		name   string
		actor  *identity.Actor
		body   string
		status int
	}{
		{"vendor", &vendor, body, http.StatusCreated},
		{"anonymous", nil, body, http.StatusUnauthorized},
		{"buyer", &identity.Actor{UserID: "b1"}, body, http.StatusForbidden},
		{"bad cadence", &vendor, `{"name":"Pro","price":1,"cadence":"weekly","checkout_type":"direct-payment"}`, http.StatusBadRequest},
		{"missing name", &vendor, `{"price":1,"cadence":"month","checkout_type":"direct-payment"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(repo, tt.actor), http.MethodPost, "/tiers", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}

	if got := repo.tiers["tier-new"]; got == nil || got.Currency != "usd" || got.OrganizationID != "org-1" {
		t.Fatalf("stored tier = %+v", got)
	}
}

func TestGetPublishedTierHidesDrafts(t *testing.T) {
	repo := &memoryRepo{tiers: map[string]*tier.Tier{
		"draft": {ID: "draft", OrganizationID: "org-1", Name: "Draft", Price: 100, Currency: "usd", Cadence: tier.CadenceMonth, CheckoutType: tier.CheckoutDirectPayment},
		"live":  {ID: "live", OrganizationID: "org-1", Name: "Live", Price: 2500, Currency: "usd", Cadence: tier.CadenceMonth, CheckoutType: tier.CheckoutDirectPayment, Published: true},
	}}
	r := newRouter(repo, nil)

	if w := do(r, http.MethodGet, "/public/tiers/draft", ""); w.Code != http.StatusNotFound {
		t.Fatalf("draft status = %d, want 404", w.Code)
	}

	w := do(r, http.MethodGet, "/public/tiers/live", "")
	if w.Code != http.StatusOK {
		t.Fatalf("live status = %d, want 200", w.Code)
	}

	var resp struct {
		Data tier.View `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Monthly.Display != "$25.00/mo" {
		t.Fatalf("monthly display = %q", resp.Data.Monthly.Display)
	}
}

func TestDeleteTierWithPurchasesConflicts(t *testing.T) {
	repo := &memoryRepo{
		tiers: map[string]*tier.Tier{
			"t1": {ID: "t1", OrganizationID: "org-1", Name: "Sold", Price: 100, Currency: "usd", Cadence: tier.CadenceOnce, CheckoutType: tier.CheckoutDirectPayment},
		},
		refs: map[string]tier.References{"t1": {Charges: 1}},
	}

	w := do(newRouter(repo, &vendor), http.MethodDelete, "/tiers/t1", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if _, ok := repo.tiers["t1"]; !ok {
		t.Fatal("tier with purchases was deleted")
	}
}
