// internal/service/dashboard/service.go
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gitwallet-service/internal/domain/charge"
	"gitwallet-service/internal/domain/dashboard"
	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SubscriptionReader interface {
	AllByOrganization(ctx context.Context, orgID string) ([]subscription.Subscription, error)
}

type ChargeReader interface {
	AllByOrganization(ctx context.Context, orgID string) ([]charge.Charge, error)
}

type ProspectCounter interface {
	CountOpen(ctx context.Context, orgID string) (int64, error)
}

type DashboardService struct {
	subs      SubscriptionReader
	charges   ChargeReader
	prospects ProspectCounter
	logger    *zap.Logger
	now       func() time.Time
}

func NewDashboardService(subs SubscriptionReader, charges ChargeReader, prospects ProspectCounter, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		subs:      subs,
		charges:   charges,
		prospects: prospects,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func requireVendor(actor identity.Actor) error {
	if !actor.IsAuthenticated() {
		return xerrors.ErrUnauthorized
	}
	if !actor.IsVendor() {
		return xerrors.ErrForbidden
	}
	return nil
}

func (s *DashboardService) load(ctx context.Context, orgID string) ([]subscription.Subscription, []charge.Charge, error) {
	subs, err := s.subs.AllByOrganization(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	charges, err := s.charges.AllByOrganization(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load charges: %w", err)
	}
	return subs, charges, nil
}

// Customers returns one row per buyer, most recent buyers first.
func (s *DashboardService) Customers(ctx context.Context, actor identity.Actor) (*dashboard.CustomersResponse, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}

	subs, charges, err := s.load(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rows := map[string]*customerRow{}
	row := func(buyerID string) *customerRow {
		r, ok := rows[buyerID]
		if !ok {
			r = &customerRow{Customer: dashboard.Customer{BuyerID: buyerID}, value: totals{}}
			rows[buyerID] = r
		}
		return r
	}

	for i := range subs {
		sub := &subs[i]
		r := row(sub.BuyerID)
		r.Subscriptions++
		if sub.IsActive(now) {
			r.ActiveSubscriptions++
		}
		r.value.add(sub.Currency, decimal.NewFromInt(sub.Amount))
		r.seen(sub.CreatedAt)
	}

	for i := range charges {
		ch := &charges[i]
		r := row(ch.BuyerID)
		r.Charges++
		r.value.add(ch.Currency, decimal.NewFromInt(ch.Amount))
		r.seen(ch.CreatedAt)
	}

	customers := make([]dashboard.Customer, 0, len(rows))
	for _, r := range rows {
		r.LifetimeValue = r.value.money()
		customers = append(customers, r.Customer)
	}
	sort.Slice(customers, func(i, j int) bool {
		if !customers[i].LastPurchaseAt.Equal(customers[j].LastPurchaseAt) {
			return customers[i].LastPurchaseAt.After(customers[j].LastPurchaseAt)
		}
		return customers[i].BuyerID < customers[j].BuyerID
	})

	return &dashboard.CustomersResponse{Customers: customers, Total: len(customers)}, nil
}

// Revenue reports monthly recurring revenue from active subscriptions, with
// annual prices spread over twelve months, and total one-time revenue.
func (s *DashboardService) Revenue(ctx context.Context, actor identity.Actor) (*dashboard.Revenue, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}

	subs, charges, err := s.load(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	open, err := s.prospects.CountOpen(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count prospects: %w", err)
	}

	now := s.now()
	mrr := totals{}
	oneTime := totals{}
	active := 0

	for i := range subs {
		sub := &subs[i]
		if !sub.IsActive(now) {
			continue
		}
		active++
		mrr.add(sub.Currency, monthly(sub))
	}
	for i := range charges {
		oneTime.add(charges[i].Currency, decimal.NewFromInt(charges[i].Amount))
	}

	s.logger.Debug("revenue computed",
		zap.String("organization_id", actor.OrganizationID),
		zap.Int("active_subscriptions", active),
	)

	return &dashboard.Revenue{
		MonthlyRecurring:    mrr.money(),
		OneTime:             oneTime.money(),
		ActiveSubscriptions: active,
		OpenProspects:       open,
	}, nil
}

var twelve = decimal.NewFromInt(12)

func monthly(sub *subscription.Subscription) decimal.Decimal {
	amount := decimal.NewFromInt(sub.Amount)
	if sub.PriceAnnual {
		return amount.Div(twelve)
	}
	return amount
}

type customerRow struct {
	dashboard.Customer
	value totals
}

func (r *customerRow) seen(at time.Time) {
	if r.FirstPurchaseAt.IsZero() || at.Before(r.FirstPurchaseAt) {
		r.FirstPurchaseAt = at
	}
	if at.After(r.LastPurchaseAt) {
		r.LastPurchaseAt = at
	}
}

// totals sums minor-unit amounts per currency.
type totals map[string]decimal.Decimal

func (t totals) add(currency string, amount decimal.Decimal) {
	cur := strings.ToLower(currency)
	t[cur] = t[cur].Add(amount)
}

func (t totals) money() []dashboard.Money {
	out := make([]dashboard.Money, 0, len(t))
	for cur, sum := range t {
		minor := sum.Round(0).IntPart()
		out = append(out, dashboard.Money{
			Amount:   minor,
			Currency: cur,
			Display:  tier.FormatAmount(minor, cur),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
