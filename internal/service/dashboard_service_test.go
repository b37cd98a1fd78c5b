package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bizreport/api/internal/cache"
	"bizreport/api/internal/ids"
	"bizreport/api/internal/models"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type dashboardEnv struct {
	svc        *DashboardService
	users      *fakeUsers
	businesses *fakeBusinesses
	reports    *fakeReports
	cache      *cache.DashboardCache
	redis      *miniredis.Miniredis
	owner      string
	mine       models.Business
	other      models.Business
}

func newDashboardEnv(t *testing.T) *dashboardEnv {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	owner, otherOwner := ids.New(), ids.New()
	env := &dashboardEnv{
		users:      newFakeUsers(),
		businesses: newFakeBusinesses(),
		reports:    newFakeReports(),
		cache:      cache.NewDashboardCache(rdb, time.Minute),
		redis:      mr,
		owner:      owner,
		mine:       models.Business{ID: ids.New(), OwnerUserID: &owner, BusinessName: "Mine"},
		other:      models.Business{ID: ids.New(), OwnerUserID: &otherOwner, BusinessName: "Other"},
	}
	env.businesses.put(env.mine)
	env.businesses.put(env.other)
	env.reports.ownerOf = func(businessID string) string {
		b, err := env.businesses.GetByID(context.Background(), businessID)
		if err != nil || b.OwnerUserID == nil {
			return ""
		}
		return *b.OwnerUserID
	}

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, ist)
	env.svc = NewDashboardService(env.users, env.businesses, env.reports, env.cache, DashboardOptions{
		Location: ist,
		Now:      func() time.Time { return now },
	}, zerolog.Nop())
	return env
}

func (e *dashboardEnv) report(b models.Business, t models.ReportType, at time.Time, data string) {
	e.reports.put(models.Report{
		ID:              ids.New(),
		BusinessID:      b.ID,
		BusinessName:    b.BusinessName,
		CreatedByUserID: *b.OwnerUserID,
		ReportType:      t,
		Data:            json.RawMessage(data),
		CreatedAt:       at,
	})
}

func (e *dashboardEnv) seedReports() {
	daily := models.ReportTypeDaily
	e.report(e.mine, daily, time.Date(2026, 3, 15, 9, 0, 0, 0, ist), `{"salesToday": 100, "expensesToday": 40}`)
	// Before midnight UTC but already today in the dashboard zone.
	e.report(e.mine, daily, time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC), `{"sales": "5"}`)
	e.report(e.mine, daily, time.Date(2026, 3, 1, 8, 0, 0, 0, ist), `{"totalSales": 50}`)
	e.report(e.mine, daily, time.Date(2026, 2, 20, 12, 0, 0, 0, ist), `{"revenue": 30, "cost": 10}`)
	e.report(e.mine, daily, time.Date(2026, 1, 1, 12, 0, 0, 0, ist), `{"sales": 1000}`)
	e.report(e.mine, models.ReportTypeWeekly, time.Date(2026, 3, 15, 9, 0, 0, 0, ist), `{"sales": 999}`)
	e.report(e.other, daily, time.Date(2026, 3, 15, 8, 0, 0, 0, ist), `{"sales": 7}`)
}

func TestDashboardOwnerOverview(t *testing.T) {
	env := newDashboardEnv(t)
	env.seedReports()

	got, err := env.svc.OwnerOverview(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("OwnerOverview() error: %v", err)
	}

	want := PeriodFigures{
		Today:      Figures{Sales: 105, Expenses: 40, ProfitLoss: 65},
		ThisMonth:  Figures{Sales: 155, Expenses: 40, ProfitLoss: 115},
		Last30Days: Figures{Sales: 185, Expenses: 50, ProfitLoss: 135},
	}
	if got.Totals.KPIs != want {
		t.Fatalf("KPIs = %+v, want %+v", got.Totals.KPIs, want)
	}
	if got.Totals.TotalReports != 6 || got.Totals.ReportsByType[models.ReportTypeWeekly] != 1 || got.Totals.ReportsByType[models.ReportTypeDaily] != 5 {
		t.Fatalf("totals = %+v", got.Totals)
	}
	if len(got.Businesses) != 1 || got.Businesses[0].ID != env.mine.ID {
		t.Fatalf("businesses = %+v", got.Businesses)
	}
	if len(got.Recent.Reports) != recentLimit {
		t.Fatalf("recent reports = %d", len(got.Recent.Reports))
	}
	for _, r := range got.Recent.Reports {
		if r.BusinessID != env.mine.ID {
			t.Fatalf("recent report of foreign business %s", r.BusinessID)
		}
	}
}

func TestDashboardOwnerOverviewWithoutBusinesses(t *testing.T) {
	env := newDashboardEnv(t)
	env.seedReports()

	got, err := env.svc.OwnerOverview(context.Background(), ids.New())
	if err != nil {
		t.Fatalf("OwnerOverview() error: %v", err)
	}
	if len(got.Businesses) != 0 || got.Totals.TotalReports != 0 || got.Totals.KPIs != (PeriodFigures{}) {
		t.Fatalf("OwnerOverview() = %+v", got)
	}
	if len(got.Totals.ReportsByType) != len(models.ReportTypes) || got.Recent.Reports == nil {
		t.Fatalf("zeroed overview must list every type and an empty recent list: %+v", got.Totals)
	}
}

func TestDashboardAdminOverview(t *testing.T) {
	env := newDashboardEnv(t)
	env.seedReports()
	seedUser(env.users, models.UserRoleAdmin, true)
	seedUser(env.users, models.UserRoleBusinessOwner, true)
	seedUser(env.users, models.UserRoleInvestor, false)

	got, err := env.svc.AdminOverview(context.Background())
	if err != nil {
		t.Fatalf("AdminOverview() error: %v", err)
	}
	totals := got.Totals
	if totals.SalesToday != 112 || totals.SalesThisMonth != 162 || totals.SalesLast30Days != 192 {
		t.Fatalf("sales = %v / %v / %v", totals.SalesToday, totals.SalesThisMonth, totals.SalesLast30Days)
	}
	if totals.TotalReports != 7 || totals.TotalBusinesses != 2 || totals.TotalUsers != 3 || totals.TotalAdmins != 1 {
		t.Fatalf("totals = %+v", totals)
	}
	if len(got.Recent.Users) != 3 || len(got.Recent.Businesses) != 2 || len(got.Recent.Reports) != recentLimit {
		t.Fatalf("recent = %d users, %d businesses, %d reports", len(got.Recent.Users), len(got.Recent.Businesses), len(got.Recent.Reports))
	}
}

func TestDashboardOverviewIsCached(t *testing.T) {
	env := newDashboardEnv(t)
	ctx := context.Background()
	env.report(env.mine, models.ReportTypeDaily, time.Date(2026, 3, 15, 9, 0, 0, 0, ist), `{"sales": 10}`)

	first, err := env.svc.OwnerOverview(ctx, env.owner)
	if err != nil {
		t.Fatalf("OwnerOverview() error: %v", err)
	}
	env.report(env.mine, models.ReportTypeDaily, time.Date(2026, 3, 15, 9, 30, 0, 0, ist), `{"sales": 15}`)

	cached, err := env.svc.OwnerOverview(ctx, env.owner)
	if err != nil {
		t.Fatalf("OwnerOverview() error: %v", err)
	}
	if cached.Totals.KPIs.Today.Sales != first.Totals.KPIs.Today.Sales {
		t.Fatalf("cached sales = %v, want %v", cached.Totals.KPIs.Today.Sales, first.Totals.KPIs.Today.Sales)
	}

	if err := env.cache.Invalidate(ctx, cache.OwnerOverviewKey(env.owner)); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	fresh, err := env.svc.OwnerOverview(ctx, env.owner)
	if err != nil {
		t.Fatalf("OwnerOverview() error: %v", err)
	}
	if fresh.Totals.KPIs.Today.Sales != 25 {
		t.Fatalf("fresh sales = %v, want 25", fresh.Totals.KPIs.Today.Sales)
	}

	env.redis.FastForward(2 * time.Minute)
	if env.redis.Exists(cache.OwnerOverviewKey(env.owner)) {
		t.Fatal("overview outlived its ttl")
	}
}

func TestDashboardSurvivesCacheOutage(t *testing.T) {
	env := newDashboardEnv(t)
	env.seedReports()
	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = down.Close() })
	svc := NewDashboardService(env.users, env.businesses, env.reports, cache.NewDashboardCache(down, time.Minute), DashboardOptions{
		Location: ist,
		Now:      env.svc.now,
	}, zerolog.Nop())

	got, err := svc.AdminOverview(context.Background())
	if err != nil {
		t.Fatalf("AdminOverview() with cache down error: %v", err)
	}
	if got.Totals.TotalReports != 7 {
		t.Fatalf("TotalReports = %d", got.Totals.TotalReports)
	}
}
