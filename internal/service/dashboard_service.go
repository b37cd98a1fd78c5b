package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bizreport/api/internal/cache"
	"bizreport/api/internal/models"
	"bizreport/api/internal/repository"
)

const recentLimit = 5

type DashboardUsers interface {
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
	Recent(ctx context.Context, limit int) ([]models.User, error)
}

type DashboardBusinesses interface {
	Count(ctx context.Context, ownerUserID string) (int, error)
	Recent(ctx context.Context, ownerUserID string, limit int) ([]models.Business, error)
}

type DashboardReports interface {
	List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, int, error)
	CountByType(ctx context.Context, filter repository.ReportFilter) (map[models.ReportType]int, error)
	Data(ctx context.Context, filter repository.ReportFilter) ([]models.ReportDatum, error)
}

// OverviewCache holds rendered overviews; a miss is (false, nil).
type OverviewCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type DashboardOptions struct {
	Location *time.Location
	Now      func() time.Time
}

type DashboardService struct {
	users      DashboardUsers
	businesses DashboardBusinesses
	reports    DashboardReports
	cache      OverviewCache
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
}

func NewDashboardService(
	users DashboardUsers,
	businesses DashboardBusinesses,
	reports DashboardReports,
	cache OverviewCache,
	opts DashboardOptions,
	log zerolog.Logger,
) *DashboardService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DashboardService{
		users:      users,
		businesses: businesses,
		reports:    reports,
		cache:      cache,
		loc:        opts.Location,
		now:        opts.Now,
		log:        log,
	}
}

type UserSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Mobile    *string         `json:"mobile"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

type BusinessSummary struct {
	ID           string    `json:"id"`
	OwnerUserID  *string   `json:"ownerUserId"`
	BusinessName string    `json:"businessName"`
	OwnerName    string    `json:"ownerName"`
	OwnerPhone   *string   `json:"ownerPhone"`
	Category     string    `json:"category"`
	City         string    `json:"city"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ReportSummary struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"businessId"`
	BusinessName    string            `json:"businessName"`
	CreatedByUserID string            `json:"createdByUserId"`
	ReportType      models.ReportType `json:"reportType"`
	Data            json.RawMessage   `json:"data"`
	CreatedAt       time.Time         `json:"createdAt"`
}

type AdminTotals struct {
	TotalBusinesses     int     `json:"totalBusinesses"`
	TotalReports        int     `json:"totalReports"`
	SalesToday          float64 `json:"salesToday"`
	SalesThisMonth      float64 `json:"salesThisMonth"`
	SalesLast30Days     float64 `json:"salesLast30Days"`
	TotalUsers          int     `json:"totalUsers"`
	TotalInvestors      int     `json:"totalInvestors"`
	TotalBusinessOwners int     `json:"totalBusinessOwners"`
	TotalAdmins         int     `json:"totalAdmins"`
}

type AdminRecent struct {
	Businesses []BusinessSummary `json:"businesses"`
	Reports    []ReportSummary   `json:"reports"`
	Users      []UserSummary     `json:"users"`
}

type AdminOverview struct {
	Totals        AdminTotals               `json:"totals"`
	ReportsByType map[models.ReportType]int `json:"reportsByType"`
	Recent        AdminRecent               `json:"recent"`
	GeneratedAt   time.Time                 `json:"generatedAt"`
}

type PeriodFigures struct {
	Today      Figures `json:"today"`
	ThisMonth  Figures `json:"thisMonth"`
	Last30Days Figures `json:"last30Days"`
}

type OwnerTotals struct {
	TotalReports  int                       `json:"totalReports"`
	ReportsByType map[models.ReportType]int `json:"reportsByType"`
	KPIs          PeriodFigures             `json:"kpis"`
}

type OwnerRecent struct {
	Reports []ReportSummary `json:"reports"`
}

type OwnerOverview struct {
	Businesses  []BusinessSummary `json:"businesses"`
	Totals      OwnerTotals       `json:"totals"`
	Recent      OwnerRecent       `json:"recent"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// periods are the KPI windows: calendar day and month in the dashboard's
// time zone, and a rolling 30 days.
type periods struct {
	todayStart, tomorrowStart time.Time
	monthStart, nextMonth     time.Time
	last30Start               time.Time
}

func (s *DashboardService) periods() periods {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return periods{
		todayStart:    today,
		tomorrowStart: today.AddDate(0, 0, 1),
		monthStart:    month,
		nextMonth:     month.AddDate(0, 1, 0),
		last30Start:   now.Add(-30 * 24 * time.Hour),
	}
}

// earliest is the lower bound of every window.
func (p periods) earliest() time.Time {
	if p.monthStart.Before(p.last30Start) {
		return p.monthStart
	}
	return p.last30Start
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// dailyFigures sums DAILY reports matching filter into the KPI windows.
// Only DAILY reports count so longer periods are not added twice.
func (s *DashboardService) dailyFigures(ctx context.Context, filter repository.ReportFilter) (PeriodFigures, error) {
	p := s.periods()
	daily := models.ReportTypeDaily
	from := p.earliest()
	filter.ReportType = &daily
	filter.From = &from

	rows, err := s.reports.Data(ctx, filter)
	if err != nil {
		return PeriodFigures{}, fmt.Errorf("load daily reports: %w", err)
	}

	var out PeriodFigures
	for _, row := range rows {
		if within(row.CreatedAt, p.todayStart, p.tomorrowStart) {
			out.Today.add(row.Data)
		}
		if within(row.CreatedAt, p.monthStart, p.nextMonth) {
			out.ThisMonth.add(row.Data)
		}
		if !row.CreatedAt.Before(p.last30Start) {
			out.Last30Days.add(row.Data)
		}
	}
	return out, nil
}

func (s *DashboardService) AdminOverview(ctx context.Context) (AdminOverview, error) {
	key := cache.AdminOverviewKey()
	var out AdminOverview
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	roles, err := s.users.CountByRole(ctx)
	if err != nil {
		return AdminOverview{}, fmt.Errorf("count users: %w", err)
	}
	businesses, err := s.businesses.Count(ctx, "")
	if err != nil {
		return AdminOverview{}, err
	}
	byType, err := s.reports.CountByType(ctx, repository.ReportFilter{})
	if err != nil {
		return AdminOverview{}, err
	}
	figures, err := s.dailyFigures(ctx, repository.ReportFilter{})
	if err != nil {
		return AdminOverview{}, err
	}
	recentBusinesses, err := s.businesses.Recent(ctx, "", recentLimit)
	if err != nil {
		return AdminOverview{}, err
	}
	recentReports, _, err := s.reports.List(ctx, repository.ReportFilter{Limit: recentLimit})
	if err != nil {
		return AdminOverview{}, err
	}
	recentUsers, err := s.users.Recent(ctx, recentLimit)
	if err != nil {
		return AdminOverview{}, fmt.Errorf("recent users: %w", err)
	}

	out = AdminOverview{
		Totals: AdminTotals{
			TotalBusinesses:     businesses,
			TotalReports:        sumCounts(byType),
			SalesToday:          figures.Today.Sales,
			SalesThisMonth:      figures.ThisMonth.Sales,
			SalesLast30Days:     figures.Last30Days.Sales,
			TotalInvestors:      roles[models.UserRoleInvestor],
			TotalBusinessOwners: roles[models.UserRoleBusinessOwner],
			TotalAdmins:         roles[models.UserRoleAdmin],
		},
		ReportsByType: byType,
		Recent: AdminRecent{
			Businesses: summarizeBusinesses(recentBusinesses),
			Reports:    summarizeReports(recentReports),
			Users:      summarizeUsers(recentUsers),
		},
		GeneratedAt: s.now().UTC(),
	}
	out.Totals.TotalUsers = out.Totals.TotalInvestors + out.Totals.TotalBusinessOwners + out.Totals.TotalAdmins

	s.store(ctx, key, out)
	return out, nil
}

func (s *DashboardService) OwnerOverview(ctx context.Context, ownerUserID string) (OwnerOverview, error) {
	key := cache.OwnerOverviewKey(ownerUserID)
	var out OwnerOverview
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	businesses, err := s.businesses.Recent(ctx, ownerUserID, ownerBusinessLimit)
	if err != nil {
		return OwnerOverview{}, err
	}

	out = OwnerOverview{
		Businesses: summarizeBusinesses(businesses),
		Totals:     OwnerTotals{ReportsByType: zeroCounts()},
		Recent:     OwnerRecent{Reports: []ReportSummary{}},
	}
	if len(businesses) > 0 {
		filter := repository.ReportFilter{OwnerUserID: ownerUserID}

		byType, err := s.reports.CountByType(ctx, filter)
		if err != nil {
			return OwnerOverview{}, err
		}
		figures, err := s.dailyFigures(ctx, filter)
		if err != nil {
			return OwnerOverview{}, err
		}
		filter.Limit = recentLimit
		recent, _, err := s.reports.List(ctx, filter)
		if err != nil {
			return OwnerOverview{}, err
		}

		out.Totals = OwnerTotals{TotalReports: sumCounts(byType), ReportsByType: byType, KPIs: figures}
		out.Recent.Reports = summarizeReports(recent)
	}
	out.GeneratedAt = s.now().UTC()

	s.store(ctx, key, out)
	return out, nil
}

func (s *DashboardService) cached(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
		return false
	}
	return hit
}

func (s *DashboardService) store(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
}

func zeroCounts() map[models.ReportType]int {
	counts := make(map[models.ReportType]int, len(models.ReportTypes))
	for _, t := range models.ReportTypes {
		counts[t] = 0
	}
	return counts
}

func sumCounts(counts map[models.ReportType]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func summarizeUsers(users []models.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Mobile:    u.Mobile,
			Role:      u.Role,
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		})
	}
	return out
}

func summarizeBusinesses(items []models.Business) []BusinessSummary {
	out := make([]BusinessSummary, 0, len(items))
	for _, b := range items {
		out = append(out, BusinessSummary{
			ID:           b.ID,
			OwnerUserID:  b.OwnerUserID,
			BusinessName: b.BusinessName,
			OwnerName:    b.OwnerName,
			OwnerPhone:   b.OwnerPhone,
			Category:     b.Category,
			City:         b.City,
			IsActive:     b.IsActive,
			CreatedAt:    b.CreatedAt,
		})
	}
	return out
}

func summarizeReports(reports []models.Report) []ReportSummary {
	out := make([]ReportSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, ReportSummary{
			ID:              r.ID,
			BusinessID:      r.BusinessID,
			BusinessName:    r.BusinessName,
			CreatedByUserID: r.CreatedByUserID,
			ReportType:      r.ReportType,
			Data:            r.Data,
			CreatedAt:       r.CreatedAt,
		})
	}
	return out
}
