package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bizreport/api/internal/cache"
	"bizreport/api/internal/ids"
	"bizreport/api/internal/media/sniffer"
	"bizreport/api/internal/media/svg"
	"bizreport/api/internal/models"
	"bizreport/api/internal/repository"
)

const (
	DefaultMaxPhotoBytes = 10 << 20
	DefaultMaxVideoBytes = 100 << 20
)

type ReportStore interface {
	Create(ctx context.Context, report models.Report) error
	GetByID(ctx context.Context, id string) (models.Report, error)
	List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, int, error)
	CountByType(ctx context.Context, filter repository.ReportFilter) (map[models.ReportType]int, error)
}

// OwnedBusinessLookup resolves a business only for its owner.
type OwnedBusinessLookup interface {
	GetOwned(ctx context.Context, id string, ownerUserID string) (models.Business, error)
}

type AttachmentStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

type ReportOptions struct {
	MaxPhotoBytes int64
	MaxVideoBytes int64
	Now           func() time.Time
}

type ReportService struct {
	reports    ReportStore
	businesses OwnedBusinessLookup
	store      AttachmentStore
	cache      CacheInvalidator
	maxPhoto   int64
	maxVideo   int64
	now        func() time.Time
	log        zerolog.Logger
}

func NewReportService(
	reports ReportStore,
	businesses OwnedBusinessLookup,
	store AttachmentStore,
	cache CacheInvalidator,
	opts ReportOptions,
	log zerolog.Logger,
) *ReportService {
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	if opts.MaxVideoBytes <= 0 {
		opts.MaxVideoBytes = DefaultMaxVideoBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReportService{
		reports:    reports,
		businesses: businesses,
		store:      store,
		cache:      cache,
		maxPhoto:   opts.MaxPhotoBytes,
		maxVideo:   opts.MaxVideoBytes,
		now:        opts.Now,
		log:        log,
	}
}

var errReportNotFound = &Error{Kind: ErrNotFound, Code: "REPORT_NOT_FOUND", Message: "Report not found"}

// Attachment is one uploaded file. Size is the byte length reported by the
// multipart parser; ContentType is the part's declared type, if any.
type Attachment struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

type CreateReportInput struct {
	OwnerUserID string
	BusinessID  string
	ReportType  string
	Data        string
	Notes       string
	Photo       *Attachment
	Video       *Attachment
}

// ReportDetail is a report with time-limited attachment URLs.
type ReportDetail struct {
	models.Report
	PhotoURL *string
	VideoURL *string
}

func (s *ReportService) Create(ctx context.Context, input CreateReportInput) (ReportDetail, error) {
	businessID := strings.TrimSpace(input.BusinessID)
	if !ids.Valid(businessID) {
		return ReportDetail{}, invalid("VALIDATION_BUSINESS_ID_INVALID", "Invalid businessId")
	}
	reportType, err := parseReportType(input.ReportType)
	if err != nil {
		return ReportDetail{}, err
	}
	if reportType == nil {
		return ReportDetail{}, invalid("VALIDATION_REPORT_TYPE_INVALID", "Invalid reportType")
	}
	data, err := parseReportData(input.Data)
	if err != nil {
		return ReportDetail{}, err
	}

	if _, err := s.businesses.GetOwned(ctx, businessID, input.OwnerUserID); err != nil {
		if errors.Is(err, repository.ErrBusinessNotFound) {
			return ReportDetail{}, errBusinessNotFound
		}
		return ReportDetail{}, fmt.Errorf("load business: %w", err)
	}

	report := models.Report{
		ID:              ids.New(),
		BusinessID:      businessID,
		CreatedByUserID: input.OwnerUserID,
		ReportType:      *reportType,
		Data:            data,
		Notes:           optional(input.Notes),
	}

	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("orphaned attachment not removed")
			}
		}
	}

	if input.Photo != nil {
		key, err := s.putAttachment(ctx, report.ID, "photo", sniffer.KindImage, s.maxPhoto, *input.Photo)
		if err != nil {
			return ReportDetail{}, err
		}
		stored = append(stored, key)
		report.PhotoKey = &key
	}
	if input.Video != nil {
		key, err := s.putAttachment(ctx, report.ID, "video", sniffer.KindVideo, s.maxVideo, *input.Video)
		if err != nil {
			cleanup()
			return ReportDetail{}, err
		}
		stored = append(stored, key)
		report.VideoKey = &key
	}

	if err := s.reports.Create(ctx, report); err != nil {
		cleanup()
		return ReportDetail{}, fmt.Errorf("create report: %w", err)
	}
	now := s.now()
	report.CreatedAt, report.UpdatedAt = now, now

	if err := s.cache.Invalidate(ctx, cache.AdminOverviewKey(), cache.OwnerOverviewKey(input.OwnerUserID)); err != nil {
		s.log.Warn().Err(err).Str("report_id", report.ID).Msg("dashboard cache invalidation failed")
	}

	s.log.Info().Str("report_id", report.ID).Str("business_id", businessID).Str("type", string(report.ReportType)).Msg("report created")
	return s.detail(ctx, report), nil
}

// putAttachment verifies the magic bytes of a file against its slot and
// stores it under reports/YYYY/MM/DD/<id>-<slot>.<ext>.
func (s *ReportService) putAttachment(ctx context.Context, reportID, slot string, kind sniffer.Kind, limit int64, a Attachment) (string, error) {
	code := "VALIDATION_" + strings.ToUpper(slot)
	if a.Body == nil || a.Size == 0 {
		return "", invalid(code+"_EMPTY", fmt.Sprintf("%s file is empty", slot))
	}
	if a.Size > limit {
		return "", invalid(code+"_TOO_LARGE", fmt.Sprintf("%s exceeds %d MB", slot, limit>>20))
	}

	result, head, err := sniffer.Detect(a.Body)
	if err != nil || result.Kind != kind {
		return "", invalid(code+"_TYPE_INVALID", fmt.Sprintf("%s must be a supported %s file", slot, kind))
	}
	declared := strings.ToLower(strings.TrimSpace(a.ContentType))
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if (strings.HasPrefix(declared, "image/") || strings.HasPrefix(declared, "video/")) && !strings.HasPrefix(declared, string(kind)+"/") {
		return "", invalid(code+"_TYPE_INVALID", fmt.Sprintf("content type mismatch: declared %s, actual %s", declared, result.MIME))
	}

	body := io.MultiReader(bytes.NewReader(head), a.Body)
	size := a.Size
	if result.Type == sniffer.TypeSVG {
		raw, err := io.ReadAll(io.LimitReader(body, limit+1))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", slot, err)
		}
		clean, err := svg.Sanitize(raw)
		if err != nil {
			return "", invalid(code+"_TYPE_INVALID", fmt.Sprintf("%s must be a supported %s file", slot, kind))
		}
		body, size = bytes.NewReader(clean), int64(len(clean))
	}

	key := path.Join("reports", s.now().UTC().Format("2006/01/02"), fmt.Sprintf("%s-%s.%s", reportID, slot, result.Ext()))
	if err := s.store.Put(ctx, key, body, size, result.MIME); err != nil {
		return "", fmt.Errorf("store %s: %w", slot, err)
	}
	return key, nil
}

// parseReportType reads an optional report type; empty yields nil.
func parseReportType(raw string) (*models.ReportType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t := models.ReportType(strings.ToUpper(raw))
	if !t.Valid() {
		return nil, invalid("VALIDATION_REPORT_TYPE_INVALID", "Invalid reportType")
	}
	return &t, nil
}

// parseReportData accepts a JSON object; an empty value is {}.
func parseReportData(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil, invalid("VALIDATION_DATA_INVALID", "Invalid data JSON")
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(raw)); err != nil {
		return nil, invalid("VALIDATION_DATA_INVALID", "Invalid data JSON")
	}
	return compact.Bytes(), nil
}

type ReportListQuery struct {
	Page       int
	Limit      int
	BusinessID string
	ReportType string
	Search     string
	FromDate   string
	ToDate     string
}

// AppliedReportFilters echoes the filters a listing was resolved with.
type AppliedReportFilters struct {
	BusinessID *string            `json:"businessId"`
	ReportType *models.ReportType `json:"reportType"`
	Search     *string            `json:"search,omitempty"`
	FromDate   *string            `json:"fromDate,omitempty"`
	ToDate     *string            `json:"toDate,omitempty"`
}

type ReportList struct {
	Reports    []ReportDetail
	Pagination Pagination
	Filters    AppliedReportFilters
}

// ListMine lists the reports the owner submitted.
func (s *ReportService) ListMine(ctx context.Context, ownerUserID string, q ReportListQuery) (ReportList, error) {
	filter, applied, err := reportFilter(q)
	if err != nil {
		return ReportList{}, err
	}
	filter.CreatedByUserID = ownerUserID
	return s.list(ctx, NewPageRequest(q.Page, q.Limit), filter, applied)
}

// List is the admin listing; it adds notes and business name search and a
// created-at date range.
func (s *ReportService) List(ctx context.Context, q ReportListQuery) (ReportList, error) {
	filter, applied, err := reportFilter(q)
	if err != nil {
		return ReportList{}, err
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		filter.Search = search
		applied.Search = &search
	}
	if raw := strings.TrimSpace(q.FromDate); raw != "" {
		from, _, err := parseDate(raw)
		if err != nil {
			return ReportList{}, invalid("VALIDATION_FROM_DATE_INVALID", "Invalid fromDate")
		}
		filter.From = &from
		applied.FromDate = &raw
	}
	if raw := strings.TrimSpace(q.ToDate); raw != "" {
		to, dateOnly, err := parseDate(raw)
		if err != nil {
			return ReportList{}, invalid("VALIDATION_TO_DATE_INVALID", "Invalid toDate")
		}
		// The range is inclusive: a bare date covers the whole day.
		if dateOnly {
			to = to.AddDate(0, 0, 1)
		} else {
			to = to.Add(time.Microsecond)
		}
		filter.To = &to
		applied.ToDate = &raw
	}
	return s.list(ctx, NewPageRequest(q.Page, q.Limit), filter, applied)
}

func reportFilter(q ReportListQuery) (repository.ReportFilter, AppliedReportFilters, error) {
	var filter repository.ReportFilter
	var applied AppliedReportFilters

	if raw := strings.TrimSpace(q.BusinessID); raw != "" {
		if !ids.Valid(raw) {
			return filter, applied, invalid("VALIDATION_BUSINESS_ID_INVALID", "Invalid businessId")
		}
		filter.BusinessID = raw
		applied.BusinessID = &raw
	}
	reportType, err := parseReportType(q.ReportType)
	if err != nil {
		return filter, applied, err
	}
	filter.ReportType = reportType
	applied.ReportType = reportType
	return filter, applied, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}

func (s *ReportService) list(ctx context.Context, page PageRequest, filter repository.ReportFilter, applied AppliedReportFilters) (ReportList, error) {
	filter.Limit, filter.Offset = page.Limit, page.Offset()
	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return ReportList{}, fmt.Errorf("list reports: %w", err)
	}
	out := ReportList{
		Reports:    make([]ReportDetail, 0, len(reports)),
		Pagination: NewPagination(total, page),
		Filters:    applied,
	}
	for _, r := range reports {
		out.Reports = append(out.Reports, s.detail(ctx, r))
	}
	return out, nil
}

func (s *ReportService) Get(ctx context.Context, id string) (ReportDetail, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return ReportDetail{}, err
	}
	return s.detail(ctx, report), nil
}

// GetMine reports another user's report as not found.
func (s *ReportService) GetMine(ctx context.Context, ownerUserID string, id string) (ReportDetail, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return ReportDetail{}, err
	}
	if report.CreatedByUserID != ownerUserID {
		return ReportDetail{}, errReportNotFound
	}
	return s.detail(ctx, report), nil
}

func (s *ReportService) load(ctx context.Context, id string) (models.Report, error) {
	if !ids.Valid(id) {
		return models.Report{}, invalid("VALIDATION_ID_INVALID", "Invalid report id")
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return models.Report{}, errReportNotFound
		}
		return models.Report{}, fmt.Errorf("load report: %w", err)
	}
	return report, nil
}

type ReportStats struct {
	TotalReports int                       `json:"totalReports"`
	CountsByType map[models.ReportType]int `json:"countsByType"`
}

func (s *ReportService) StatsMine(ctx context.Context, ownerUserID string) (ReportStats, error) {
	counts, err := s.reports.CountByType(ctx, repository.ReportFilter{CreatedByUserID: ownerUserID})
	if err != nil {
		return ReportStats{}, fmt.Errorf("count reports: %w", err)
	}
	stats := ReportStats{CountsByType: counts}
	for _, n := range counts {
		stats.TotalReports += n
	}
	return stats, nil
}

// detail presigns attachment URLs. A presign failure only drops the URL.
func (s *ReportService) detail(ctx context.Context, report models.Report) ReportDetail {
	return ReportDetail{
		Report:   report,
		PhotoURL: s.presign(ctx, report.PhotoKey),
		VideoURL: s.presign(ctx, report.VideoKey),
	}
}

func (s *ReportService) presign(ctx context.Context, key *string) *string {
	if key == nil {
		return nil
	}
	u, err := s.store.PresignGet(ctx, *key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", *key).Msg("presign attachment failed")
		return nil
	}
	return &u
}
