package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"bizreport/api/internal/models"
	"bizreport/api/internal/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[string]models.User
	err        error
	createErr  error
	lastFilter repository.UserFilter
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]models.User)}
}

func (f *fakeUsers) put(user models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[user.ID] = user
}

func (f *fakeUsers) Create(ctx context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.User{}, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.User{}, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

type storedSession struct {
	models.RefreshSession
	seq int
}

// fakeSessions mirrors the SQL semantics of SessionRepository in memory.
type fakeSessions struct {
	mu           sync.Mutex
	rows         map[string]*storedSession
	seq          int
	revokeCalls  int
	revokeAlls   int
	getErr       error
	beforeRevoke func(id string)
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: make(map[string]*storedSession)}
}

func (f *fakeSessions) Create(ctx context.Context, s models.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.rows[s.ID] = &storedSession{RefreshSession: s, seq: f.seq}
	return nil
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (models.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return models.RefreshSession{}, f.getErr
	}
	row, ok := f.rows[id]
	if !ok {
		return models.RefreshSession{}, repository.ErrSessionNotFound
	}
	return row.RefreshSession, nil
}

// newest returns the rows of userID accepted by keep, newest first.
func (f *fakeSessions) newest(userID string, keep func(*storedSession) bool) []*storedSession {
	var out []*storedSession
	for _, row := range f.rows {
		if row.UserID == userID && keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

func (f *fakeSessions) FindCandidates(ctx context.Context, userID string, limit int) ([]models.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.newest(userID, func(r *storedSession) bool { return r.RevokedAt == nil })
	var out []models.RefreshSession
	for i, row := range rows {
		if i == limit {
			break
		}
		out = append(out, row.RefreshSession)
	}
	return out, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, id string, at time.Time) error {
	if f.beforeRevoke != nil {
		f.beforeRevoke(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	row, ok := f.rows[id]
	if !ok || row.RevokedAt != nil {
		return repository.ErrSessionNotFound
	}
	row.RevokedAt = &at
	return nil
}

func (f *fakeSessions) RevokeAll(ctx context.Context, userID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeAlls++
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) RevokeBeyond(ctx context.Context, userID string, keep int, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.newest(userID, func(r *storedSession) bool { return r.Usable(at) })
	var n int64
	for i, row := range rows {
		if i >= keep {
			row.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

// usable counts the sessions of userID that could still back a refresh.
func (f *fakeSessions) usable(userID string, now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.newest(userID, func(r *storedSession) bool { return r.Usable(now) }))
}

func (f *fakeSessions) get(id string) models.RefreshSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].RefreshSession
}

type fakePruner struct {
	mu    sync.Mutex
	users []string
}

func (p *fakePruner) Schedule(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
}

func (p *fakePruner) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

func (f *fakeUsers) List(ctx context.Context, filter repository.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	f.lastFilter = filter
	var out []models.User
	for _, u := range f.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.Offset >= len(out) {
		return []models.User{}, total, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeUsers) Update(ctx context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) SetActive(ctx context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsActive = active
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) CountByRole(ctx context.Context) (map[models.UserRole]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.UserRole]int)
	for _, u := range f.byID {
		counts[u.Role]++
	}
	return counts, nil
}

func (f *fakeUsers) Recent(ctx context.Context, limit int) ([]models.User, error) {
	users, _, err := f.List(ctx, repository.UserFilter{Limit: limit})
	return users, err
}

func (f *fakeUsers) Options(ctx context.Context, role *models.UserRole, limit int) ([]models.User, error) {
	users, _, err := f.List(ctx, repository.UserFilter{Role: role, Limit: limit})
	return users, err
}

type fakeBusinesses struct {
	mu   sync.Mutex
	byID map[string]models.Business
}

func newFakeBusinesses() *fakeBusinesses {
	return &fakeBusinesses{byID: make(map[string]models.Business)}
}

func (f *fakeBusinesses) put(b models.Business) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[b.ID] = b
}

func (f *fakeBusinesses) Create(ctx context.Context, b models.Business) error {
	f.put(b)
	return nil
}

func (f *fakeBusinesses) GetByID(ctx context.Context, id string) (models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return models.Business{}, repository.ErrBusinessNotFound
	}
	return b, nil
}

func (f *fakeBusinesses) GetOwned(ctx context.Context, id string, ownerUserID string) (models.Business, error) {
	b, err := f.GetByID(ctx, id)
	if err != nil {
		return models.Business{}, err
	}
	if b.OwnerUserID == nil || *b.OwnerUserID != ownerUserID {
		return models.Business{}, repository.ErrBusinessNotFound
	}
	return b, nil
}

func (f *fakeBusinesses) owned(ownerUserID string) []models.Business {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Business
	for _, b := range f.byID {
		if ownerUserID == "" || (b.OwnerUserID != nil && *b.OwnerUserID == ownerUserID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeBusinesses) List(ctx context.Context, filter repository.BusinessFilter) ([]models.Business, int, error) {
	out := f.owned(filter.OwnerUserID)
	return out, len(out), nil
}

func (f *fakeBusinesses) Update(ctx context.Context, b models.Business) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[b.ID]; !ok {
		return repository.ErrBusinessNotFound
	}
	f.byID[b.ID] = b
	return nil
}

func (f *fakeBusinesses) Options(ctx context.Context, limit int) ([]models.Business, error) {
	return f.owned(""), nil
}

func (f *fakeBusinesses) Recent(ctx context.Context, ownerUserID string, limit int) ([]models.Business, error) {
	out := f.owned(ownerUserID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBusinesses) Count(ctx context.Context, ownerUserID string) (int, error) {
	return len(f.owned(ownerUserID)), nil
}

type fakeReports struct {
	mu         sync.Mutex
	byID       map[string]models.Report
	createErr  error
	lastFilter repository.ReportFilter
	ownerOf    func(businessID string) string
}

func newFakeReports() *fakeReports {
	return &fakeReports{byID: make(map[string]models.Report)}
}

func (f *fakeReports) put(r models.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[r.ID] = r
}

func (f *fakeReports) Create(ctx context.Context, r models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.byID[r.ID] = r
	return nil
}

func (f *fakeReports) GetByID(ctx context.Context, id string) (models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return models.Report{}, repository.ErrReportNotFound
	}
	return r, nil
}

func (f *fakeReports) matching(filter repository.ReportFilter) []models.Report {
	var out []models.Report
	for _, r := range f.byID {
		if filter.CreatedByUserID != "" && r.CreatedByUserID != filter.CreatedByUserID {
			continue
		}
		if filter.BusinessID != "" && r.BusinessID != filter.BusinessID {
			continue
		}
		if filter.ReportType != nil && r.ReportType != *filter.ReportType {
			continue
		}
		if filter.OwnerUserID != "" && (f.ownerOf == nil || f.ownerOf(r.BusinessID) != filter.OwnerUserID) {
			continue
		}
		if filter.From != nil && r.CreatedAt.Before(*filter.From) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeReports) List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	out := f.matching(filter)
	total := len(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeReports) Data(ctx context.Context, filter repository.ReportFilter) ([]models.ReportDatum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReportDatum
	for _, r := range f.matching(filter) {
		out = append(out, models.ReportDatum{BusinessID: r.BusinessID, Data: r.Data, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (f *fakeReports) CountByType(ctx context.Context, filter repository.ReportFilter) (map[models.ReportType]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	filter.ReportType = nil
	counts := make(map[models.ReportType]int, len(models.ReportTypes))
	for _, t := range models.ReportTypes {
		counts[t] = 0
	}
	for _, r := range f.matching(filter) {
		counts[r.ReportType]++
	}
	return counts, nil
}

type storedObject struct {
	body        []byte
	contentType string
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]storedObject
	removed []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string]storedObject)}
}

func (f *fakeObjects) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(raw)) != size {
		return fmt.Errorf("size mismatch: read %d, declared %d", len(raw), size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = storedObject{body: raw, contentType: contentType}
	return nil
}

func (f *fakeObjects) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjects) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://objects.test/" + key + "?sig=1", nil
}

type fakeInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys...)
	return nil
}
