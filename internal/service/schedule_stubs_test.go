package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

type stubTxRunner struct {
	locked []string
	err    error
}

func (s *stubTxRunner) WithTechnicianLock(ctx context.Context, technicianID string, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	s.locked = append(s.locked, technicianID)
	if s.err != nil {
		return s.err
	}
	return fn(ctx, nil)
}

type stubWeeklyStore struct {
	blocks     map[string][]models.WeeklyBlock
	replaceErr error
}

func (s *stubWeeklyStore) ListByTechnician(ctx context.Context, technicianID string) ([]models.WeeklyBlock, error) {
	return s.blocks[technicianID], nil
}

func (s *stubWeeklyStore) ReplaceWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, blocks []models.WeeklyBlock) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if s.blocks == nil {
		s.blocks = make(map[string][]models.WeeklyBlock)
	}
	for i := range blocks {
		blocks[i].ID = fmt.Sprintf("wb-%d", i+1)
		blocks[i].TechnicianID = technicianID
	}
	s.blocks[technicianID] = append([]models.WeeklyBlock(nil), blocks...)
	return nil
}

// stubExceptionStore keeps rows in memory and mimics the scoped queries of the repository.
type stubExceptionStore struct {
	rows      []models.ScheduleException
	nextID    int
	insertErr error
}

func (s *stubExceptionStore) ListByTechnician(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ScheduleException, error) {
	var out []models.ScheduleException
	for _, row := range s.rows {
		if row.TechnicianID != technicianID {
			continue
		}
		if filter.From != nil && row.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.Date.After(*filter.To) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *stubExceptionStore) ListByDateRangeWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, from, to models.Date) ([]models.ScheduleException, error) {
	return s.ListByTechnician(ctx, technicianID, models.ExceptionFilter{From: &from, To: &to})
}

func (s *stubExceptionStore) FindByIDsWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, ids []string) ([]models.ScheduleException, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.ScheduleException
	for _, row := range s.rows {
		if row.TechnicianID == technicianID && wanted[row.ID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubExceptionStore) InsertWithTx(ctx context.Context, tx *sqlx.Tx, rows []models.ScheduleException) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for i := range rows {
		s.nextID++
		rows[i].ID = fmt.Sprintf("ex-new-%d", s.nextID)
		s.rows = append(s.rows, rows[i])
	}
	return nil
}

func (s *stubExceptionStore) DeleteByIDs(ctx context.Context, technicianID string, ids []string) (int64, error) {
	return s.DeleteByIDsWithTx(ctx, nil, technicianID, ids)
}

func (s *stubExceptionStore) DeleteByIDsWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, ids []string) (int64, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	kept := s.rows[:0]
	var deleted int64
	for _, row := range s.rows {
		if row.TechnicianID == technicianID && wanted[row.ID] {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return deleted, nil
}

func (s *stubExceptionStore) idsFor(technicianID string) []string {
	var ids []string
	for _, row := range s.rows {
		if row.TechnicianID == technicianID {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

type stubInvalidator struct {
	technicians []string
}

func (s *stubInvalidator) InvalidateTechnician(ctx context.Context, technicianID string) error {
	s.technicians = append(s.technicians, technicianID)
	return nil
}

// memoryCache satisfies CacheRepository with JSON round-trips like the Redis implementation.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func activeTechnicians(ids ...string) *mockTechnicianRepo {
	repo := &mockTechnicianRepo{items: make(map[string]*models.Technician)}
	for _, id := range ids {
		repo.items[id] = &models.Technician{ID: id, FullName: "Tech " + id, Timezone: "UTC", Active: true}
	}
	return repo
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }
