package profile

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Profile
}

func newMemRepo(ps ...Profile) *memRepo {
	m := &memRepo{rows: make(map[uuid.UUID]Profile)}
	for _, p := range ps {
		m.rows[p.ID] = p
	}
	return m
}

func (m *memRepo) Create(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.ID] = *p
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memRepo) FindByUsername(_ context.Context, username string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if strings.EqualFold(p.Username, username) {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Profile
	for _, id := range ids {
		if p, ok := m.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) Search(_ context.Context, q string, limit int) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(q)
	var out []Profile
	for _, p := range m.rows {
		if strings.Contains(strings.ToLower(p.Username), q) || strings.Contains(strings.ToLower(p.FullName), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["full_name"].(string); ok {
		p.FullName = v
	}
	if v, ok := updates["username"].(string); ok {
		p.Username = v
	}
	m.rows[id] = p
	return nil
}
