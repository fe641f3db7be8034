package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// MemoryDB is an in-process implementation of Database.
// Batches are checked in full before any document is written, so a rejected batch leaves no trace.
type MemoryDB struct {
	mu         sync.RWMutex
	requesters *table[model.RequesterProfile]
	volunteers *table[model.VolunteerProfile]
	requests   *table[model.Request]
	matches    *table[model.Match]
	admins     map[string]model.AdminProfile
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		requesters: newTable(
			func(r model.RequesterProfile) (string, int64) { return r.ID, r.Version },
			func(r model.RequesterProfile, v int64) model.RequesterProfile {
				r.Version = v
				r.Frequency = slices.Clone(r.Frequency)
				r.PreferredTimes = slices.Clone(r.PreferredTimes)
				return r
			},
		),
		volunteers: newTable(
			func(v model.VolunteerProfile) (string, int64) { return v.ID, v.Version },
			func(v model.VolunteerProfile, version int64) model.VolunteerProfile {
				v.Version = version
				v.AvailableDays = slices.Clone(v.AvailableDays)
				v.AvailableHours = slices.Clone(v.AvailableHours)
				v.Frequency = slices.Clone(v.Frequency)
				v.ActiveMatchIDs = slices.Clone(v.ActiveMatchIDs)
				return v
			},
		),
		requests: newTable(
			func(r model.Request) (string, int64) { return r.ID, r.Version },
			func(r model.Request, v int64) model.Request {
				r.Version = v
				r.DeclinedVolunteers = slices.Clone(r.DeclinedVolunteers)
				return r
			},
		),
		matches: newTable(
			func(m model.Match) (string, int64) { return m.ID, m.Version },
			func(m model.Match, v int64) model.Match {
				m.Version = v
				return m
			},
		),
		admins: make(map[string]model.AdminProfile),
	}
}

// Ping always succeeds
func (m *MemoryDB) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryDB) GetRequester(ctx context.Context, id string) (*model.RequesterProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requesters.get(id)
}

func (m *MemoryDB) GetVolunteer(ctx context.Context, id string) (*model.VolunteerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volunteers.get(id)
}

func (m *MemoryDB) ListRequesters(ctx context.Context) ([]model.RequesterProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requesters.list(nil), nil
}

func (m *MemoryDB) ListVolunteers(ctx context.Context) ([]model.VolunteerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volunteers.list(nil), nil
}

func (m *MemoryDB) ListAdmins(ctx context.Context) ([]model.AdminProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	admins := make([]model.AdminProfile, 0, len(m.admins))
	for _, a := range m.admins {
		admins = append(admins, a)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

// InsertRequester registers a new requester
func (m *MemoryDB) InsertRequester(ctx context.Context, requester *model.RequesterProfile) error {
	if err := model.ValidateRequester(requester); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requesters.insert(*requester)
}

// InsertVolunteer registers a new volunteer
func (m *MemoryDB) InsertVolunteer(ctx context.Context, volunteer *model.VolunteerProfile) error {
	if err := model.ValidateVolunteer(volunteer); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volunteers.insert(*volunteer)
}

// InsertAdmin registers a new admin
func (m *MemoryDB) InsertAdmin(ctx context.Context, admin *model.AdminProfile) error {
	if err := model.ValidateAdmin(admin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.admins[admin.ID]; exists {
		return fmt.Errorf("admin %s: %w", admin.ID, ErrConflict)
	}
	m.admins[admin.ID] = *admin
	return nil
}

func (m *MemoryDB) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests.get(id)
}

func (m *MemoryDB) ListRequests(ctx context.Context) ([]model.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests.list(nil), nil
}

func (m *MemoryDB) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests.list(func(r model.Request) bool { return r.RequesterID == requesterID }), nil
}

func (m *MemoryDB) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matches.get(id)
}

func (m *MemoryDB) ListMatches(ctx context.Context) ([]model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matches.list(nil), nil
}

// ApplyBatch applies every write in the batch or none of them
func (m *MemoryDB) ApplyBatch(ctx context.Context, batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check phase: nothing is written until every precondition holds
	for _, r := range batch.Requesters {
		if err := m.requesters.checkPut(r); err != nil {
			return err
		}
	}
	for _, v := range batch.Volunteers {
		if err := m.volunteers.checkPut(v); err != nil {
			return err
		}
	}
	for _, r := range batch.Requests {
		if err := m.requests.checkPut(r); err != nil {
			return err
		}
	}
	for _, mt := range batch.Matches {
		if err := m.matches.checkPut(mt); err != nil {
			return err
		}
	}
	for _, ref := range batch.DeleteRequesters {
		if err := m.requesters.checkDelete(ref); err != nil {
			return err
		}
	}
	for _, ref := range batch.DeleteVolunteers {
		if err := m.volunteers.checkDelete(ref); err != nil {
			return err
		}
	}
	for _, ref := range batch.DeleteRequests {
		if err := m.requests.checkDelete(ref); err != nil {
			return err
		}
	}
	for _, ref := range batch.DeleteMatches {
		if err := m.matches.checkDelete(ref); err != nil {
			return err
		}
	}

	// Write phase
	for _, r := range batch.Requesters {
		m.requesters.put(r)
	}
	for _, v := range batch.Volunteers {
		m.volunteers.put(v)
	}
	for _, r := range batch.Requests {
		m.requests.put(r)
	}
	for _, mt := range batch.Matches {
		m.matches.put(mt)
	}
	for _, ref := range batch.DeleteRequesters {
		m.requesters.delete(ref.ID)
	}
	for _, ref := range batch.DeleteVolunteers {
		m.volunteers.delete(ref.ID)
	}
	for _, ref := range batch.DeleteRequests {
		m.requests.delete(ref.ID)
	}
	for _, ref := range batch.DeleteMatches {
		m.matches.delete(ref.ID)
	}

	return nil
}

// table is a versioned collection of documents of one type
type table[T any] struct {
	rows map[string]T
	key  func(T) (string, int64)
	// withVersion returns a copy of the document with the given version and no shared slices
	withVersion func(T, int64) T
}

func newTable[T any](key func(T) (string, int64), withVersion func(T, int64) T) *table[T] {
	return &table[T]{
		rows:        make(map[string]T),
		key:         key,
		withVersion: withVersion,
	}
}

func (t *table[T]) get(id string) (*T, error) {
	row, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	_, version := t.key(row)
	doc := t.withVersion(row, version)
	return &doc, nil
}

// list returns matching documents ordered by id
func (t *table[T]) list(keep func(T) bool) []T {
	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]T, 0, len(ids))
	for _, id := range ids {
		row := t.rows[id]
		if keep != nil && !keep(row) {
			continue
		}
		_, version := t.key(row)
		result = append(result, t.withVersion(row, version))
	}
	return result
}

func (t *table[T]) insert(doc T) error {
	id, _ := t.key(doc)
	if _, exists := t.rows[id]; exists {
		return fmt.Errorf("%s already exists: %w", id, ErrConflict)
	}
	t.rows[id] = t.withVersion(doc, 1)
	return nil
}

func (t *table[T]) checkPut(doc T) error {
	id, version := t.key(doc)
	current, exists := t.rows[id]
	if version == 0 {
		if exists {
			return fmt.Errorf("%s already exists: %w", id, ErrConflict)
		}
		return nil
	}
	if !exists {
		return fmt.Errorf("%s no longer exists: %w", id, ErrConflict)
	}
	if _, stored := t.key(current); stored != version {
		return fmt.Errorf("%s is at version %d, expected %d: %w", id, stored, version, ErrConflict)
	}
	return nil
}

func (t *table[T]) checkDelete(ref Ref) error {
	current, exists := t.rows[ref.ID]
	if !exists {
		return fmt.Errorf("%s no longer exists: %w", ref.ID, ErrConflict)
	}
	if _, stored := t.key(current); stored != ref.Version {
		return fmt.Errorf("%s is at version %d, expected %d: %w", ref.ID, stored, ref.Version, ErrConflict)
	}
	return nil
}

func (t *table[T]) put(doc T) {
	id, version := t.key(doc)
	t.rows[id] = t.withVersion(doc, version+1)
}

func (t *table[T]) delete(id string) {
	delete(t.rows, id)
}
