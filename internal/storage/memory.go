package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/config"
	"roomresq/backend/internal/models"

	"github.com/lib/pq"
)

type memComplaint struct {
	c   *models.Complaint
	seq uint64
}

type expiring struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Storage used by tests and by STORAGE_DRIVER=memory.
// One mutex serializes every write, which gives the same check-and-set and
// read-modify-write guarantees as the PostgreSQL implementation.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	seq         uint64
	historySeq  uint
	complaints  map[string]*memComplaint
	history     map[string][]models.ComplaintHistory
	users       map[string]*models.User
	emails      map[string]string
	codes       map[string]expiring
	refresh     map[string]expiring
	subscribers map[chan models.ComplaintEvent]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		complaints:  make(map[string]*memComplaint),
		history:     make(map[string][]models.ComplaintHistory),
		users:       make(map[string]*models.User),
		emails:      make(map[string]string),
		codes:       make(map[string]expiring),
		refresh:     make(map[string]expiring),
		subscribers: make(map[chan models.ComplaintEvent]struct{}),
	}
}

// SetClock replaces the time source for expiry checks and timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := ctx.Err(); err != nil {
		return apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := c.BeforeCreate(nil); err != nil {
		return err
	}
	if _, exists := m.complaints[c.ID]; exists {
		return apperr.Conflict("complaint already exists")
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	m.seq++
	m.complaints[c.ID] = &memComplaint{c: c.Clone(), seq: m.seq}
	return nil
}

func (m *Memory) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.complaints[id]
	if !ok {
		return nil, apperr.NotFound("complaint not found")
	}
	return rec.c.Clone(), nil
}

func (m *Memory) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := make([]*memComplaint, 0, len(m.complaints))
	for _, rec := range m.complaints {
		c := rec.c
		if f.SubmitterID != "" && c.SubmitterID != f.SubmitterID {
			continue
		}
		if f.AssignedStaffID != "" && !c.AssignedTo(f.AssignedStaffID) {
			continue
		}
		if f.UnassignedOnly && c.IsAssigned() {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.c.CreatedAt.Equal(b.c.CreatedAt) {
			return a.c.CreatedAt.After(b.c.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.Complaint, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.c.Clone())
	}
	return out, nil
}

func (m *Memory) AssignComplaint(ctx context.Context, id, staffID string, at time.Time) (*models.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.complaints[id]
	if !ok {
		return nil, apperr.NotFound("complaint not found")
	}
	if rec.c.IsAssigned() && !rec.c.AssignedTo(staffID) {
		return nil, apperr.Conflict("complaint %s is already assigned", id)
	}
	sid := staffID
	rec.c.AssignedStaffID = &sid
	rec.c.UpdatedAt = at
	return rec.c.Clone(), nil
}

func (m *Memory) UpdateComplaint(ctx context.Context, id string, mutate Mutation) (*models.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.complaints[id]
	if !ok {
		return nil, apperr.NotFound("complaint not found")
	}
	// Mutate a copy so a failed mutation leaves the record untouched.
	working := rec.c.Clone()
	entry, err := mutate(working)
	if err != nil {
		return nil, err
	}
	working.ID = rec.c.ID
	working.SubmitterID = rec.c.SubmitterID
	rec.c = working

	if entry != nil {
		m.historySeq++
		e := *entry
		e.ID = m.historySeq
		e.ComplaintID = id
		if e.CreatedAt.IsZero() {
			e.CreatedAt = m.now()
		}
		m.history[id] = append(m.history[id], e)
		entry.ID = e.ID
	}
	return rec.c.Clone(), nil
}

func (m *Memory) ListHistory(ctx context.Context, complaintID string) ([]models.ComplaintHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.history[complaintID]
	out := make([]models.ComplaintHistory, len(entries))
	copy(out, entries)
	// IDs are assigned under the lock, so they are the commit order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.Roles = append(pq.StringArray(nil), u.Roles...)
	return &out
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := m.emails[u.Email]; taken {
		return apperr.Conflict("user %s already exists", u.Email)
	}
	if err := u.BeforeCreate(nil); err != nil {
		return err
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = cloneUser(u)
	m.emails[u.Email] = u.ID
	return nil
}

func (m *Memory) SaveUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if owner, taken := m.emails[u.Email]; taken && owner != u.ID {
		return apperr.Conflict("user %s already exists", u.Email)
	}
	if old, ok := m.users[u.ID]; ok && old.Email != u.Email {
		delete(m.emails, old.Email)
	}
	u.UpdatedAt = m.now()
	m.users[u.ID] = cloneUser(u)
	m.emails[u.Email] = u.ID
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return cloneUser(u), nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.From(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return cloneUser(m.users[id]), nil
}

func (m *Memory) MarkUserVerified(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Verified = true
	u.UpdatedAt = m.now()
	return nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id, displayName, roomNumber string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	u.DisplayName = displayName
	u.RoomNumber = roomNumber
	u.UpdatedAt = m.now()
	return cloneUser(u), nil
}

func (m *Memory) ListStaff(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	staff := []models.User{}
	for _, u := range m.users {
		if u.IsStaff() {
			staff = append(staff, *cloneUser(u))
		}
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].DisplayName < staff[j].DisplayName })
	return staff, nil
}

func (m *Memory) getExpiring(store map[string]expiring, key, what string) (string, error) {
	e, ok := store[key]
	if !ok {
		return "", apperr.NotFound("%s not found", what)
	}
	if !m.now().Before(e.expiresAt) {
		delete(store, key)
		return "", apperr.NotFound("%s not found", what)
	}
	return e.value, nil
}

func (m *Memory) SaveVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[verificationKey(email)] = expiring{value: code, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) GetVerificationCode(ctx context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getExpiring(m.codes, verificationKey(email), "verification code")
}

func (m *Memory) DeleteVerificationCode(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, verificationKey(email))
	return nil
}

func (m *Memory) SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[refreshKey(token)] = expiring{value: userID, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) GetRefreshToken(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getExpiring(m.refresh, refreshKey(token), "refresh token")
}

func (m *Memory) DeleteRefreshToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, refreshKey(token))
	return nil
}

// PublishEvent never blocks; a subscriber that is not keeping up misses events.
func (m *Memory) PublishEvent(ctx context.Context, ev models.ComplaintEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (m *Memory) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	ch := make(chan models.ComplaintEvent, config.ClientSendBuffer)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subscribers, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}
