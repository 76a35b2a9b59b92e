// Package memory implementa los repositorios en memoria. Lo usan los tests
// y el modo storage.driver=memory para desarrollo local.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pisciapp/backend/internal/domain/repository"
)

// Store agrupa ambos repositorios sobre el mismo estado.
type Store struct {
	users    *UserRepo
	sessions *SessionRepo
}

func New() *Store {
	users := NewUserRepo()
	return &Store{users: users, sessions: NewSessionRepo(users)}
}

func (s *Store) Users() repository.UserRepository       { return s.users }
func (s *Store) Sessions() repository.SessionRepository { return s.sessions }
func (s *Store) Ping(context.Context) error             { return nil }
func (s *Store) Close()                                 {}

// ─── UserRepository ───

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*repository.User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]*repository.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepo) Create(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = repository.NormalizeEmail(u.Email)
	if _, dup := r.byEmail[u.Email]; dup {
		return repository.ErrConflict
	}
	if u.GoogleID != nil && r.googleTaken(*u.GoogleID, "") {
		return repository.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	r.byID[u.ID] = u.Clone()
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) Update(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Email = repository.NormalizeEmail(u.Email)
	if u.Email != cur.Email {
		if _, dup := r.byEmail[u.Email]; dup {
			return repository.ErrConflict
		}
	}
	if u.GoogleID != nil && r.googleTaken(*u.GoogleID, u.ID) {
		return repository.ErrConflict
	}
	u.UpdatedAt = time.Now().UTC()

	delete(r.byEmail, cur.Email)
	r.byID[u.ID] = u.Clone()
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) googleTaken(gid, exceptID string) bool {
	for id, u := range r.byID {
		if id != exceptID && u.GoogleID != nil && *u.GoogleID == gid {
			return true
		}
	}
	return false
}

func (r *UserRepo) SoftDeleteExpiredUnverified(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if !u.IsVerified && !u.Deleted && u.VerificationExpiresAt != nil && u.VerificationExpiresAt.Before(now) {
			u.Deleted = true
			u.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) ListTrialEndingBetween(_ context.Context, from, to time.Time) ([]repository.User, error) {
	return r.filter(func(u *repository.User) bool {
		return u.TrialPeriod && !u.Deleted && u.BillingDate != nil &&
			!u.BillingDate.Before(from) && u.BillingDate.Before(to)
	}), nil
}

func (r *UserRepo) ListInGracePeriod(_ context.Context, now time.Time) ([]repository.User, error) {
	return r.filter(func(u *repository.User) bool {
		return u.GracePeriod && !u.Deleted && u.GraceExpiresAt != nil && u.GraceExpiresAt.After(now)
	}), nil
}

func (r *UserRepo) filter(keep func(*repository.User) bool) []repository.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.User
	for _, u := range r.byID {
		if keep(u) {
			out = append(out, *u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ─── SessionRepository ───

type SessionRepo struct {
	mu    sync.Mutex
	byID  map[string]*repository.Session
	users *UserRepo // para validar FK; nil = sin validación
}

func NewSessionRepo(users *UserRepo) *SessionRepo {
	return &SessionRepo{byID: make(map[string]*repository.Session), users: users}
}

func cloneSession(s *repository.Session) *repository.Session {
	cp := *s
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		cp.LastUsedAt = &t
	}
	if s.IPAddress != nil {
		v := *s.IPAddress
		cp.IPAddress = &v
	}
	if s.UserAgent != nil {
		v := *s.UserAgent
		cp.UserAgent = &v
	}
	return &cp
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *SessionRepo) Create(ctx context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	if r.users != nil {
		if _, err := r.users.GetByID(ctx, in.UserID); err != nil {
			return nil, repository.ErrInvalidInput
		}
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[id]; dup {
		return nil, repository.ErrConflict
	}
	s := &repository.Session{
		ID:               id,
		UserID:           in.UserID,
		RefreshTokenHash: in.RefreshTokenHash,
		CreatedAt:        time.Now().UTC(),
		ExpiresAt:        in.ExpiresAt,
		IPAddress:        strPtr(in.IPAddress),
		UserAgent:        strPtr(in.UserAgent),
	}
	r.byID[id] = s
	return cloneSession(s), nil
}

func (r *SessionRepo) FindByID(_ context.Context, id string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *SessionRepo) FindActiveByUserID(_ context.Context, userID string) ([]repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Session
	for _, s := range r.byID {
		if s.UserID == userID && !s.IsRevoked {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SessionRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.IsRevoked = true
	}
	return nil
}

func (r *SessionRepo) ClaimForRotation(_ context.Context, id string, usedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.IsRevoked {
		return false, nil
	}
	s.IsRevoked = true
	t := usedAt
	s.LastUsedAt = &t
	return true, nil
}

func (r *SessionRepo) RevokeAllByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if s.UserID == userID && !s.IsRevoked {
			s.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (r *SessionRepo) DeleteStale(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	n := 0
	for id, s := range r.byID {
		if s.CreatedAt.Before(before) && (s.IsRevoked || s.Expired(now)) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}
