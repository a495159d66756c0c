// Package account owns the user records: signup, login, the active session pointer,
// points accrual, challenge completion and badge unlocking.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ecochamps/ecochamps-service/internal/catalog"
	"github.com/ecochamps/ecochamps-service/internal/kv"
)

// Keys the store persists under. The values match the web client so existing data loads.
const (
	AccountsKey = "ecoChampsUserDb"
	SessionKey  = "ecoChampsCurrentUserEmail"
)

// Store is the single authority for account records and the active session.
// Every operation holds mu for its whole read-modify-write cycle.
type Store struct {
	mu sync.Mutex

	kv             kv.Store
	catalog        *catalog.Catalog
	secrets        SecretHasher
	logger         *slog.Logger
	badgesOnCredit bool

	active *Record
}

// Option configures a Store.
type Option func(*Store)

// WithSecretHasher overrides the default PlainSecrets.
func WithSecretHasher(h SecretHasher) Option {
	return func(s *Store) {
		if h != nil {
			s.secrets = h
		}
	}
}

// WithLogger sets the logger for account lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBadgesOnCredit makes CreditPoints evaluate badge rules too. Off by default:
// only challenge completion unlocks badges unless this is set.
func WithBadgesOnCredit(enabled bool) Option {
	return func(s *Store) { s.badgesOnCredit = enabled }
}

// NewStore builds the store and restores the persisted session, if any.
func NewStore(ctx context.Context, store kv.Store, cat *catalog.Catalog, opts ...Option) (*Store, error) {
	if store == nil {
		return nil, errors.New("key-value store is required")
	}
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	s := &Store{
		kv:      store,
		catalog: cat,
		secrets: PlainSecrets{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.restoreSession(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) restoreSession(ctx context.Context) error {
	identifier, err := s.kv.Get(ctx, SessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session pointer: %w", err)
	}

	db, err := s.load(ctx)
	if err != nil {
		return err
	}
	if rec, ok := db[identifier]; ok {
		s.setActive(rec)
		s.logger.Info("session restored", slog.String("userId", identifier))
	}
	return nil
}

// Register creates an account and makes it the active session.
func (s *Store) Register(ctx context.Context, in Registration) (Record, error) {
	if blank(in.DisplayName) || blank(in.Organization) || blank(in.Identifier) || blank(in.Secret) {
		return Record{}, ErrMissingField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	if _, exists := db[in.Identifier]; exists {
		return Record{}, ErrDuplicateAccount
	}

	stored, err := s.secrets.Hash(in.Secret)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Identifier:          in.Identifier,
		Secret:              stored,
		DisplayName:         in.DisplayName,
		Organization:        in.Organization,
		CompletedChallenges: []string{},
		EarnedBadges:        []string{},
		AvatarSeed:          in.DisplayName,
	}
	db[rec.Identifier] = rec
	if err := s.save(ctx, db); err != nil {
		return Record{}, err
	}
	if err := s.kv.Set(ctx, SessionKey, rec.Identifier); err != nil {
		delete(db, rec.Identifier)
		if rbErr := s.save(ctx, db); rbErr != nil {
			s.logger.Error("roll back registration failed",
				slog.String("userId", rec.Identifier),
				slog.Any("error", rbErr))
			return Record{}, errors.Join(fmt.Errorf("write session pointer: %w", err), rbErr)
		}
		return Record{}, fmt.Errorf("write session pointer: %w", err)
	}
	s.setActive(rec)

	s.logger.Info("account registered", slog.String("userId", rec.Identifier))
	return rec.clone(), nil
}

// Authenticate checks the secret and makes the account the active session.
// The account map is never written.
func (s *Store) Authenticate(ctx context.Context, identifier, secret string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := db[identifier]
	if !ok {
		return Record{}, ErrAccountNotFound
	}
	if !s.secrets.Matches(rec.Secret, secret) {
		return Record{}, ErrInvalidCredentials
	}
	if err := s.kv.Set(ctx, SessionKey, identifier); err != nil {
		return Record{}, fmt.Errorf("write session pointer: %w", err)
	}
	s.setActive(rec)

	s.logger.Info("account authenticated", slog.String("userId", identifier))
	return rec.clone(), nil
}

// EndSession clears the session pointer and the active record.
func (s *Store) EndSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session pointer: %w", err)
	}
	if s.active != nil {
		s.logger.Info("session ended", slog.String("userId", s.active.Identifier))
	}
	s.active = nil
	return nil
}

// RecordChallengeCompletion credits a challenge once. A repeat is reported through
// AlreadyCompleted and leaves the record untouched.
func (s *Store) RecordChallengeCompletion(ctx context.Context, identifier, challengeID string, points int) (Completion, error) {
	if blank(challengeID) {
		return Completion{}, ErrMissingField
	}
	if points < 0 {
		return Completion{}, ErrInvalidPoints
	}

	result := Completion{ChallengeID: challengeID, NewBadges: []string{}}
	rec, err := s.update(ctx, identifier, func(r *Record) bool {
		if r.HasCompleted(challengeID) {
			result.AlreadyCompleted = true
			return false
		}
		r.Points += points
		r.CompletedChallenges = append(r.CompletedChallenges, challengeID)
		unlocked := s.unlockedBadges(*r)
		r.EarnedBadges = append(r.EarnedBadges, unlocked...)

		result.PointsAwarded = points
		result.NewBadges = unlocked
		return true
	})
	if err != nil {
		return Completion{}, err
	}
	result.Record = rec

	if !result.AlreadyCompleted {
		s.logger.Info("challenge completed",
			slog.String("userId", identifier),
			slog.String("challengeId", challengeID),
			slog.Int("points", points),
			slog.Any("newBadges", result.NewBadges))
	}
	return result, nil
}

// CreditPoints adds amount to the balance. Badge rules are not re-evaluated unless
// the store was built WithBadgesOnCredit.
func (s *Store) CreditPoints(ctx context.Context, identifier string, amount int) (Record, error) {
	credit, err := s.Credit(ctx, identifier, amount)
	if err != nil {
		return Record{}, err
	}
	return credit.Record, nil
}

// Credit is CreditPoints that also reports the badges the credit unlocked.
func (s *Store) Credit(ctx context.Context, identifier string, amount int) (Credit, error) {
	if amount < 0 {
		return Credit{}, ErrInvalidPoints
	}
	result := Credit{NewBadges: []string{}}
	rec, err := s.update(ctx, identifier, func(r *Record) bool {
		r.Points += amount
		changed := amount != 0
		if s.badgesOnCredit {
			if unlocked := s.unlockedBadges(*r); len(unlocked) > 0 {
				r.EarnedBadges = append(r.EarnedBadges, unlocked...)
				result.NewBadges = unlocked
				changed = true
			}
		}
		return changed
	})
	if err != nil {
		return Credit{}, err
	}
	result.Record = rec
	return result, nil
}

// UpdateAvatarSeed overwrites the avatar seed.
func (s *Store) UpdateAvatarSeed(ctx context.Context, identifier, seed string) (Record, error) {
	if blank(seed) {
		return Record{}, ErrMissingField
	}
	return s.update(ctx, identifier, func(r *Record) bool {
		r.AvatarSeed = seed
		return true
	})
}

// Active returns the record of the current session, if any.
func (s *Store) Active() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Record{}, false
	}
	return s.active.clone(), true
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, identifier string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := db[identifier]
	if !ok {
		return Record{}, ErrAccountNotFound
	}
	return rec.clone(), nil
}

// List returns every record ordered by identifier.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(db))
	for _, rec := range db {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// update applies fn to a copy of the record and persists it when fn reports a change.
// Nothing is swapped in memory unless the write succeeded.
func (s *Store) update(ctx context.Context, identifier string, fn func(*Record) bool) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := db[identifier]
	if !ok {
		return Record{}, ErrAccountNotFound
	}

	next := rec.clone()
	if !fn(&next) {
		return next, nil
	}
	db[identifier] = next
	if err := s.save(ctx, db); err != nil {
		return Record{}, err
	}
	if s.active != nil && s.active.Identifier == identifier {
		s.setActive(next)
	}
	return next.clone(), nil
}

// unlockedBadges lists every catalog badge r does not hold whose rule r now satisfies.
func (s *Store) unlockedBadges(r Record) []string {
	progress := catalog.Progress{
		Completions: len(r.CompletedChallenges),
		Points:      r.Points,
		Categories:  make(map[catalog.Category]int),
	}
	for _, id := range r.CompletedChallenges {
		if ch, ok := s.catalog.Challenge(id); ok {
			progress.Categories[ch.Category]++
		}
	}

	unlocked := []string{}
	for _, b := range s.catalog.Badges() {
		if r.HasBadge(b.ID) {
			continue
		}
		if b.Rule.SatisfiedBy(progress) {
			unlocked = append(unlocked, b.ID)
		}
	}
	return unlocked
}

func (s *Store) load(ctx context.Context) (map[string]Record, error) {
	raw, err := s.kv.Get(ctx, AccountsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var db map[string]Record
	if err := json.Unmarshal([]byte(raw), &db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if db == nil {
		db = make(map[string]Record)
	}
	for key, rec := range db {
		if rec.Identifier == "" {
			rec.Identifier = key
		}
		rec.normalize()
		db[key] = rec
	}
	return db, nil
}

func (s *Store) save(ctx context.Context, db map[string]Record) error {
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := s.kv.Set(ctx, AccountsKey, string(data)); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}

func (s *Store) setActive(rec Record) {
	c := rec.clone()
	s.active = &c
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}
