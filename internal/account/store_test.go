package account

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/ecochamps/ecochamps-service/internal/catalog"
	"github.com/ecochamps/ecochamps-service/internal/kv"
)

// flakyKV wraps a memory store and fails writes on demand.
type flakyKV struct {
	kv.Store
	failSet    bool
	failSetKey string
	failDelete bool
	sets       int
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.failSet || (f.failSetKey != "" && f.failSetKey == key) {
		return errors.New("disk full")
	}
	f.sets++
	return f.Store.Set(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errors.New("disk full")
	}
	return f.Store.Delete(ctx, key)
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *flakyKV) {
	t.Helper()
	backing := &flakyKV{Store: kv.NewMemoryStore()}
	s, err := NewStore(context.Background(), backing, catalog.Default(), opts...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, backing
}

func register(t *testing.T, s *Store, email string) Record {
	t.Helper()
	rec, err := s.Register(context.Background(), Registration{
		DisplayName:  "Alex Green",
		Organization: "Springfield High",
		Identifier:   email,
		Secret:       "s3cret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return rec
}

func TestRegisterCreatesRecordAndSession(t *testing.T) {
	s, _ := newTestStore(t)
	rec := register(t, s, "alex@example.com")

	want := Record{
		Identifier:          "alex@example.com",
		Secret:              "s3cret",
		DisplayName:         "Alex Green",
		Organization:        "Springfield High",
		CompletedChallenges: []string{},
		EarnedBadges:        []string{},
		AvatarSeed:          "Alex Green",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Fatalf("record = %+v, want %+v", rec, want)
	}

	active, ok := s.Active()
	if !ok || active.Identifier != rec.Identifier {
		t.Fatalf("expected active session for %s", rec.Identifier)
	}
}

func TestRegisterThenAuthenticateReturnsSameRecord(t *testing.T) {
	s, _ := newTestStore(t)
	created := register(t, s, "alex@example.com")
	if err := s.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	got, err := s.Authenticate(context.Background(), "alex@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !reflect.DeepEqual(got, created) {
		t.Fatalf("authenticated record differs: %+v vs %+v", got, created)
	}
}

func TestRegisterDuplicateLeavesExistingRecord(t *testing.T) {
	s, _ := newTestStore(t)
	original := register(t, s, "alex@example.com")

	_, err := s.Register(context.Background(), Registration{
		DisplayName:  "Impostor",
		Organization: "Elsewhere",
		Identifier:   "alex@example.com",
		Secret:       "other",
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}

	stored, err := s.Get(context.Background(), "alex@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(stored, original) {
		t.Fatalf("existing record modified: %+v", stored)
	}
}

func TestRegisterSessionWriteFailureRollsBackAccount(t *testing.T) {
	s, backing := newTestStore(t)
	in := Registration{
		DisplayName:  "Alex Green",
		Organization: "Springfield High",
		Identifier:   "alex@example.com",
		Secret:       "s3cret",
	}

	backing.failSetKey = SessionKey
	if _, err := s.Register(context.Background(), in); err == nil {
		t.Fatal("expected Register to fail when the session pointer cannot be written")
	}
	if _, err := s.Get(context.Background(), in.Identifier); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("account persisted after failed Register: %v", err)
	}
	if _, ok := s.Active(); ok {
		t.Fatal("active session set after failed Register")
	}

	backing.failSetKey = ""
	rec, err := s.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("retry Register: %v", err)
	}
	if active, ok := s.Active(); !ok || active.Identifier != rec.Identifier {
		t.Fatalf("retry did not start a session: %+v %v", active, ok)
	}
}

func TestRegisterRequiresAllFields(t *testing.T) {
	s, _ := newTestStore(t)
	cases := []Registration{
		{Organization: "o", Identifier: "i", Secret: "s"},
		{DisplayName: "n", Identifier: "i", Secret: "s"},
		{DisplayName: "n", Organization: "o", Secret: "s"},
		{DisplayName: "n", Organization: "o", Identifier: "i", Secret: "   "},
	}
	for _, in := range cases {
		if _, err := s.Register(context.Background(), in); !errors.Is(err, ErrMissingField) {
			t.Fatalf("Register(%+v) = %v, want ErrMissingField", in, err)
		}
	}
}

func TestAuthenticateFailures(t *testing.T) {
	s, backing := newTestStore(t)
	register(t, s, "alex@example.com")
	if err := s.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	before, _ := backing.Store.Get(context.Background(), AccountsKey)
	setsBefore := backing.sets

	if _, err := s.Authenticate(context.Background(), "nobody@example.com", "x"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := s.Authenticate(context.Background(), "alex@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	after, _ := backing.Store.Get(context.Background(), AccountsKey)
	if before != after || backing.sets != setsBefore {
		t.Fatalf("failed authentication must not write anything")
	}
	if _, ok := s.Active(); ok {
		t.Fatalf("failed authentication must not start a session")
	}
}

func TestEndSession(t *testing.T) {
	s, backing := newTestStore(t)
	register(t, s, "alex@example.com")

	if err := s.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, ok := s.Active(); ok {
		t.Fatalf("expected anonymous after EndSession")
	}
	if _, err := backing.Get(context.Background(), SessionKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("session pointer still persisted: %v", err)
	}
	if _, err := s.Get(context.Background(), "alex@example.com"); err != nil {
		t.Fatalf("record must survive logout: %v", err)
	}
}

func TestSessionRestoredOnStartup(t *testing.T) {
	backing := kv.NewMemoryStore()
	ctx := context.Background()
	first, err := NewStore(ctx, backing, catalog.Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	register(t, first, "alex@example.com")

	second, err := NewStore(ctx, backing, catalog.Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	active, ok := second.Active()
	if !ok || active.Identifier != "alex@example.com" {
		t.Fatalf("expected restored session, got %+v %v", active, ok)
	}

	if err := backing.Set(ctx, SessionKey, "ghost@example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	third, err := NewStore(ctx, backing, catalog.Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, ok := third.Active(); ok {
		t.Fatalf("dangling pointer must start anonymous")
	}
}

func TestMalformedStateIsSurfaced(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	if err := backing.Set(ctx, AccountsKey, "{broken"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s, err := NewStore(ctx, backing, catalog.Default())
	if err != nil {
		t.Fatalf("NewStore without session should not read the map: %v", err)
	}
	if _, err := s.Register(ctx, Registration{DisplayName: "n", Organization: "o", Identifier: "i", Secret: "s"}); !errors.Is(err, ErrMalformedState) {
		t.Fatalf("expected ErrMalformedState, got %v", err)
	}
	raw, _ := backing.Get(ctx, AccountsKey)
	if raw != "{broken" {
		t.Fatalf("malformed blob must not be overwritten, got %q", raw)
	}

	if err := backing.Set(ctx, SessionKey, "i"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := NewStore(ctx, backing, catalog.Default()); !errors.Is(err, ErrMalformedState) {
		t.Fatalf("expected ErrMalformedState on restore, got %v", err)
	}
}

func TestRecordChallengeCompletionIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	first, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch3", 30)
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	second, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch3", 30)
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}

	if first.AlreadyCompleted || !second.AlreadyCompleted {
		t.Fatalf("AlreadyCompleted flags wrong: %v %v", first.AlreadyCompleted, second.AlreadyCompleted)
	}
	if second.PointsAwarded != 0 || len(second.NewBadges) != 0 {
		t.Fatalf("repeat completion must award nothing: %+v", second)
	}
	if second.Record.Points != 30 || !reflect.DeepEqual(second.Record.CompletedChallenges, []string{"ch3"}) {
		t.Fatalf("unexpected state after repeat: %+v", second.Record)
	}
	if !reflect.DeepEqual(first.Record, second.Record) {
		t.Fatalf("repeat changed the record")
	}
}

func TestPointsThresholdBadgeGrantedInSameUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	rec, err := s.CreditPoints(ctx, "alex@example.com", 490)
	if err != nil {
		t.Fatalf("CreditPoints: %v", err)
	}
	if rec.Points != 490 || len(rec.EarnedBadges) != 0 {
		t.Fatalf("credit must not unlock badges by default: %+v", rec)
	}

	res, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch3", 20)
	if err != nil {
		t.Fatalf("RecordChallengeCompletion: %v", err)
	}
	if res.Record.Points != 510 {
		t.Fatalf("points = %d, want 510", res.Record.Points)
	}
	if !slices.Contains(res.NewBadges, "b3") || !res.Record.HasBadge("b3") {
		t.Fatalf("expected b3 granted, got %v", res.NewBadges)
	}
	if !slices.Contains(res.NewBadges, "b1") {
		t.Fatalf("expected first-completion badge alongside, got %v", res.NewBadges)
	}
}

func TestThreeCompletionsBadgeGrantedOnce(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	for _, id := range []string{"ch3", "ch4"} {
		res, err := s.RecordChallengeCompletion(ctx, "alex@example.com", id, 10)
		if err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
		if slices.Contains(res.NewBadges, "b2") {
			t.Fatalf("b2 granted too early at %s", id)
		}
	}

	third, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch5", 10)
	if err != nil {
		t.Fatalf("third completion: %v", err)
	}
	if !slices.Contains(third.NewBadges, "b2") {
		t.Fatalf("expected b2 on third completion, got %v", third.NewBadges)
	}

	fourth, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch1", 10)
	if err != nil {
		t.Fatalf("fourth completion: %v", err)
	}
	if slices.Contains(fourth.NewBadges, "b2") {
		t.Fatalf("b2 re-granted on fourth completion")
	}
	count := 0
	for _, b := range fourth.Record.EarnedBadges {
		if b == "b2" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("b2 appears %d times", count)
	}
	if !slices.Contains(fourth.NewBadges, "b4") {
		t.Fatalf("expected waste badge for ch1, got %v", fourth.NewBadges)
	}
}

func TestMonotonicAcrossOperations(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	prev, _ := s.Get(ctx, "alex@example.com")
	steps := []func() error{
		func() error { _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch1", 50); return err },
		func() error { _, err := s.CreditPoints(ctx, "alex@example.com", 30); return err },
		func() error { _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch1", 50); return err },
		func() error { _, err := s.UpdateAvatarSeed(ctx, "alex@example.com", "leafy"); return err },
		func() error { _, err := s.CreditPoints(ctx, "alex@example.com", -5); return err },
		func() error { _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch2", -1); return err },
		func() error { _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch2", 75); return err },
	}
	for i, step := range steps {
		_ = step()
		cur, err := s.Get(ctx, "alex@example.com")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if cur.Points < prev.Points || len(cur.CompletedChallenges) < len(prev.CompletedChallenges) || len(cur.EarnedBadges) < len(prev.EarnedBadges) {
			t.Fatalf("step %d decreased state: %+v -> %+v", i, prev, cur)
		}
		prev = cur
	}
	if prev.Points != 155 {
		t.Fatalf("points = %d, want 155", prev.Points)
	}
}

func TestNegativeAmountsRejected(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	if _, err := s.CreditPoints(ctx, "alex@example.com", -1); !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("expected ErrInvalidPoints, got %v", err)
	}
	if _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch1", -1); !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("expected ErrInvalidPoints, got %v", err)
	}
	if _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "", 1); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestOperationsOnUnknownAccount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordChallengeCompletion(ctx, "ghost", "ch1", 1); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("completion: %v", err)
	}
	if _, err := s.CreditPoints(ctx, "ghost", 1); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("credit: %v", err)
	}
	if _, err := s.UpdateAvatarSeed(ctx, "ghost", "seed"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("avatar: %v", err)
	}
}

func TestUpdateAvatarSeed(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")

	rec, err := s.UpdateAvatarSeed(context.Background(), "alex@example.com", "k3x9q2ab")
	if err != nil {
		t.Fatalf("UpdateAvatarSeed: %v", err)
	}
	if rec.AvatarSeed != "k3x9q2ab" {
		t.Fatalf("seed = %q", rec.AvatarSeed)
	}
	active, _ := s.Active()
	if active.AvatarSeed != "k3x9q2ab" {
		t.Fatalf("active record not refreshed")
	}
	if _, err := s.UpdateAvatarSeed(context.Background(), "alex@example.com", ""); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	s, backing := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	backing.failSet = true
	if _, err := s.RecordChallengeCompletion(ctx, "alex@example.com", "ch1", 50); err == nil {
		t.Fatalf("expected write failure")
	}
	backing.failSet = false

	active, _ := s.Active()
	stored, _ := s.Get(ctx, "alex@example.com")
	for _, rec := range []Record{active, stored} {
		if rec.Points != 0 || len(rec.CompletedChallenges) != 0 || len(rec.EarnedBadges) != 0 {
			t.Fatalf("partial update leaked: %+v", rec)
		}
	}

	backing.failDelete = true
	if err := s.EndSession(ctx); err == nil {
		t.Fatalf("expected delete failure")
	}
	if _, ok := s.Active(); !ok {
		t.Fatalf("session must stay active when the pointer could not be cleared")
	}
}

func TestBadgesOnCreditOption(t *testing.T) {
	s, _ := newTestStore(t, WithBadgesOnCredit(true))
	register(t, s, "alex@example.com")

	rec, err := s.CreditPoints(context.Background(), "alex@example.com", 500)
	if err != nil {
		t.Fatalf("CreditPoints: %v", err)
	}
	if !reflect.DeepEqual(rec.EarnedBadges, []string{"b3"}) {
		t.Fatalf("expected only b3, got %v", rec.EarnedBadges)
	}

	again, err := s.Credit(context.Background(), "alex@example.com", 10)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if len(again.NewBadges) != 0 || again.Record.Points != 510 {
		t.Fatalf("held badge must not be granted again: %+v", again)
	}
}

func TestCreditReportsUnlockedBadges(t *testing.T) {
	s, _ := newTestStore(t, WithBadgesOnCredit(true))
	register(t, s, "alex@example.com")

	credit, err := s.Credit(context.Background(), "alex@example.com", 500)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if !reflect.DeepEqual(credit.NewBadges, []string{"b3"}) || !credit.Record.HasBadge("b3") {
		t.Fatalf("unexpected credit %+v", credit)
	}

	plain, _ := newTestStore(t)
	register(t, plain, "sam@example.com")
	credit, err = plain.Credit(context.Background(), "sam@example.com", 500)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if len(credit.NewBadges) != 0 || credit.NewBadges == nil {
		t.Fatalf("expected empty badge list without the option, got %#v", credit.NewBadges)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	original := Record{
		Identifier:          "alex@example.com",
		Secret:              "s3cret",
		DisplayName:         "Alex Green",
		Organization:        "Springfield High",
		Points:              125,
		CompletedChallenges: []string{"ch1", "ch3"},
		EarnedBadges:        []string{"b1"},
		AvatarSeed:          "leafy",
	}
	empty := Record{Identifier: "new@example.com", CompletedChallenges: []string{}, EarnedBadges: []string{}}

	for _, rec := range []Record{original, empty} {
		data, err := json.Marshal(map[string]Record{rec.Identifier: rec})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		backing := kv.NewMemoryStore()
		if err := backing.Set(context.Background(), AccountsKey, string(data)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		s, err := NewStore(context.Background(), backing, catalog.Default())
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		got, err := s.Get(context.Background(), rec.Identifier)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !reflect.DeepEqual(got, rec) {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
		}
	}
}

func TestLoadsWebClientBlob(t *testing.T) {
	blob := `{"priya@example.com":{"name":"Priya","school":"Greenwood","email":"priya@example.com","password":"pw","ecoPoints":75,"completedChallenges":["ch2"],"earnedBadges":null,"avatarSeed":"Priya"}}`
	backing := kv.NewMemoryStore()
	_ = backing.Set(context.Background(), AccountsKey, blob)
	_ = backing.Set(context.Background(), SessionKey, "priya@example.com")

	s, err := NewStore(context.Background(), backing, catalog.Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	active, ok := s.Active()
	if !ok || active.Points != 75 || active.EarnedBadges == nil {
		t.Fatalf("unexpected restored record: %+v", active)
	}
}

func TestListOrdersByIdentifier(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "zed@example.com")
	register(t, s, "amy@example.com")

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Identifier != "amy@example.com" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestConcurrentCompletionsDoNotLoseUpdates(t *testing.T) {
	s, _ := newTestStore(t)
	register(t, s, "alex@example.com")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.CreditPoints(ctx, "alex@example.com", 10)
			_, _ = s.RecordChallengeCompletion(ctx, "alex@example.com", "ch4", 100)
		}()
	}
	wg.Wait()

	rec, _ := s.Get(ctx, "alex@example.com")
	if rec.Points != 300 {
		t.Fatalf("points = %d, want 300", rec.Points)
	}
	if !reflect.DeepEqual(rec.CompletedChallenges, []string{"ch4"}) {
		t.Fatalf("completions = %v", rec.CompletedChallenges)
	}
}
