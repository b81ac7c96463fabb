package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/inlines/g-stx-api/account/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	lists map[domain.ListKind]map[string]map[int32]bool
	err   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users: map[string]domain.User{},
		lists: map[domain.ListKind]map[string]map[int32]bool{},
	}
}

func (r *memRepo) CreateUser(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[u.Login]; ok {
		return domain.ErrUserExists
	}
	r.users[u.Login] = u
	return nil
}

func (r *memRepo) UserByLogin(_ context.Context, login string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.User{}, r.err
	}
	u, ok := r.users[login]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *memRepo) Releases(_ context.Context, kind domain.ListKind, login string) ([]domain.ReleaseItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ReleaseItem{}
	for id := range r.lists[kind][login] {
		out = append(out, domain.ReleaseItem{ReleaseID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReleaseID < out[j].ReleaseID })
	return out, nil
}

func (r *memRepo) AddRelease(_ context.Context, kind domain.ListKind, login string, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lists[kind] == nil {
		r.lists[kind] = map[string]map[int32]bool{}
	}
	if r.lists[kind][login] == nil {
		r.lists[kind][login] = map[int32]bool{}
	}
	r.lists[kind][login][id] = true
	return nil
}

func (r *memRepo) RemoveRelease(_ context.Context, kind domain.ListKind, login string, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lists[kind][login], id)
	return nil
}

func (r *memRepo) Collectors(_ context.Context, exclude string) ([]domain.Collector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Collector{}
	for login, ids := range r.lists[domain.KindCollection] {
		if login == exclude || len(ids) == 0 {
			continue
		}
		out = append(out, domain.Collector{UserLogin: login, ReleaseCount: int64(len(ids))})
	}
	return out, nil
}

// plainHasher evita o custo do argon2 nos testes de serviço.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain:" + pw, nil }
func (plainHasher) Verify(pw, encoded string) (bool, error) {
	return encoded == "plain:"+pw, nil
}

// countingHasher conta as verificações para comparar os caminhos de falha.
type countingHasher struct {
	plainHasher
	verifies []string
}

func (h *countingHasher) Verify(pw, encoded string) (bool, error) {
	h.verifies = append(h.verifies, encoded)
	return h.plainHasher.Verify(pw, encoded)
}

type staticTokens struct{}

func (staticTokens) Issue(login string) (string, error) { return "token-for-" + login, nil }

type recordingObserver struct {
	logins        []string
	registrations int
}

func (o *recordingObserver) LoginResult(success bool, reason string) {
	if success {
		o.logins = append(o.logins, "success")
		return
	}
	o.logins = append(o.logins, reason)
}

func (o *recordingObserver) Registered() { o.registrations++ }

func newTestService(repo domain.Repository, obs AuthObserver) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, plainHasher{}, staticTokens{}, WithObserver(obs), WithLogger(logger))
}

func TestRegisterAndLogin(t *testing.T) {
	obs := &recordingObserver{}
	svc := newTestService(newMemRepo(), obs)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw"))

	token, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "token-for-alice", token)

	assert.Equal(t, 1, obs.registrations)
	assert.Equal(t, []string{"success"}, obs.logins)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newMemRepo(), &recordingObserver{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Register(ctx, "al ice", "pw"), domain.ErrInvalidLogin)
	assert.ErrorIs(t, svc.Register(ctx, "", "pw"), domain.ErrInvalidLogin)
	assert.ErrorIs(t, svc.Register(ctx, "alice", ""), domain.ErrEmptyPassword)
}

func TestRegister_Duplicate(t *testing.T) {
	obs := &recordingObserver{}
	svc := newTestService(newMemRepo(), obs)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw"))
	assert.ErrorIs(t, svc.Register(ctx, "alice", "other"), domain.ErrUserExists)
	assert.Equal(t, 1, obs.registrations)
}

func TestLogin_Failures(t *testing.T) {
	obs := &recordingObserver{}
	svc := newTestService(newMemRepo(), obs)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "pw"))

	_, err := svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "bob", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	assert.Equal(t, []string{ReasonInvalidPassword, ReasonUserNotFound}, obs.logins)
}

func TestLogin_StoreFailureIsNotInvalidCredentials(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo, nil)

	_, err := svc.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidCredentials))
}

func TestReleaseLists(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	require.NoError(t, svc.AddRelease(ctx, domain.KindWishlist, "alice", 7))
	require.NoError(t, svc.AddRelease(ctx, domain.KindWishlist, "alice", 7))
	require.NoError(t, svc.AddRelease(ctx, domain.KindWishlist, "alice", 9))

	items, err := svc.Releases(ctx, domain.KindWishlist, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.ReleaseItem{{ReleaseID: 7}, {ReleaseID: 9}}, items)

	require.NoError(t, svc.RemoveRelease(ctx, domain.KindWishlist, "alice", 7))
	items, err = svc.Releases(ctx, domain.KindWishlist, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.ReleaseItem{{ReleaseID: 9}}, items)

	owned, err := svc.Releases(ctx, domain.KindCollection, "alice")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestCollectors_ExcludesViewer(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	require.NoError(t, svc.AddRelease(ctx, domain.KindCollection, "alice", 1))
	require.NoError(t, svc.AddRelease(ctx, domain.KindCollection, "bob", 1))

	got, err := svc.Collectors(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.Collector{{UserLogin: "bob", ReleaseCount: 1}}, got)
}

func TestLogin_UnknownUserStillVerifiesAHash(t *testing.T) {
	hasher := &countingHasher{}
	svc := NewService(newMemRepo(), hasher, staticTokens{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "pw"))

	_, err := svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "bob", "pw")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "carol", "pw")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.Len(t, hasher.verifies, 3)
	assert.Equal(t, "plain:pw", hasher.verifies[0])
	// o hash fictício é estável entre chamadas e vem do mesmo hasher
	assert.Equal(t, "plain:gstx-dummy-password", hasher.verifies[1])
	assert.Equal(t, hasher.verifies[1], hasher.verifies[2])
}
