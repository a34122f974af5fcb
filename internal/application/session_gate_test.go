package application

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gateFixture struct {
	auth   *mocks.MockAuthAPI
	tokens *mocks.MockKeyValueStore
	state  *mocks.MockDeviceStateRepository
	gate   *SessionGate
}

func newGateFixture(t *testing.T) gateFixture {
	t.Helper()

	auth := mocks.NewMockAuthAPI(t)
	tokens := mocks.NewMockKeyValueStore(t)
	state := mocks.NewMockDeviceStateRepository(t)

	return gateFixture{
		auth:   auth,
		tokens: tokens,
		state:  state,
		gate:   NewSessionGate(auth, tokens, state, discardLogger()),
	}
}

func adminProfile() domain.UserProfile {
	return domain.UserProfile{
		Username: "alice",
		Role:     domain.RoleAdmin,
		Balance:  balanceOf("12.50"),
	}
}

func TestSessionGateLoginStoresTokenAndNotifies(t *testing.T) {
	f := newGateFixture(t)
	creds := domain.Credentials{Username: "alice", Password: "pw"}

	f.auth.EXPECT().ObtainToken(mockAnyContext(), creds).Return("tok-1", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(adminProfile(), nil).Once()
	f.tokens.EXPECT().Put(mockAnyContext(), TokenKey, "tok-1").Return(nil).Once()
	f.state.EXPECT().SaveProfile(mockAnyContext(), adminProfile()).Return(nil).Once()

	var seen []domain.SessionState
	f.gate.OnChange(func(state domain.SessionState) { seen = append(seen, state) })

	state, err := f.gate.Login(context.Background(), creds)
	require.NoError(t, err)

	want := domain.SessionState{IsAuthenticated: true, Role: domain.RoleAdmin, Username: "alice"}
	assert.Equal(t, want, state)
	assert.Equal(t, want, f.gate.State())
	assert.Equal(t, "tok-1", f.gate.Token())
	assert.Equal(t, []domain.SessionState{want}, seen)
}

func TestSessionGateLoginRejectsEmptyCredentials(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.gate.Login(context.Background(), domain.Credentials{Username: " ", Password: "pw"})
	require.Error(t, err)

	_, err = f.gate.Login(context.Background(), domain.Credentials{Username: "alice"})
	require.Error(t, err)
	assert.False(t, f.gate.State().IsAuthenticated)
}

func TestSessionGateLoginRollsBackTokenWhenProfileSaveFails(t *testing.T) {
	f := newGateFixture(t)
	creds := domain.Credentials{Username: "alice", Password: "pw"}
	saveErr := errors.New("disk full")

	f.auth.EXPECT().ObtainToken(mockAnyContext(), creds).Return("tok-1", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(adminProfile(), nil).Once()
	f.tokens.EXPECT().Put(mockAnyContext(), TokenKey, "tok-1").Return(nil).Once()
	f.state.EXPECT().SaveProfile(mockAnyContext(), adminProfile()).Return(saveErr).Once()
	f.tokens.EXPECT().Delete(mockAnyContext(), TokenKey).Return(nil).Once()

	_, err := f.gate.Login(context.Background(), creds)
	require.ErrorIs(t, err, saveErr)
	assert.False(t, f.gate.State().IsAuthenticated)
	assert.Empty(t, f.gate.Token())
}

func TestSessionGateLoginFailsWhenTokenRequestFails(t *testing.T) {
	f := newGateFixture(t)
	creds := domain.Credentials{Username: "alice", Password: "wrong"}

	f.auth.EXPECT().ObtainToken(mockAnyContext(), creds).Return("", domain.ErrUnauthorized).Once()

	_, err := f.gate.Login(context.Background(), creds)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, domain.AnonymousSession(), f.gate.State())
}

func TestSessionGateLogoutClearsStateAndNotifies(t *testing.T) {
	f := newGateFixture(t)
	login(t, f)

	f.tokens.EXPECT().Delete(mockAnyContext(), TokenKey).Return(nil).Once()
	f.state.EXPECT().ClearProfile(mockAnyContext()).Return(nil).Once()

	var seen []domain.SessionState
	f.gate.OnChange(func(state domain.SessionState) { seen = append(seen, state) })

	require.NoError(t, f.gate.Logout(context.Background()))
	assert.Equal(t, domain.AnonymousSession(), f.gate.State())
	assert.Empty(t, f.gate.Token())
	assert.Equal(t, []domain.SessionState{domain.AnonymousSession()}, seen)
}

func TestSessionGateExpireIsNoOpWhenLoggedOut(t *testing.T) {
	f := newGateFixture(t)

	calls := 0
	f.gate.OnChange(func(domain.SessionState) { calls++ })

	f.gate.Expire(context.Background())
	assert.Zero(t, calls)
}

func TestSessionGateExpireLogsOutEvenWhenCleanupFails(t *testing.T) {
	f := newGateFixture(t)
	login(t, f)

	f.tokens.EXPECT().Delete(mockAnyContext(), TokenKey).Return(errors.New("pass locked")).Once()
	f.state.EXPECT().ClearProfile(mockAnyContext()).Return(nil).Once()

	f.gate.Expire(context.Background())
	assert.False(t, f.gate.State().IsAuthenticated)
}

func TestSessionGateRestoreWithoutTokenStaysAnonymous(t *testing.T) {
	f := newGateFixture(t)
	f.tokens.EXPECT().Get(mockAnyContext(), TokenKey).Return("", domain.ErrSecretNotFound).Once()

	state, err := f.gate.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AnonymousSession(), state)
}

func TestSessionGateRestoreVerifiesStoredToken(t *testing.T) {
	f := newGateFixture(t)
	f.tokens.EXPECT().Get(mockAnyContext(), TokenKey).Return("tok-1\n", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(adminProfile(), nil).Once()
	f.state.EXPECT().SaveProfile(mockAnyContext(), adminProfile()).Return(nil).Once()

	state, err := f.gate.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, domain.RoleAdmin, state.Role)
	assert.Equal(t, "tok-1", f.gate.Token())
}

func TestSessionGateRestoreDiscardsRejectedToken(t *testing.T) {
	f := newGateFixture(t)
	f.tokens.EXPECT().Get(mockAnyContext(), TokenKey).Return("tok-1", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(domain.UserProfile{}, domain.ErrUnauthorized).Once()
	f.tokens.EXPECT().Delete(mockAnyContext(), TokenKey).Return(nil).Once()
	f.state.EXPECT().ClearProfile(mockAnyContext()).Return(nil).Once()

	state, err := f.gate.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsAuthenticated)
}

func TestSessionGateRestoreFallsBackToSavedProfileWhenOffline(t *testing.T) {
	f := newGateFixture(t)
	f.tokens.EXPECT().Get(mockAnyContext(), TokenKey).Return("tok-1", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(domain.UserProfile{}, errors.New("connection refused")).Once()
	f.state.EXPECT().LoadProfile(mockAnyContext()).Return(domain.UserProfile{Username: "alice", Role: domain.RoleUser}, true, nil).Once()

	state, err := f.gate.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionState{IsAuthenticated: true, Role: domain.RoleUser, Username: "alice"}, state)
}

func TestSessionGateRestoreFailsOfflineWithoutSavedProfile(t *testing.T) {
	f := newGateFixture(t)
	offline := errors.New("connection refused")
	f.tokens.EXPECT().Get(mockAnyContext(), TokenKey).Return("tok-1", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(domain.UserProfile{}, offline).Once()
	f.state.EXPECT().LoadProfile(mockAnyContext()).Return(domain.UserProfile{}, false, nil).Once()

	_, err := f.gate.Restore(context.Background())
	require.ErrorIs(t, err, offline)
	assert.False(t, f.gate.State().IsAuthenticated)
}

func TestSessionGateUnsubscribeStopsNotifications(t *testing.T) {
	f := newGateFixture(t)

	calls := 0
	unsubscribe := f.gate.OnChange(func(domain.SessionState) { calls++ })
	unsubscribe()

	login(t, f)
	assert.Zero(t, calls)
}

func login(t *testing.T, f gateFixture) {
	t.Helper()

	creds := domain.Credentials{Username: "alice", Password: "pw"}
	f.auth.EXPECT().ObtainToken(mockAnyContext(), creds).Return("tok-1", nil).Once()
	f.auth.EXPECT().CurrentUser(mockAnyContext(), "tok-1").Return(adminProfile(), nil).Once()
	f.tokens.EXPECT().Put(mockAnyContext(), TokenKey, "tok-1").Return(nil).Once()
	f.state.EXPECT().SaveProfile(mockAnyContext(), adminProfile()).Return(nil).Once()

	_, err := f.gate.Login(context.Background(), creds)
	require.NoError(t, err)
}

func mockAnyContext() interface{} {
	return mock.Anything
}

func TestBalanceStoreTracksSessionProfile(t *testing.T) {
	f := newGateFixture(t)
	store := NewBalanceStore(nil)
	store.TrackSession(f.gate)

	login(t, f)
	snap := store.Snapshot()
	assert.True(t, snap.BalanceKnown)
	assert.Equal(t, "12.50", snap.Balance.String())

	f.tokens.EXPECT().Delete(mockAnyContext(), TokenKey).Return(nil).Once()
	f.state.EXPECT().ClearProfile(mockAnyContext()).Return(nil).Once()
	require.NoError(t, f.gate.Logout(context.Background()))

	assert.False(t, store.Snapshot().BalanceKnown)
}
