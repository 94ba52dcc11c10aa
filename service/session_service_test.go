package service

import (
	"context"
	"errors"
	"testing"

	"gestorreportes/kvstore"
	"gestorreportes/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminCode = "ADMIN2024"

// flakyStore fails the operations switched on. failSetKey fails Set for one key only.
type flakyStore struct {
	*kvstore.MemoryStore
	failSet    bool
	failSetKey string
	failDelete bool
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.failSet || (f.failSetKey != "" && key == f.failSetKey) {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errors.New("read-only")
	}
	return f.MemoryStore.Delete(ctx, key)
}

func TestLoginWrongCode(t *testing.T) {
	store := kvstore.NewMemoryStore()
	sessions := NewSessionService(store, testAdminCode)

	res := sessions.Login(context.Background(), "ADMIN2023", "Ana")
	assert.False(t, res.Success)
	assert.Equal(t, LoginErrInvalidCode, res.Error)
	assert.False(t, sessions.IsAdmin())

	_, ok, _ := store.Get(context.Background(), KeyMode)
	assert.False(t, ok, "nothing persisted on a rejected login")
}

func TestLoginPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	first := NewSessionService(store, testAdminCode)
	res := first.Login(ctx, testAdminCode, "Ana")
	require.True(t, res.Success)
	assert.True(t, first.IsAdmin())
	assert.False(t, first.IsUser())
	assert.Equal(t, "Ana", first.Current().AdminName)

	proof, _, _ := store.Get(ctx, KeyAdminCode)
	assert.NotEqual(t, testAdminCode, proof, "the code is stored hashed")

	second := NewSessionService(store, testAdminCode)
	restored := second.RestoreSession(ctx)
	assert.Equal(t, models.ModeAdmin, restored.Mode)
	assert.Equal(t, "Ana", restored.AdminName)
	assert.True(t, second.IsAdmin())
}

func TestLoginDefaultNames(t *testing.T) {
	ctx := context.Background()

	admin := NewSessionService(kvstore.NewMemoryStore(), testAdminCode)
	require.True(t, admin.Login(ctx, testAdminCode, "   ").Success)
	assert.Equal(t, "Admin", admin.Current().DisplayName())

	user := NewSessionService(kvstore.NewMemoryStore(), testAdminCode)
	require.True(t, user.LoginAsUser(ctx, "").Success)
	assert.Equal(t, "Usuario", user.Current().DisplayName())
	assert.True(t, user.IsUser())
	assert.False(t, user.IsAdmin())
}

func TestLoginRefusedWhileAnotherModeActive(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionService(kvstore.NewMemoryStore(), testAdminCode)
	require.True(t, sessions.LoginAsUser(ctx, "Luis").Success)

	res := sessions.Login(ctx, testAdminCode, "Ana")
	assert.False(t, res.Success)
	assert.Equal(t, LoginErrActive, res.Error)
	assert.True(t, sessions.IsUser())

	sessions.Logout(ctx)
	assert.True(t, sessions.Login(ctx, testAdminCode, "Ana").Success)
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	sessions := NewSessionService(store, testAdminCode)
	require.True(t, sessions.Login(ctx, testAdminCode, "Ana").Success)

	sessions.Logout(ctx)
	assert.Equal(t, models.Session{}, sessions.Current())
	for _, key := range []string{KeyAdminCode, KeyAdminName, KeyUserName, KeyMode} {
		_, ok, _ := store.Get(ctx, key)
		assert.False(t, ok, key)
	}

	restored := NewSessionService(store, testAdminCode).RestoreSession(ctx)
	assert.Equal(t, models.ModeNone, restored.Mode)
}

func TestLogoutSwallowsStoreFailures(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: kvstore.NewMemoryStore()}
	sessions := NewSessionService(store, testAdminCode)
	require.True(t, sessions.LoginAsUser(ctx, "Luis").Success)

	store.failDelete = true
	assert.NotPanics(t, func() { sessions.Logout(ctx) })
	assert.False(t, sessions.IsUser())
	assert.False(t, sessions.IsAdmin())
}

func TestLoginSaveFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: kvstore.NewMemoryStore(), failSet: true}
	sessions := NewSessionService(store, testAdminCode)

	res := sessions.Login(context.Background(), testAdminCode, "Ana")
	assert.False(t, res.Success)
	assert.Equal(t, LoginErrSaveFailed, res.Error)
	assert.False(t, sessions.IsAdmin())

	res = sessions.LoginAsUser(context.Background(), "Luis")
	assert.Equal(t, LoginErrSaveFailed, res.Error)
	assert.False(t, sessions.IsUser())
}

func TestRestoreRejectsTamperedOrRotatedCode(t *testing.T) {
	ctx := context.Background()

	tampered := kvstore.NewMemoryStore()
	tampered.Set(ctx, KeyAdminCode, testAdminCode)
	tampered.Set(ctx, KeyAdminName, "Eve")
	tampered.Set(ctx, KeyMode, "admin")
	restored := NewSessionService(tampered, testAdminCode).RestoreSession(ctx)
	assert.Equal(t, models.ModeNone, restored.Mode, "plaintext code is not a valid proof")

	rotated := kvstore.NewMemoryStore()
	require.True(t, NewSessionService(rotated, testAdminCode).Login(ctx, testAdminCode, "Ana").Success)
	restored = NewSessionService(rotated, "NEWCODE").RestoreSession(ctx)
	assert.False(t, restored.IsAdmin())
}

func TestRestoreAdminNeedsName(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.True(t, NewSessionService(store, testAdminCode).Login(ctx, testAdminCode, "Ana").Success)
	store.Delete(ctx, KeyAdminName)

	restored := NewSessionService(store, testAdminCode).RestoreSession(ctx)
	assert.Equal(t, models.ModeNone, restored.Mode)
}

func TestRestoreUser(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.True(t, NewSessionService(store, testAdminCode).LoginAsUser(ctx, "Luis").Success)

	sessions := NewSessionService(store, testAdminCode)
	restored := sessions.RestoreSession(ctx)
	assert.Equal(t, models.ModeUser, restored.Mode)
	assert.Equal(t, "Luis", restored.UserName)
	assert.True(t, sessions.IsUser())
}

func TestLoginModeWriteFailureLeavesNoSession(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: kvstore.NewMemoryStore(), failSetKey: KeyMode}

	res := NewSessionService(store, testAdminCode).Login(ctx, testAdminCode, "Ana")
	assert.False(t, res.Success)
	assert.Equal(t, LoginErrSaveFailed, res.Error)

	for _, key := range []string{KeyAdminCode, KeyAdminName, KeyMode} {
		_, ok, _ := store.Get(ctx, key)
		assert.False(t, ok, "%s rolled back", key)
	}
	restored := NewSessionService(store, testAdminCode).RestoreSession(ctx)
	assert.Equal(t, models.ModeNone, restored.Mode)

	res = NewSessionService(store, testAdminCode).LoginAsUser(ctx, "Luis")
	assert.False(t, res.Success)
	_, ok, _ := store.Get(ctx, KeyUserName)
	assert.False(t, ok)
}

func TestRestoreNeedsPersistedMode(t *testing.T) {
	ctx := context.Background()

	admin := kvstore.NewMemoryStore()
	require.True(t, NewSessionService(admin, testAdminCode).Login(ctx, testAdminCode, "Ana").Success)
	admin.Delete(ctx, KeyMode)
	assert.Equal(t, models.ModeNone, NewSessionService(admin, testAdminCode).RestoreSession(ctx).Mode)

	user := kvstore.NewMemoryStore()
	require.True(t, NewSessionService(user, testAdminCode).LoginAsUser(ctx, "Luis").Success)
	user.Delete(ctx, KeyMode)
	assert.Equal(t, models.ModeNone, NewSessionService(user, testAdminCode).RestoreSession(ctx).Mode)

	user.Set(ctx, KeyMode, "guest")
	assert.Equal(t, models.ModeNone, NewSessionService(user, testAdminCode).RestoreSession(ctx).Mode)
}
