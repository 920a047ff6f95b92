package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackutd/harp-sub001/internal/logger"
	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/store"
)

type fakeUsers struct {
	byIdentity map[string]*model.User
	byEmail    map[string]*model.User
	created    []*model.User
	pictures   map[string]*string
	pictureErr error
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{
		byIdentity: map[string]*model.User{},
		byEmail:    map[string]*model.User{},
		pictures:   map[string]*string{},
	}
	for _, u := range users {
		f.byIdentity[u.IdentityID] = u
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) GetByIdentityID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byIdentity[id]; ok {
		found := *u
		return &found, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := f.byEmail[email]; ok {
		found := *u
		return &found, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return store.ErrConflict
	}
	user.ID = "user-new"
	f.created = append(f.created, user)
	f.byIdentity[user.IdentityID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUsers) UpdateProfilePicture(_ context.Context, id string, url *string) error {
	if f.pictureErr != nil {
		return f.pictureErr
	}
	f.pictures[id] = url
	return nil
}

func TestSyncUserCreatesHacker(t *testing.T) {
	claims := &Claims{Email: "ada@example.com", AuthMethod: model.AuthMethodPasswordless}
	claims.Subject = "st-1"
	users := newFakeUsers()
	user, created, err := SyncUser(context.Background(), users, claims, logger.Discard())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.RoleHacker, user.Role)
	assert.Equal(t, "st-1", user.IdentityID)
	require.Len(t, users.created, 1)
}

func TestSyncUserReturnsExisting(t *testing.T) {
	existing := &model.User{ID: "user-1", IdentityID: "st-1", Email: "ada@example.com", Role: model.RoleAdmin, AuthMethod: model.AuthMethodPasswordless}
	users := newFakeUsers(existing)

	claims := &Claims{Email: "ada@example.com", AuthMethod: model.AuthMethodPasswordless}
	claims.Subject = "st-1"
	user, created, err := SyncUser(context.Background(), users, claims, logger.Discard())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Empty(t, users.created)
}

func TestSyncUserUpdatesGooglePicture(t *testing.T) {
	existing := &model.User{ID: "user-1", IdentityID: "st-1", Email: "ada@example.com", Role: model.RoleHacker, AuthMethod: model.AuthMethodGoogle}
	users := newFakeUsers(existing)

	picture := "https://example.com/ada.png"
	claims := &Claims{Email: "ada@example.com", AuthMethod: model.AuthMethodGoogle, Picture: &picture}
	claims.Subject = "st-1"
	user, _, err := SyncUser(context.Background(), users, claims, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, user.ProfilePictureURL)
	assert.Equal(t, picture, *user.ProfilePictureURL)
	assert.Equal(t, &picture, users.pictures["st-1"])
}

func TestSyncUserLogsPictureUpdateFailure(t *testing.T) {
	existing := &model.User{ID: "user-1", IdentityID: "st-1", Email: "ada@example.com", Role: model.RoleHacker, AuthMethod: model.AuthMethodGoogle}
	users := newFakeUsers(existing)
	users.pictureErr = errors.New("connection reset")

	var out bytes.Buffer
	picture := "https://example.com/ada.png"
	claims := &Claims{Email: "ada@example.com", AuthMethod: model.AuthMethodGoogle, Picture: &picture}
	claims.Subject = "st-1"
	user, _, err := SyncUser(context.Background(), users, claims, logger.NewWithOutput("test", "warn", &out))

	require.NoError(t, err)
	assert.Nil(t, user.ProfilePictureURL)
	assert.Contains(t, out.String(), "profile picture update failed")
	assert.Contains(t, out.String(), "connection reset")
}

func TestSyncUserMethodMismatch(t *testing.T) {
	existing := &model.User{ID: "user-1", IdentityID: "st-1", Email: "ada@example.com", Role: model.RoleHacker, AuthMethod: model.AuthMethodPasswordless}
	users := newFakeUsers(existing)

	claims := &Claims{Email: "ada@example.com", AuthMethod: model.AuthMethodGoogle}
	claims.Subject = "google-1"
	_, _, err := SyncUser(context.Background(), users, claims, logger.Discard())

	var mismatch *MethodMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, model.AuthMethodPasswordless, mismatch.Expected)
	assert.Equal(t, model.AuthMethodGoogle, mismatch.Got)
}
