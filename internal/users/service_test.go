package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sacsol/sacsol-api/internal/shared"
)

type memRepo struct {
	nextID int64
	users  map[int64]*User
	hashes map[int64]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]*User{}, hashes: map[int64]string{}}
}

func (m *memRepo) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	for id := int64(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memRepo) GetUser(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memRepo) CreateUser(ctx context.Context, email, name, passwordHash string, isSuperuser bool) (int64, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return 0, shared.ErrDuplicate
		}
	}
	m.nextID++
	m.users[m.nextID] = &User{ID: m.nextID, Email: email, Name: name, IsSuperuser: isSuperuser, IsActive: true}
	m.hashes[m.nextID] = passwordHash
	return m.nextID, nil
}

func (m *memRepo) UpdateUser(ctx context.Context, id int64, name string, isActive bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Name = name
	u.IsActive = isActive
	return nil
}

func (m *memRepo) ReplaceRoles(ctx context.Context, userID int64, roleNames []string) error {
	u, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.Roles = append([]string(nil), roleNames...)
	return nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemRepo()
	service := NewService(repo)

	user, err := service.CreateUser(context.Background(), "ops@sacsol.test", "Ops", "supersecret", false, []string{"staff"})
	require.NoError(t, err)
	require.Equal(t, []string{"staff"}, user.Roles)
	require.True(t, user.IsActive)

	hash := repo.hashes[user.ID]
	require.NotEqual(t, "supersecret", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("supersecret")))
}

func TestCreateUserValidation(t *testing.T) {
	service := NewService(newMemRepo())

	_, err := service.CreateUser(context.Background(), "", "X", "supersecret", false, nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = service.CreateUser(context.Background(), "x@sacsol.test", "X", "short", false, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	service := NewService(newMemRepo())

	_, err := service.CreateUser(context.Background(), "ops@sacsol.test", "A", "supersecret", false, nil)
	require.NoError(t, err)
	_, err = service.CreateUser(context.Background(), "OPS@sacsol.test", "B", "supersecret", false, nil)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateUserReplacesRoles(t *testing.T) {
	service := NewService(newMemRepo())
	user, err := service.CreateUser(context.Background(), "ops@sacsol.test", "Ops", "supersecret", false, []string{"staff"})
	require.NoError(t, err)

	updated, err := service.UpdateUser(context.Background(), user.ID, "Operations", true, []string{"manager"})
	require.NoError(t, err)
	require.Equal(t, "Operations", updated.Name)
	require.Equal(t, []string{"manager"}, updated.Roles)

	// nil roles leaves the assignment untouched
	updated, err = service.UpdateUser(context.Background(), user.ID, "Operations", false, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"manager"}, updated.Roles)
	require.False(t, updated.IsActive)
}
