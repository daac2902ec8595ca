package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *User {
	return &User{
		StudentID:     7,
		StudentName:   "Kim",
		StudentNumber: "2021001",
		Role:          RoleUser,
	}
}

func TestIsAuthenticatedRequiresBothFields(t *testing.T) {
	store := NewStore("", nil)

	assert.False(t, store.IsAuthenticated())

	store.SetUser(testUser())
	assert.False(t, store.IsAuthenticated(), "profile without token is hydration, not authorization")

	store.SetToken("abc123")
	assert.True(t, store.IsAuthenticated())

	store.Clear()
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
	assert.Nil(t, store.User())
}

func TestProfilePersistsAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	first := NewStore(path, nil)
	first.SetToken("abc123")
	first.SetUser(testUser())

	// A second store hydrates the profile from disk but never the token.
	second := NewStore(path, nil)
	user := second.User()
	require.NotNil(t, user)
	assert.Equal(t, "2021001", user.StudentNumber)
	assert.Empty(t, second.Token())
	assert.False(t, second.IsAuthenticated())
}

func TestClearRemovesPersistedProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	store := NewStore(path, nil)
	store.SetUser(testUser())
	store.Clear()

	assert.False(t, store.exists())

	rehydrated := NewStore(path, nil)
	assert.Nil(t, rehydrated.User())
}

func TestUserReturnsCopy(t *testing.T) {
	store := NewStore("", nil)
	store.SetUser(testUser())

	u := store.User()
	u.StudentName = "tampered"

	assert.Equal(t, "Kim", store.User().StudentName)
}

func TestTokenExpiry(t *testing.T) {
	store := NewStore("", nil)

	_, ok := store.TokenExpiry()
	assert.False(t, ok)

	store.SetToken("not-a-jwt")
	_, ok = store.TokenExpiry()
	assert.False(t, ok)

	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	store.SetToken(signed)
	got, ok := store.TokenExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
}

func TestIsStaff(t *testing.T) {
	assert.False(t, User{Role: RoleUser}.IsStaff())
	assert.True(t, User{Role: RoleStaff}.IsStaff())
	assert.True(t, User{Role: RolePresident}.IsStaff())
	assert.True(t, User{Role: RoleSystemAdmin}.IsStaff())
}
