package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersRequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(testEmail, testPassword, testName)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/users", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/admin/users", nil, env.token(user)).Code)
}

func TestListUsersPaginated(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin@example.com", testPassword, "Admin")
	require.NoError(t, env.db.Model(admin).Update("is_staff", true).Error)
	for i := 0; i < 4; i++ {
		env.createUser(fmt.Sprintf("user%d@example.com", i), testPassword, "User")
	}
	token := env.token(admin)

	rec := env.do(http.MethodGet, "/admin/users?page=2&page_size=2", nil, token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[userPage](t, rec)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "user1@example.com", page.Users[0].Email)
	assert.True(t, page.Users[0].IsActive)
	assert.False(t, page.Users[0].IsStaff)
	assert.False(t, page.Cached)
	assert.NotContains(t, rec.Body.String(), "password")

	again := decode[userPage](t, env.do(http.MethodGet, "/admin/users?page=2&page_size=2", nil, token))
	assert.True(t, again.Cached)
}

func TestListUsersPageSizeBounds(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin@example.com", testPassword, "Admin")
	require.NoError(t, env.db.Model(admin).Update("is_staff", true).Error)

	rec := env.do(http.MethodGet, "/admin/users?page=0&page_size=500", nil, env.token(admin))

	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[userPage](t, rec)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Users, 1)
}
