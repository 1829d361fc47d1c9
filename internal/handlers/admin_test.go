// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/handlers"
	"codeberg.org/cloudauth/lightadmin/internal/models"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	authsvc "codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"codeberg.org/cloudauth/lightadmin/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdminHandlers(t *testing.T) (*handlers.AdminHandlers, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	h := handlers.NewAdmin(repo, authsvc.NewService(repo), handlers.DatabaseInfo{Driver: "sqlite", Name: ":memory:"})
	return h, repo
}

func postAs(e *echo.Echo, admin *models.User, path string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := testutil.NewFormContext(e, path, form)
	return testutil.WithUser(c, admin), rec
}

func TestAdminOverview(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	testutil.NewTestUser(t, repo, "bob", false)

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/admin?success=Done", nil)
	c = testutil.WithUser(c, admin)

	require.NoError(t, h.Overview(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "bob")
	assert.Contains(t, body, "Done")
	assert.Contains(t, body, `action="/admin/users"`)
}

func TestAdminUpdateRole_Promote(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	testutil.NewTestUser(t, repo, "bob", false)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/role", url.Values{"username": {"bob"}, "is_admin": {"1"}})

	require.NoError(t, h.UpdateRole(c))

	path, errMsg, success := flashFrom(t, rec)
	assert.Equal(t, "/admin", path)
	assert.Empty(t, errMsg)
	assert.Equal(t, "Updated admin access for bob.", success)

	bob, err := repo.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, bob.IsAdmin)
}

func TestAdminUpdateRole_LastAdmin(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/role", url.Values{"username": {"alice"}, "is_admin": {"0"}})

	require.NoError(t, h.UpdateRole(c))

	path, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "/admin", path)
	assert.Equal(t, "Cannot remove the last admin.", errMsg)

	alice, err := repo.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, alice.IsAdmin)
}

func TestAdminUpdateRole_HandOver(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	ctx := context.Background()
	admin := testutil.NewTestUser(t, repo, "alice", true)
	testutil.NewTestUser(t, repo, "bob", false)

	e := echo.New()
	c, _ := postAs(e, admin, "/admin/role", url.Values{"username": {"bob"}, "is_admin": {"1"}})
	require.NoError(t, h.UpdateRole(c))

	c, rec := postAs(e, admin, "/admin/role", url.Values{"username": {"alice"}, "is_admin": {"0"}})
	require.NoError(t, h.UpdateRole(c))
	_, errMsg, _ := flashFrom(t, rec)
	assert.Empty(t, errMsg)

	c, rec = postAs(e, admin, "/admin/role", url.Values{"username": {"bob"}, "is_admin": {"0"}})
	require.NoError(t, h.UpdateRole(c))
	_, errMsg, _ = flashFrom(t, rec)
	assert.Equal(t, "Cannot remove the last admin.", errMsg)

	admins, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)
}

func TestAdminUpdateRole_UnknownUser(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/role", url.Values{"username": {"ghost"}, "is_admin": {"1"}})

	require.NoError(t, h.UpdateRole(c))

	_, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "User not found.", errMsg)
}

func TestAdminCreateUser(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/users", url.Values{
		"username": {"carol"},
		"password": {"pw"},
		"is_admin": {"1"},
	})

	require.NoError(t, h.CreateUser(c))

	_, errMsg, success := flashFrom(t, rec)
	assert.Empty(t, errMsg)
	assert.Equal(t, "Created account carol.", success)

	carol, err := repo.GetUserByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.True(t, carol.IsAdmin)
}

func TestAdminCreateUser_Duplicate(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/users", url.Values{"username": {"alice"}, "password": {"pw"}})

	require.NoError(t, h.CreateUser(c))

	_, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "User already exists", errMsg)
}

func TestAdminEditor(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	testutil.NewTestLoginEvent(t, repo, "alice")

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/admin/editor", nil)
	c = testutil.WithUser(c, admin)

	require.NoError(t, h.Editor(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="user_id"`)
	assert.Contains(t, body, `name="event_id"`)
}

func TestAdminUpdateUser(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	ctx := context.Background()
	admin := testutil.NewTestUser(t, repo, "alice", true)
	bob := testutil.NewTestUser(t, repo, "bob", false)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/users/update", url.Values{
		"user_id":      {strconv.FormatInt(bob.ID, 10)},
		"username":     {"robert"},
		"is_admin":     {"1"},
		"new_password": {"new-secret"},
	})

	require.NoError(t, h.UpdateUser(c))

	path, errMsg, success := flashFrom(t, rec)
	assert.Equal(t, "/admin/editor", path)
	assert.Empty(t, errMsg)
	assert.Equal(t, "User updated", success)

	robert, err := repo.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "robert", robert.Username)
	assert.True(t, robert.IsAdmin)
	assert.True(t, authsvc.CheckPassword(robert.PasswordHash, "new-secret"))
}

func TestAdminUpdateUser_BlankPasswordKeepsHash(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	bob := testutil.NewTestUser(t, repo, "bob", false)

	e := echo.New()
	c, _ := postAs(e, admin, "/admin/editor/users/update", url.Values{
		"user_id":      {strconv.FormatInt(bob.ID, 10)},
		"username":     {"bob"},
		"is_admin":     {"0"},
		"new_password": {"   "},
	})

	require.NoError(t, h.UpdateUser(c))

	stored, err := repo.GetUserByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.PasswordHash, stored.PasswordHash)
}

func TestAdminUpdateUser_Conflict(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	bob := testutil.NewTestUser(t, repo, "bob", false)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/users/update", url.Values{
		"user_id":  {strconv.FormatInt(bob.ID, 10)},
		"username": {"alice"},
	})

	require.NoError(t, h.UpdateUser(c))

	_, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "Username already exists.", errMsg)
}

func TestAdminUpdateUser_LastAdmin(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/users/update", url.Values{
		"user_id":  {strconv.FormatInt(admin.ID, 10)},
		"username": {"alice"},
		"is_admin": {"0"},
	})

	require.NoError(t, h.UpdateUser(c))

	_, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "Cannot remove the last admin.", errMsg)
}

func TestAdminUpdateLoginEvent(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	event := testutil.NewTestLoginEvent(t, repo, "alice")

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/login/update", url.Values{
		"event_id":     {strconv.FormatInt(event.ID, 10)},
		"username":     {"mallory"},
		"logged_in_at": {"2024-01-05T10:30"},
	})

	require.NoError(t, h.UpdateLoginEvent(c))

	_, errMsg, success := flashFrom(t, rec)
	assert.Empty(t, errMsg)
	assert.Equal(t, "Login event updated", success)

	stored, err := repo.GetLoginEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, "mallory", stored.Username)
	assert.Equal(t, "2024-01-05 10:30:00", stored.LoggedInAt.UTC().Format("2006-01-02 15:04:05"))
}

func TestAdminUpdateLoginEvent_InvalidTimestamp(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	event := testutil.NewTestLoginEvent(t, repo, "alice")

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/login/update", url.Values{
		"event_id":     {strconv.FormatInt(event.ID, 10)},
		"username":     {"alice"},
		"logged_in_at": {"not-a-date"},
	})

	require.NoError(t, h.UpdateLoginEvent(c))

	_, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "Invalid timestamp format.", errMsg)

	stored, err := repo.GetLoginEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.LoggedInAt, stored.LoggedInAt)
}

func TestAdminUpdateLoginEvent_NotFound(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/login/update", url.Values{
		"event_id":     {"999"},
		"username":     {"alice"},
		"logged_in_at": {"2024-01-05 10:30:00"},
	})

	require.NoError(t, h.UpdateLoginEvent(c))

	_, errMsg, _ := flashFrom(t, rec)
	assert.Equal(t, "Login event not found.", errMsg)
}

func TestAdminDeleteLoginEvent(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)
	event := testutil.NewTestLoginEvent(t, repo, "alice")

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/login/delete", url.Values{
		"event_id": {strconv.FormatInt(event.ID, 10)},
	})

	require.NoError(t, h.DeleteLoginEvent(c))

	_, _, success := flashFrom(t, rec)
	assert.Equal(t, "Login event deleted", success)

	_, err := repo.GetLoginEvent(context.Background(), event.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdminDeleteLoginEvent_Missing(t *testing.T) {
	h, repo := newTestAdminHandlers(t)
	admin := testutil.NewTestUser(t, repo, "alice", true)

	e := echo.New()
	c, rec := postAs(e, admin, "/admin/editor/login/delete", url.Values{"event_id": {"999"}})

	require.NoError(t, h.DeleteLoginEvent(c))

	_, errMsg, success := flashFrom(t, rec)
	assert.Empty(t, errMsg)
	assert.Equal(t, "Login event deleted", success)
}
