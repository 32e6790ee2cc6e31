package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmarkov/electrostore/internal/hash"
	"github.com/dmarkov/electrostore/internal/models"
)

func TestRegister(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, Tokens: testTokens()}

	c, rec := doJSONRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["token"])

	user := body["user"].(map[string]any)
	require.Equal(t, "test_user", user["username"])
	require.Equal(t, false, user["is_admin"])

	var stored models.User
	require.NoError(t, db.Where("username = ?", "test_user").First(&stored).Error)
	require.NotEqual(t, "password", stored.PasswordHash)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, Tokens: testTokens()}

	payload := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password",
	}
	c, rec := doJSONRequest(t, http.MethodPost, "/api/auth/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	payload["email"] = "other@example.com"
	c, rec = doJSONRequest(t, http.MethodPost, "/api/auth/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Username is already taken", decodeBody(t, rec)["message"])
}

func TestRegisterValidation(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, Tokens: testTokens()}

	c, rec := doJSONRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "",
		"email":    "not-an-email",
		"password": "123",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
	errs := body["errors"].(map[string]any)
	require.Contains(t, errs, "username")
	require.Contains(t, errs, "email")
	require.Contains(t, errs, "password")
}

func TestLoginClaims(t *testing.T) {
	db := initTestDB(t)
	tokens := testTokens()
	h := &AuthHandler{DB: db, Tokens: tokens}

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Username: "admin", Email: "admin@example.com", PasswordHash: pwHash, IsAdmin: true}
	require.NoError(t, db.Create(&user).Error)

	c, rec := doJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "admin",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	claims, err := tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "admin", claims.Username)
	require.Equal(t, "admin@example.com", claims.Email)
	require.True(t, claims.IsAdmin)
}

func TestLoginDoesNotLeakUserExistence(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, Tokens: testTokens()}

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Username: "known", Email: "known@example.com", PasswordHash: pwHash,
	}).Error)

	c, rec := doJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "known",
		"password": "wrong",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPassword := decodeBody(t, rec)["message"]

	c, rec = doJSONRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "nobody",
		"password": "wrong",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, wrongPassword, decodeBody(t, rec)["message"])
}

func TestMe(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, Tokens: testTokens()}

	user := models.User{Username: "someone", Email: "someone@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	c, rec := doJSONRequest(t, http.MethodGet, "/api/auth/me", nil)
	asUser(c, user.ID)
	require.NoError(t, h.Me(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "someone", decodeBody(t, rec)["user"].(map[string]any)["username"])
}
