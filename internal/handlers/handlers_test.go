package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	mwauth "github.com/dmarkov/electrostore/internal/middleware/auth"
	"github.com/dmarkov/electrostore/internal/models"
	"github.com/dmarkov/electrostore/internal/token"
	"github.com/dmarkov/electrostore/internal/upload"
)

// pngBytes starts with the PNG magic so content sniffing sees image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to connect to in-memory db")

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.ContactMessage{},
	), "failed to migrate tables")

	return db
}

func testStore(t *testing.T) *upload.Store {
	t.Helper()
	return upload.NewStore(t.TempDir())
}

func testTokens() *token.Service {
	return &token.Service{Secret: []byte("test-secret"), Expires: time.Hour}
}

func doJSONRequest(t *testing.T, method, target string, payload any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func doFormRequest(t *testing.T, method, target string, fields map[string]string, fileField string, files ...[]byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i, data := range files {
		fw, err := w.CreateFormFile(fileField, fmt.Sprintf("upload%d.png", i))
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	e := echo.New()
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asAdmin(c echo.Context) {
	mwauth.SetClaims(c, &token.Claims{UserID: 1, Username: "admin", Email: "admin@example.com", IsAdmin: true})
}

func asUser(c echo.Context, id uint) {
	mwauth.SetClaims(c, &token.Claims{UserID: id, Username: "user", Email: "user@example.com"})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
