package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmarkov/electrostore/internal/models"
)

func TestCreateCategoryDuplicateSlug(t *testing.T) {
	db := initTestDB(t)
	h := &CategoryHandler{DB: db, Store: testStore(t)}

	c, rec := doFormRequest(t, http.MethodPost, "/api/categories", map[string]string{
		"name": "Smart Watch",
		"slug": "smart-watch",
	}, "image")
	asAdmin(c)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = doFormRequest(t, http.MethodPost, "/api/categories", map[string]string{
		"name": "Smart Watch 2",
		"slug": "smart-watch",
	}, "image")
	asAdmin(c)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Category with this slug already exists", decodeBody(t, rec)["message"])
}

func TestDeleteCategoryBlockedByProducts(t *testing.T) {
	db := initTestDB(t)
	h := &CategoryHandler{DB: db, Store: testStore(t)}

	category := models.Category{Name: "Smart Watch", Slug: "smart-watch"}
	require.NoError(t, db.Create(&category).Error)
	for _, slug := range []string{"watch-a", "watch-b"} {
		require.NoError(t, db.Create(&models.Product{Name: slug, Slug: slug, CategoryID: &category.ID}).Error)
	}

	c, rec := doJSONRequest(t, http.MethodDelete, "/api/categories/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asAdmin(c)
	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Cannot delete category: 2 product(s) still reference it", decodeBody(t, rec)["message"])

	var count int64
	require.NoError(t, db.Model(&models.Category{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDeleteEmptyCategoryRemovesImage(t *testing.T) {
	db := initTestDB(t)
	store := testStore(t)
	h := &CategoryHandler{DB: db, Store: store}

	c, rec := doFormRequest(t, http.MethodPost, "/api/categories", map[string]string{
		"name": "Smart Watch",
		"slug": "smart-watch",
	}, "image", pngBytes)
	asAdmin(c)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var category models.Category
	require.NoError(t, db.First(&category).Error)
	require.NotEmpty(t, category.Image)
	imagePath := filepath.Join(store.Root, "categories", filepath.Base(category.Image))
	_, err := os.Stat(imagePath)
	require.NoError(t, err)

	c, rec = doJSONRequest(t, http.MethodDelete, "/api/categories/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asAdmin(c)
	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = os.Stat(imagePath)
	require.True(t, os.IsNotExist(err))
}

func TestUpdateCategoryPartial(t *testing.T) {
	db := initTestDB(t)
	h := &CategoryHandler{DB: db, Store: testStore(t)}

	category := models.Category{Name: "Smart Watch", Slug: "smart-watch", Description: "watches"}
	require.NoError(t, db.Create(&category).Error)

	c, rec := doFormRequest(t, http.MethodPut, "/api/categories/1", map[string]string{
		"name": "Smartwatches",
	}, "image")
	c.SetParamNames("id")
	c.SetParamValues("1")
	asAdmin(c)
	require.NoError(t, h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeBody(t, rec)["category"].(map[string]any)
	require.Equal(t, "Smartwatches", updated["name"])
	require.Equal(t, "smart-watch", updated["slug"])
	require.Equal(t, "watches", updated["description"])
}

func TestCategoryListCounts(t *testing.T) {
	db := initTestDB(t)
	h := &CategoryHandler{DB: db, Store: testStore(t)}

	category := models.Category{Name: "Smart Watch", Slug: "smart-watch"}
	require.NoError(t, db.Create(&category).Error)
	require.NoError(t, db.Create(&models.Product{Name: "W", Slug: "w", CategoryID: &category.ID}).Error)

	c, rec := doJSONRequest(t, http.MethodGet, "/api/categories", nil)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	categories := decodeBody(t, rec)["categories"].([]any)
	require.Len(t, categories, 1)
	require.Equal(t, 1.0, categories[0].(map[string]any)["product_count"])
}
