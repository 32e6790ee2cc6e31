package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dmarkov/electrostore/internal/events"
	"github.com/dmarkov/electrostore/internal/logging"
	"github.com/dmarkov/electrostore/internal/models"
	"github.com/dmarkov/electrostore/internal/query"
	"github.com/dmarkov/electrostore/internal/search"
	"github.com/dmarkov/electrostore/internal/upload"
)

const maxProductImages = 10

type ProductHandler struct {
	DB       *gorm.DB
	Store    *upload.Store
	Producer *events.Producer
	Search   *search.Client
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if err := h.Search.IndexProduct(c.Request().Context(), p); err != nil {
		logging.FromContext(c.Request().Context()).Error("search index error", "error", err)
	}
}

func (h *ProductHandler) List(c echo.Context) error {
	params := query.Parse(c)

	items, pagination, err := query.Products(h.DB, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"products":   items,
		"pagination": pagination,
	})
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.Preload("Category").Preload("Images").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Product not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

// parseProductForm reads product fields from a multipart form. Returned
// pointers are nil for fields absent from the form.
type productForm struct {
	Name           *string
	Slug           *string
	Model          *string
	Description    *string
	Features       *string
	Specifications *models.SpecMap
	Price          *float64
	ClearPrice     bool
	CategoryID     *uint
	ClearCategory  bool
}

func parseProductForm(c echo.Context) (*productForm, map[string]string) {
	f := &productForm{}
	errs := map[string]string{}

	if v, ok := formValue(c, "name"); ok {
		f.Name = &v
	}
	if v, ok := formValue(c, "slug"); ok {
		f.Slug = &v
	}
	if v, ok := formValue(c, "model"); ok {
		f.Model = &v
	}
	if v, ok := formValue(c, "description"); ok {
		f.Description = &v
	}
	if v, ok := formValue(c, "features"); ok {
		f.Features = &v
	}
	if v, ok := formValue(c, "specifications"); ok {
		spec := models.SpecMap{}
		if v != "" {
			if err := json.Unmarshal([]byte(v), &spec); err != nil {
				errs["specifications"] = "Specifications must be a JSON object of string values"
			}
		}
		f.Specifications = &spec
	}
	if v, ok := formValue(c, "price"); ok {
		if v == "" {
			f.ClearPrice = true
		} else if price, err := strconv.ParseFloat(v, 64); err == nil && price >= 0 {
			f.Price = &price
		} else {
			errs["price"] = "Price must be a non-negative number"
		}
	}
	if v, ok := formValue(c, "category_id"); ok {
		if v == "" {
			f.ClearCategory = true
		} else if id, err := strconv.Atoi(v); err == nil && id > 0 {
			cid := uint(id)
			f.CategoryID = &cid
		} else {
			errs["category_id"] = "Category id must be a positive integer"
		}
	}

	return f, errs
}

func imageFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, nil
		}
		return nil, err
	}
	return form.File["images"], nil
}

func (h *ProductHandler) categoryExists(id uint) (bool, error) {
	var category models.Category
	err := h.DB.First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// saveImages stores uploads and appends ProductImage rows. The first image
// of a product with no prior images is flagged primary.
func (h *ProductHandler) saveImages(c echo.Context, product *models.Product, files []*multipart.FileHeader) error {
	var existing int64
	if err := h.DB.Model(&models.ProductImage{}).Where("product_id = ?", product.ID).Count(&existing).Error; err != nil {
		return err
	}

	for i, fh := range files {
		path, err := h.Store.Save(fh, "products")
		if err != nil {
			return err
		}
		img := models.ProductImage{
			ProductID: product.ID,
			Path:      path,
			IsPrimary: existing == 0 && i == 0,
		}
		if err := h.DB.Create(&img).Error; err != nil {
			return err
		}
	}
	return nil
}

func uploadError(c echo.Context, err error) (error, bool) {
	var unsupported *upload.ErrUnsupportedType
	var tooLarge *upload.ErrTooLarge
	if errors.As(err, &unsupported) {
		return fail(c, http.StatusUnsupportedMediaType, unsupported.Error()), true
	}
	if errors.As(err, &tooLarge) {
		return fail(c, http.StatusBadRequest, tooLarge.Error()), true
	}
	return nil, false
}

func (h *ProductHandler) Create(c echo.Context) error {
	form, errs := parseProductForm(c)

	if form.Name == nil || *form.Name == "" {
		errs["name"] = "Name is required"
	}
	if form.Slug == nil || *form.Slug == "" {
		errs["slug"] = "Slug is required"
	}

	files, err := imageFiles(c)
	if err != nil {
		return err
	}
	if len(files) > maxProductImages {
		errs["images"] = fmt.Sprintf("A maximum of %d images is allowed", maxProductImages)
	}
	if len(errs) > 0 {
		return failFields(c, errs)
	}

	if form.CategoryID != nil {
		exists, err := h.categoryExists(*form.CategoryID)
		if err != nil {
			return err
		}
		if !exists {
			return fail(c, http.StatusBadRequest, "Referenced category does not exist")
		}
	}

	var duplicate models.Product
	if err := h.DB.Where("slug = ?", *form.Slug).First(&duplicate).Error; err == nil {
		return fail(c, http.StatusBadRequest, "Product with this slug already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	product := models.Product{
		Name:           *form.Name,
		Slug:           *form.Slug,
		Specifications: models.SpecMap{},
		Price:          form.Price,
		CategoryID:     form.CategoryID,
	}
	if form.Model != nil {
		product.Model = *form.Model
	}
	if form.Description != nil {
		product.Description = *form.Description
	}
	if form.Features != nil {
		product.Features = *form.Features
	}
	if form.Specifications != nil {
		product.Specifications = *form.Specifications
	}

	if err := h.DB.Create(&product).Error; err != nil {
		return err
	}

	if err := h.saveImages(c, &product, files); err != nil {
		if resp, ok := uploadError(c, err); ok {
			return resp
		}
		return err
	}

	if err := h.DB.Preload("Category").Preload("Images").First(&product, product.ID).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})
	h.index(c, &product)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": product})
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.Preload("Images").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Product not found")
		}
		return err
	}

	form, errs := parseProductForm(c)
	if form.Name != nil && *form.Name == "" {
		errs["name"] = "Name cannot be empty"
	}
	if form.Slug != nil && *form.Slug == "" {
		errs["slug"] = "Slug cannot be empty"
	}

	files, err := imageFiles(c)
	if err != nil {
		return err
	}
	if len(files) > maxProductImages {
		errs["images"] = fmt.Sprintf("A maximum of %d images is allowed", maxProductImages)
	}
	if len(errs) > 0 {
		return failFields(c, errs)
	}

	if form.Slug != nil && *form.Slug != product.Slug {
		var duplicate models.Product
		if err := h.DB.Where("slug = ? AND id <> ?", *form.Slug, product.ID).First(&duplicate).Error; err == nil {
			return fail(c, http.StatusBadRequest, "Product with this slug already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		product.Slug = *form.Slug
	}
	if form.CategoryID != nil {
		exists, err := h.categoryExists(*form.CategoryID)
		if err != nil {
			return err
		}
		if !exists {
			return fail(c, http.StatusBadRequest, "Referenced category does not exist")
		}
		product.CategoryID = form.CategoryID
	}
	if form.ClearCategory {
		product.CategoryID = nil
	}

	if form.Name != nil {
		product.Name = *form.Name
	}
	if form.Model != nil {
		product.Model = *form.Model
	}
	if form.Description != nil {
		product.Description = *form.Description
	}
	if form.Features != nil {
		product.Features = *form.Features
	}
	if form.Specifications != nil {
		product.Specifications = *form.Specifications
	}
	if form.Price != nil {
		product.Price = form.Price
	}
	if form.ClearPrice {
		product.Price = nil
	}

	if replace, _ := formValue(c, "replace_images"); replace == "true" || replace == "1" {
		for _, img := range product.Images {
			if err := h.Store.Remove(img.Path); err != nil {
				logging.FromContext(c.Request().Context()).Error("image cleanup error", "error", err)
			}
		}
		if err := h.DB.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		product.Images = nil
	}

	if err := h.DB.Omit("Images", "Category").Save(&product).Error; err != nil {
		return err
	}

	if err := h.saveImages(c, &product, files); err != nil {
		if resp, ok := uploadError(c, err); ok {
			return resp
		}
		return err
	}

	if err := h.DB.Preload("Category").Preload("Images").First(&product, product.ID).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})
	h.index(c, &product)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.Preload("Images").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Product not found")
		}
		return err
	}

	// File cleanup is best-effort; a missing file is not an error.
	for _, img := range product.Images {
		if err := h.Store.Remove(img.Path); err != nil {
			logging.FromContext(c.Request().Context()).Error("image cleanup error", "error", err)
		}
	}

	if err := h.DB.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	if err := h.DB.Delete(&models.Product{}, product.ID).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": product.ID,
	})
	if err := h.Search.DeleteProduct(c.Request().Context(), product.ID); err != nil {
		logging.FromContext(c.Request().Context()).Error("search index error", "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product deleted"})
}
