package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dmarkov/electrostore/internal/events"
	"github.com/dmarkov/electrostore/internal/logging"
	"github.com/dmarkov/electrostore/internal/models"
	"github.com/dmarkov/electrostore/internal/upload"
)

type CategoryHandler struct {
	DB       *gorm.DB
	Store    *upload.Store
	Producer *events.Producer
}

func (h *CategoryHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "category_events", fmt.Sprint(event["categoryID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *CategoryHandler) List(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return err
	}

	for i := range categories {
		if err := h.DB.Model(&models.Product{}).
			Where("category_id = ?", categories[i].ID).
			Count(&categories[i].ProductCount).Error; err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "categories": categories})
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Category not found")
		}
		return err
	}

	if err := h.DB.Model(&models.Product{}).
		Where("category_id = ?", category.ID).
		Count(&category.ProductCount).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "category": category})
}

func (h *CategoryHandler) Create(c echo.Context) error {
	name, _ := formValue(c, "name")
	slug, _ := formValue(c, "slug")
	description, _ := formValue(c, "description")

	errs := map[string]string{}
	if name == "" {
		errs["name"] = "Name is required"
	}
	if slug == "" {
		errs["slug"] = "Slug is required"
	}
	if len(errs) > 0 {
		return failFields(c, errs)
	}

	var duplicate models.Category
	if err := h.DB.Where("slug = ?", slug).First(&duplicate).Error; err == nil {
		return fail(c, http.StatusBadRequest, "Category with this slug already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	category := models.Category{
		Name:        name,
		Slug:        slug,
		Description: description,
	}

	if fh, err := c.FormFile("image"); err == nil {
		path, err := h.Store.Save(fh, "categories")
		if err != nil {
			if resp, ok := uploadError(c, err); ok {
				return resp
			}
			return err
		}
		category.Image = path
	}

	if err := h.DB.Create(&category).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{
		"type":       "category_created",
		"categoryID": category.ID,
		"slug":       category.Slug,
	})

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "category": category})
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Category not found")
		}
		return err
	}

	if name, ok := formValue(c, "name"); ok {
		if name == "" {
			return failFields(c, map[string]string{"name": "Name cannot be empty"})
		}
		category.Name = name
	}
	if slug, ok := formValue(c, "slug"); ok {
		if slug == "" {
			return failFields(c, map[string]string{"slug": "Slug cannot be empty"})
		}
		if slug != category.Slug {
			var duplicate models.Category
			if err := h.DB.Where("slug = ? AND id <> ?", slug, category.ID).First(&duplicate).Error; err == nil {
				return fail(c, http.StatusBadRequest, "Category with this slug already exists")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		category.Slug = slug
	}
	if description, ok := formValue(c, "description"); ok {
		category.Description = description
	}

	if fh, err := c.FormFile("image"); err == nil {
		path, err := h.Store.Save(fh, "categories")
		if err != nil {
			if resp, ok := uploadError(c, err); ok {
				return resp
			}
			return err
		}
		if category.Image != "" {
			if err := h.Store.Remove(category.Image); err != nil {
				logging.FromContext(c.Request().Context()).Error("image cleanup error", "error", err)
			}
		}
		category.Image = path
	}

	if err := h.DB.Save(&category).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{
		"type":       "category_updated",
		"categoryID": category.ID,
		"slug":       category.Slug,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "category": category})
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Category not found")
		}
		return err
	}

	var referencing int64
	if err := h.DB.Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&referencing).Error; err != nil {
		return err
	}
	if referencing > 0 {
		return fail(c, http.StatusBadRequest,
			fmt.Sprintf("Cannot delete category: %d product(s) still reference it", referencing))
	}

	if category.Image != "" {
		if err := h.Store.Remove(category.Image); err != nil {
			logging.FromContext(c.Request().Context()).Error("image cleanup error", "error", err)
		}
	}

	if err := h.DB.Delete(&models.Category{}, category.ID).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{
		"type":       "category_deleted",
		"categoryID": category.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Category deleted"})
}
