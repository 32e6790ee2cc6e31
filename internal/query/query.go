// Package query translates list query parameters into filtered, sorted and
// paginated product queries.
package query

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dmarkov/electrostore/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type ListParams struct {
	Category string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Parse reads list parameters from the request, clamping page and limit to
// sane values.
func Parse(c echo.Context) ListParams {
	p := ListParams{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		Sort:     c.QueryParam("sort"),
		Page:     parseIntDefault(c.QueryParam("page"), DefaultPage),
		Limit:    parseIntDefault(c.QueryParam("limit"), DefaultLimit),
	}
	return p.Normalize()
}

// Normalize clamps page and limit to valid values.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p ListParams) order() string {
	switch p.Sort {
	case "name-asc":
		return "products.name ASC"
	case "name-desc":
		return "products.name DESC"
	case "oldest":
		return "products.created_at ASC"
	default: // newest
		return "products.created_at DESC"
	}
}

// apply adds the category and search filters. The search is a
// case-insensitive substring match over name, model and description.
func (p ListParams) apply(tx *gorm.DB) *gorm.DB {
	if p.Category != "" {
		tx = tx.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", p.Category)
	}
	if p.Search != "" {
		pattern := "%" + strings.ToLower(p.Search) + "%"
		tx = tx.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.model) LIKE ? OR LOWER(products.description) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return tx
}

// Products runs the filtered, sorted, paginated product query. The total is
// counted over the filtered set independently of page and limit, so an
// out-of-range page yields an empty slice with valid metadata.
func Products(db *gorm.DB, params ListParams) ([]models.Product, Pagination, error) {
	params = params.Normalize()

	var total int64
	if err := params.apply(db.Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	items := make([]models.Product, 0, params.Limit)
	err := params.apply(db.Model(&models.Product{})).
		Select("products.*").
		Preload("Category").
		Preload("Images").
		Order(params.order()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return items, Paginate(total, params), nil
}

// Paginate computes pagination metadata: totalPages = ceil(total/limit).
func Paginate(total int64, params ListParams) Pagination {
	params = params.Normalize()
	limit := int64(params.Limit)
	return Pagination{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: (total + limit - 1) / limit,
	}
}
