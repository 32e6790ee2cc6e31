package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dmarkov/electrostore/internal/hash"
	mwauth "github.com/dmarkov/electrostore/internal/middleware/auth"
	"github.com/dmarkov/electrostore/internal/models"
	"github.com/dmarkov/electrostore/internal/query"
)

type UserHandler struct {
	DB *gorm.DB
}

func (h *UserHandler) adminCount() (int64, error) {
	var n int64
	err := h.DB.Model(&models.User{}).Where("is_admin = ?", true).Count(&n).Error
	return n, err
}

func (h *UserHandler) List(c echo.Context) error {
	params := query.ListParams{
		Page:  parseIntDefault(c.QueryParam("page"), query.DefaultPage),
		Limit: parseIntDefault(c.QueryParam("limit"), query.DefaultLimit),
	}.Normalize()

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := h.DB.Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&users).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"users":      users,
		"pagination": query.Paginate(total, params),
	})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *UserHandler) Create(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	errs := map[string]string{}
	if req.Username == "" {
		errs["username"] = "Username is required"
	}
	if req.Email == "" {
		errs["email"] = "Email is required"
	} else if !validEmail(req.Email) {
		errs["email"] = "Email is not valid"
	}
	if len(req.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	if len(errs) > 0 {
		return failFields(c, errs)
	}

	var existing models.User
	if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return fail(c, http.StatusBadRequest, "Username is already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fail(c, http.StatusBadRequest, "Email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		IsAdmin:      req.IsAdmin,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": user})
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return err
	}

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		IsAdmin  *bool   `json:"is_admin"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Username != nil && *req.Username != user.Username {
		if *req.Username == "" {
			return failFields(c, map[string]string{"username": "Username cannot be empty"})
		}
		var existing models.User
		if err := h.DB.Where("username = ? AND id <> ?", *req.Username, user.ID).First(&existing).Error; err == nil {
			return fail(c, http.StatusBadRequest, "Username is already taken")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if !validEmail(*req.Email) {
			return failFields(c, map[string]string{"email": "Email is not valid"})
		}
		var existing models.User
		if err := h.DB.Where("email = ? AND id <> ?", *req.Email, user.ID).First(&existing).Error; err == nil {
			return fail(c, http.StatusBadRequest, "Email is already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user.Email = *req.Email
	}
	// Password is only rehashed when explicitly supplied.
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return failFields(c, map[string]string{"password": "Password must be at least 6 characters"})
		}
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = pwHash
	}
	if req.IsAdmin != nil {
		if user.IsAdmin && !*req.IsAdmin {
			n, err := h.adminCount()
			if err != nil {
				return err
			}
			if n <= 1 {
				return fail(c, http.StatusBadRequest, "Cannot remove the last admin user")
			}
		}
		user.IsAdmin = *req.IsAdmin
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return err
	}

	if user.IsAdmin {
		n, err := h.adminCount()
		if err != nil {
			return err
		}
		if n <= 1 {
			return fail(c, http.StatusBadRequest, "Cannot delete the last admin user")
		}
	}

	if err := h.DB.Delete(&models.User{}, user.ID).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted"})
}

// ChangePassword lets the target user or an admin set a new password after
// the current one verifies.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	claims, ok := mwauth.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is not valid")
	}
	if claims.UserID != id && !claims.IsAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied. Admin privileges required.")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return err
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	if len(req.NewPassword) < 6 {
		return failFields(c, map[string]string{"new_password": "Password must be at least 6 characters"})
	}
	if !hash.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusBadRequest, "Invalid credentials")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = pwHash
	if err := h.DB.Save(&user).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password updated"})
}
