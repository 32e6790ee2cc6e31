package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dmarkov/electrostore/internal/events"
	"github.com/dmarkov/electrostore/internal/hash"
	"github.com/dmarkov/electrostore/internal/logging"
	mwauth "github.com/dmarkov/electrostore/internal/middleware/auth"
	"github.com/dmarkov/electrostore/internal/models"
	"github.com/dmarkov/electrostore/internal/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
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
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return err
	}

	signed, err := h.Tokens.Sign(&user)
	if err != nil {
		return err
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"token":   signed,
		"user":    user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	// Unknown username and wrong password produce the same answer so the
	// endpoint does not leak which accounts exist.
	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusUnauthorized, "Invalid credentials")
		}
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	signed, err := h.Tokens.Sign(&user)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   signed,
		"user":    user,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := mwauth.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is not valid")
	}

	var user models.User
	if err := h.DB.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}
