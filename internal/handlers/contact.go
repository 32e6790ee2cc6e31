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
	"github.com/dmarkov/electrostore/internal/query"
)

type ContactHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *ContactHandler) Submit(c echo.Context) error {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	errs := map[string]string{}
	if req.Name == "" {
		errs["name"] = "Name is required"
	}
	if req.Email == "" {
		errs["email"] = "Email is required"
	} else if !validEmail(req.Email) {
		errs["email"] = "Email is not valid"
	}
	if req.Subject == "" {
		errs["subject"] = "Subject is required"
	}
	if req.Message == "" {
		errs["message"] = "Message is required"
	}
	if len(errs) > 0 {
		return failFields(c, errs)
	}

	msg := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
		Status:  models.MessageStatusUnread,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "contact_events", fmt.Sprint(msg.ID), map[string]any{
		"type":      "contact_received",
		"messageID": msg.ID,
	}); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}

	// The submitter only gets an acknowledgment, never the stored message.
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Your message has been received",
	})
}

func (h *ContactHandler) List(c echo.Context) error {
	params := query.ListParams{
		Page:  parseIntDefault(c.QueryParam("page"), query.DefaultPage),
		Limit: parseIntDefault(c.QueryParam("limit"), query.DefaultLimit),
	}.Normalize()
	status := c.QueryParam("status")

	filter := func() *gorm.DB {
		tx := h.DB.Model(&models.ContactMessage{})
		if status != "" {
			tx = tx.Where("status = ?", status)
		}
		return tx
	}

	var total int64
	if err := filter().Count(&total).Error; err != nil {
		return err
	}

	var messages []models.ContactMessage
	if err := filter().Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&messages).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"messages":   messages,
		"pagination": query.Paginate(total, params),
	})
}

// Get returns one message and marks it read.
func (h *ContactHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var msg models.ContactMessage
	if err := h.DB.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Message not found")
		}
		return err
	}

	if msg.Status == models.MessageStatusUnread {
		msg.Status = models.MessageStatusRead
		if err := h.DB.Save(&msg).Error; err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}

func (h *ContactHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var msg models.ContactMessage
	if err := h.DB.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Message not found")
		}
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Status != models.MessageStatusUnread && req.Status != models.MessageStatusRead {
		return failFields(c, map[string]string{"status": "Status must be unread or read"})
	}

	msg.Status = req.Status
	if err := h.DB.Save(&msg).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}

func (h *ContactHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var msg models.ContactMessage
	if err := h.DB.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "Message not found")
		}
		return err
	}

	if err := h.DB.Delete(&models.ContactMessage{}, msg.ID).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Message deleted"})
}
