package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const contactThanks = "Thank you for your message. We'll get back to you soon!"

type contactRequest struct {
	Name    string `json:"name" validate:"min=2"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"min=2"`
	Message string `json:"message" validate:"min=10"`
	Consent bool   `json:"consent" validate:"required"`
}

type contactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) submitContact(c echo.Context) error {
	var req contactRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	if s.notifier != nil {
		text := fmt.Sprintf("New contact message\nFrom: %s <%s>\nSubject: %s\n\n%s", req.Name, req.Email, req.Subject, req.Message)
		if err := s.notifier.Publish(c.Request().Context(), text); err != nil {
			s.logger.Warn("forward contact message", "error", err)
		}
	}

	return c.JSON(http.StatusOK, contactResponse{Success: true, Message: contactThanks})
}
