package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	mailingsvc "storefront/internal/service/mailing"
)

type saveEmailRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Age   *int   `json:"age"`
}

type mailingHandler struct {
	svc MailingService
	log *slog.Logger
}

func (h *mailingHandler) save(c *gin.Context) {
	var req saveEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	entry, err := h.svc.Save(c.Request.Context(), mailingsvc.SaveInput{Email: req.Email, Name: req.Name, Age: req.Age})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, struct {
		Message string               `json:"message"`
		Entry   *domain.MailingEntry `json:"entry"`
	}{Message: "Email saved", Entry: entry})
}
