package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	nluapp "github.com/turtacn/MultiNLU/internal/application/nlu"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// APIVersion is reported by the greeting endpoint.
const APIVersion = "1.0"

// parseBody is the POST /nlu/ payload. Text is a pointer so that an absent
// field can be told apart from an empty string.
type parseBody struct {
	Locale string  `json:"locale"`
	Text   *string `json:"text"`
}

// NLUHandler serves the parse, greeting and locale endpoints.
type NLUHandler struct {
	svc nluapp.Service
}

// NewNLUHandler creates a new NLUHandler.
func NewNLUHandler(svc nluapp.Service) *NLUHandler {
	return &NLUHandler{svc: svc}
}

// Parse handles POST /nlu/.
func (h *NLUHandler) Parse(c *gin.Context) {
	var body parseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeAppError(c, errors.InvalidParam("request body must be a JSON object").WithCause(err))
		return
	}
	if body.Locale == "" {
		writeAppError(c, errors.InvalidParam("locale is required").WithDetail("field=locale"))
		return
	}
	if body.Text == nil {
		writeAppError(c, errors.InvalidParam("text is required").WithDetail("field=text"))
		return
	}

	result, err := h.svc.Parse(c.Request.Context(), body.Locale, *body.Text)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Hello handles GET /nlu/.
func (h *NLUHandler) Hello(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain", []byte("Hello from MultiNLU "+APIVersion))
}

// Locales handles GET /nlu/locales.
func (h *NLUHandler) Locales(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locales": h.svc.Locales()})
}

//Personal.AI order the ending
