package handler

import (
	"log"

	"roomresq/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
	Fields  []string    `json:"fields,omitempty"`
}

// respondError writes the error envelope and aborts the chain. Internal details are
// logged, never returned.
func respondError(c *gin.Context, err error) {
	e := apperr.From(err)
	body := errorBody{Kind: e.Kind, Message: e.Message, Fields: e.Fields}
	if e.Kind == apperr.KindInternal {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		body.Message = "internal error"
	}
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), gin.H{"error": body})
}

func badBody(err error) error {
	return apperr.Wrap(apperr.KindValidation, err, "malformed request body")
}
