package handler

import (
	"net/http"

	"github.com/bankfin-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every JSON endpoint answers with. Exactly one of Data and
// Error is set; CorrelationID echoes the request's X-Correlation-ID.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes one page of a paginated listing
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func NewResponse(data interface{}) *Response {
	return &Response{Data: data}
}

func NewErrorResponse(code, message string) *Response {
	return &Response{Error: &ErrorInfo{Code: code, Message: message}}
}

// NewPaginatedResponse wraps one page of data. A non-positive perPage yields a
// single page.
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	totalPages := 1
	if perPage > 0 {
		totalPages = (totalItems + perPage - 1) / perPage
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	respond(c, statusCode, NewResponse(data))
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, NewErrorResponse(code, message))
}

func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	respond(c, statusCode, NewPaginatedResponse(data, page, perPage, totalItems))
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated is used for opened accounts and committed postings
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", orDefault(message, "Unauthorized"))
}

func RespondForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", orDefault(message, "Forbidden"))
}

func RespondNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", orDefault(message, "Resource not found"))
}

func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondUnprocessable reports a well-formed request the ledger refused, such as a
// withdrawal beyond the balance
func RespondUnprocessable(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, code, message)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
