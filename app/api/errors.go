package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the body of every failed response.
type Error struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

type ErrorData struct {
	Status int `json:"status"`
}

func newError(status int, code, message string) Error {
	return Error{Code: code, Message: message, Data: ErrorData{Status: status}}
}

var (
	errMissingAPIKey     = newError(http.StatusInternalServerError, "missing_api_key", "API key not configured. Please set up the plugin.")
	errInvalidAPIKey     = newError(http.StatusUnauthorized, "invalid_api_key", "Invalid or missing API key.")
	errNoRoute           = newError(http.StatusNotFound, "rest_no_route", "No route was found matching the URL and request method.")
	errPageNotFound      = newError(http.StatusNotFound, "not_found", "Page not found.")
	errNoSEOPlugin       = newError(http.StatusBadRequest, "no_seo_plugin", "No supported SEO plugin found (RankMath or Yoast).")
	errPagesRequired     = newError(http.StatusBadRequest, "invalid_request", "Pages array is required.")
	errElementorInactive = newError(http.StatusBadRequest, "elementor_not_active", "Elementor plugin is not active on this site.")
	errNotElementor      = newError(http.StatusBadRequest, "not_elementor", "This page is not built with Elementor.")
	errMissingData       = newError(http.StatusBadRequest, "missing_data", "Elementor data is required.")
	errInvalidJSON       = newError(http.StatusBadRequest, "rest_invalid_json", "Invalid JSON body passed.")
	errCreateFailed      = newError(http.StatusInternalServerError, "create_failed", "Failed to create page.")
	errInternal          = newError(http.StatusInternalServerError, "internal_error", "Internal server error.")
	errMissingKeyword    = newError(http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): focus_keyword")
)

// withMessage keeps the code and status but reports message instead.
func (e Error) withMessage(message string) Error {
	e.Message = message
	return e
}

func abortWithError(c *gin.Context, err Error) {
	c.AbortWithStatusJSON(err.Data.Status, err)
}
