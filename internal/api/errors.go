package api

import (
	"errors"
	"net/http"

	"CompanyRank/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoSelectionBase),
		errors.Is(err, service.ErrSelectionNotFound),
		errors.Is(err, service.ErrRankingNotFound),
		errors.Is(err, service.ErrCompanyNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError logs server-side failures and writes {"error": ...}
func respondError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("request_id", requestID(c)).Error(op + " failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
