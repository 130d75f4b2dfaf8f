package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrInvalidElements, http.StatusBadRequest, "INVALID_ELEMENTS"},
		{domain.ErrInvalidRequirements, http.StatusBadRequest, "INVALID_REQUIREMENTS"},
		{domain.ErrBackendUnavailable, http.StatusServiceUnavailable, "INDEX_UNAVAILABLE"},
		{domain.ErrModelUnavailable, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE"},
		{domain.ErrOracleTimeout, http.StatusGatewayTimeout, "ORACLE_TIMEOUT"},
		{domain.ErrOracleSchema, http.StatusBadGateway, "ORACLE_SCHEMA"},
		{domain.ErrRunCanceled, http.StatusConflict, "RUN_CANCELED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code, msg := MapDomainError(tc.err)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, code)
		assert.NotEmpty(t, msg)
	}
}

func TestMapDomainErrorUnwrapsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("reading run: %w", domain.ErrNotFound)
	status, code, _ := MapDomainError(wrapped)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", code)
}
