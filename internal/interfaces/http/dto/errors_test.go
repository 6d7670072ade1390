package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		domain string
		wire   string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"UNKNOWN_TENANT", ErrCodeUnknownTenant},
		{"TENANT_ARCHIVED", ErrCodeTenantArchived},
		{"PROVISIONING_IN_PROGRESS", ErrCodeProvisioningInProgress},
		{"SUBSCRIPTION_NOT_ACTIVE", ErrCodeSubscriptionNotActive},
		{"PLAN_LIMIT_EXCEEDED", ErrCodePlanLimitExceeded},
		{"AUTHENTICITY_CHECK_FAILED", ErrCodeSignatureInvalid},
		{"DUPLICATE_BILLING_EVENT", ErrCodeDuplicateBillingEvent},
		{"RESOLUTION_TIMEOUT", ErrCodeResolutionTimeout},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wire, NormalizeErrorCode(tt.domain), tt.domain)
	}

	t.Run("already normalized codes pass through", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
	})

	t.Run("unknown codes pass through", func(t *testing.T) {
		assert.Equal(t, "SOMETHING_NEW", NormalizeErrorCode("SOMETHING_NEW"))
	})
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeUnknownTenant, http.StatusNotFound},
		{ErrCodeTenantSuspended, http.StatusForbidden},
		{ErrCodeTenantArchived, http.StatusGone},
		{ErrCodeProvisioningInProgress, http.StatusServiceUnavailable},
		{ErrCodeResolutionTimeout, http.StatusServiceUnavailable},
		{ErrCodeSubscriptionNotActive, http.StatusPaymentRequired},
		{ErrCodePlanLimitExceeded, http.StatusForbidden},
		{ErrCodeSignatureInvalid, http.StatusUnauthorized},
		{ErrCodeDuplicateBillingEvent, http.StatusConflict},
		{ErrCodeUnmatchedBillingEvent, http.StatusUnprocessableEntity},
		{ErrCodeInvoiceImmutable, http.StatusConflict},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, GetHTTPStatus(tt.code), tt.code)
	}

	t.Run("unknown code is an internal error", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("ERR_NO_SUCH_CODE"))
	})
}
