package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	// ErrCodeSignatureInvalid is used when a callback signature does not verify
	ErrCodeSignatureInvalid = "ERR_SIGNATURE_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Tenancy error codes
const (
	// ErrCodeUnknownTenant is used when no tenant is bound to the request host
	ErrCodeUnknownTenant = "ERR_UNKNOWN_TENANT"
	// ErrCodeTenantSuspended is used when the resolved tenant is suspended
	ErrCodeTenantSuspended = "ERR_TENANT_SUSPENDED"
	// ErrCodeTenantArchived is used when the resolved tenant is archived
	ErrCodeTenantArchived = "ERR_TENANT_ARCHIVED"
	// ErrCodeProvisioningInProgress is used while a tenant schema is being built
	ErrCodeProvisioningInProgress = "ERR_PROVISIONING_IN_PROGRESS"
	// ErrCodeProvisioningFailed is used when schema provisioning gave up
	ErrCodeProvisioningFailed = "ERR_PROVISIONING_FAILED"
	// ErrCodeAlreadyProvisioned is used when provisioning an already-live tenant
	ErrCodeAlreadyProvisioned = "ERR_ALREADY_PROVISIONED"
	// ErrCodeDuplicateDomain is used when a hostname is bound to another tenant
	ErrCodeDuplicateDomain = "ERR_DUPLICATE_DOMAIN"
	// ErrCodeDuplicateSchema is used when a schema name is already registered
	ErrCodeDuplicateSchema = "ERR_DUPLICATE_SCHEMA"
	// ErrCodeInvalidSchemaName is used when a schema name fails validation
	ErrCodeInvalidSchemaName = "ERR_INVALID_SCHEMA_NAME"
	// ErrCodeResolutionTimeout is used when tenant resolution ran out of time
	ErrCodeResolutionTimeout = "ERR_RESOLUTION_TIMEOUT"
)

// Billing error codes
const (
	// ErrCodeSubscriptionNotActive is used when no live subscription allows the call
	ErrCodeSubscriptionNotActive = "ERR_SUBSCRIPTION_NOT_ACTIVE"
	// ErrCodePlanLimitExceeded is used when a plan resource quota is hit
	ErrCodePlanLimitExceeded = "ERR_PLAN_LIMIT_EXCEEDED"
	// ErrCodeFeatureNotInPlan is used when the plan lacks a capability flag
	ErrCodeFeatureNotInPlan = "ERR_FEATURE_NOT_IN_PLAN"
	// ErrCodeInvalidTransition is used for illegal subscription state changes
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
	// ErrCodeDuplicateBillingEvent is used for replayed payment callbacks
	ErrCodeDuplicateBillingEvent = "ERR_DUPLICATE_BILLING_EVENT"
	// ErrCodeUnmatchedBillingEvent is used when a callback matches no invoice
	ErrCodeUnmatchedBillingEvent = "ERR_UNMATCHED_BILLING_EVENT"
	// ErrCodeInvoiceImmutable is used when mutating a settled invoice
	ErrCodeInvoiceImmutable = "ERR_INVOICE_IMMUTABLE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeSignatureInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Tenancy errors. Unknown tenants are 404 so probing a hostname
	// reveals nothing beyond "not here"; archived is 410 because the
	// name may be re-registered after the retention window.
	ErrCodeUnknownTenant:          http.StatusNotFound,
	ErrCodeTenantSuspended:        http.StatusForbidden,
	ErrCodeTenantArchived:         http.StatusGone,
	ErrCodeProvisioningInProgress: http.StatusServiceUnavailable,
	ErrCodeProvisioningFailed:     http.StatusInternalServerError,
	ErrCodeAlreadyProvisioned:     http.StatusConflict,
	ErrCodeDuplicateDomain:        http.StatusConflict,
	ErrCodeDuplicateSchema:        http.StatusConflict,
	ErrCodeInvalidSchemaName:      http.StatusBadRequest,
	ErrCodeResolutionTimeout:      http.StatusServiceUnavailable,

	// Billing errors
	ErrCodeSubscriptionNotActive: http.StatusPaymentRequired,
	ErrCodePlanLimitExceeded:     http.StatusForbidden,
	ErrCodeFeatureNotInPlan:      http.StatusForbidden,
	ErrCodeInvalidTransition:     http.StatusUnprocessableEntity,
	ErrCodeDuplicateBillingEvent: http.StatusConflict,
	ErrCodeUnmatchedBillingEvent: http.StatusUnprocessableEntity,
	ErrCodeInvoiceImmutable:      http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain-layer error codes to the wire
// format. Domain errors carry bare codes; responses carry ERR_ codes.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,

	"UNKNOWN_TENANT":           ErrCodeUnknownTenant,
	"TENANT_SUSPENDED":         ErrCodeTenantSuspended,
	"TENANT_ARCHIVED":          ErrCodeTenantArchived,
	"PROVISIONING_IN_PROGRESS": ErrCodeProvisioningInProgress,
	"PROVISIONING_FAILED":      ErrCodeProvisioningFailed,
	"ALREADY_PROVISIONED":      ErrCodeAlreadyProvisioned,
	"DUPLICATE_DOMAIN":         ErrCodeDuplicateDomain,
	"DUPLICATE_SCHEMA":         ErrCodeDuplicateSchema,
	"INVALID_SCHEMA_NAME":      ErrCodeInvalidSchemaName,
	"RESOLUTION_TIMEOUT":       ErrCodeResolutionTimeout,
	"RESERVED_CODE":            ErrCodeInvalidInput,
	"INVALID_CODE":             ErrCodeInvalidInput,
	"INVALID_DOMAIN":           ErrCodeInvalidInput,
	"ALREADY_ACTIVE":           ErrCodeInvalidState,
	"ALREADY_SUSPENDED":        ErrCodeInvalidState,
	"ALREADY_ARCHIVED":         ErrCodeInvalidState,

	"SUBSCRIPTION_NOT_ACTIVE":    ErrCodeSubscriptionNotActive,
	"PLAN_LIMIT_EXCEEDED":        ErrCodePlanLimitExceeded,
	"FEATURE_NOT_IN_PLAN":        ErrCodeFeatureNotInPlan,
	"INVALID_TRANSITION":         ErrCodeInvalidTransition,
	"DUPLICATE_BILLING_EVENT":    ErrCodeDuplicateBillingEvent,
	"UNMATCHED_BILLING_EVENT":    ErrCodeUnmatchedBillingEvent,
	"INVOICE_IMMUTABLE":          ErrCodeInvoiceImmutable,
	"AUTHENTICITY_CHECK_FAILED":  ErrCodeSignatureInvalid,
	"INVALID_CAPABILITY":         ErrCodeInvalidInput,
	"INVALID_RESOURCE_KIND":      ErrCodeInvalidInput,
	"INVALID_PLAN":               ErrCodeInvalidInput,
	"INVALID_CYCLE":              ErrCodeInvalidInput,
	"INVALID_PERIOD":             ErrCodeInvalidInput,
	"INVALID_PRICE":              ErrCodeInvalidInput,
	"INVALID_TRIAL_DAYS":         ErrCodeInvalidInput,
	"INVALID_EVENT":              ErrCodeInvalidInput,
	"INVALID_NAME":               ErrCodeInvalidInput,
	"INVALID_TENANT":             ErrCodeInvalidInput,
	"VALIDATION_ERROR":           ErrCodeValidation,
	"BAD_REQUEST":                ErrCodeBadRequest,
	"INTERNAL_ERROR":             ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the wire format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
