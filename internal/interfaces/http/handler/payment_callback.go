package handler

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	appbilling "github.com/gridpos/backend/internal/application/billing"
	"github.com/gridpos/backend/internal/interfaces/http/dto"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Signature"

// PaymentCallbackHandler receives payment gateway callbacks. These
// endpoints are called by external providers and are authenticated by
// request signature, never by tokens. Replays get 200 so providers
// stop retrying.
type PaymentCallbackHandler struct {
	BaseHandler
	ingest *appbilling.PaymentIngestService
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(ingest *appbilling.PaymentIngestService) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{ingest: ingest}
}

// Handle processes one callback from the provider named in the path
func (h *PaymentCallbackHandler) Handle(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		h.BadRequest(c, "Missing provider")
		return
	}

	// Signature covers the raw body, so read it before binding.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if err := h.ingest.VerifySignature(provider, body, signature); err != nil {
		h.Unauthorized(c, dto.ErrCodeSignatureInvalid, "Callback signature verification failed")
		return
	}

	var req appbilling.CallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.BadRequest(c, "Invalid callback payload")
		return
	}
	if err := validateCallback(req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Restore the body for any downstream middleware that inspects it.
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	result, err := h.ingest.Ingest(c.Request.Context(), provider, req, string(body))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListUnprocessed returns callbacks awaiting manual reconciliation,
// oldest first. Operator-only.
func (h *PaymentCallbackHandler) ListUnprocessed(c *gin.Context) {
	var query dto.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	query.Normalize()

	events, total, err := h.ingest.ListUnprocessed(c.Request.Context(), query.Offset(), query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, events, total, query.Page, query.PageSize)
}

// validateCallback applies the binding rules to a manually unmarshalled
// request. Binding is bypassed because the raw body was consumed for
// signature verification.
func validateCallback(req appbilling.CallbackRequest) error {
	return binding.Validator.ValidateStruct(req)
}
