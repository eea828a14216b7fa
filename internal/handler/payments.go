package handler

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/service"
	"github.com/mmeshcher/grocerymart/internal/validation"
)

// SignatureHeader содержит имя заголовка с подписью тела вебхука.
const SignatureHeader = "X-Razorpay-Signature"

const maxWebhookBody = 1 << 20

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,oneof=pending paid failed"`
}

type upiConfirmRequest struct {
	PayerVPA string `json:"payerVpa" validate:"required,vpa"`
}

type verifyPaymentRequest struct {
	OrderID         string `json:"orderId"`
	ProviderOrderID string `json:"providerOrderId"`
	PaymentID       string `json:"paymentId"`
	Signature       string `json:"signature"`
}

// SetPaymentStatus вручную меняет статус оплаты заказа.
func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req paymentStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.service.SetPaymentStatus(r.Context(), id, model.PaymentStatus(req.PaymentStatus))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// ConfirmUPI принимает подтверждение оплаты по UPI от покупателя.
func (h *Handler) ConfirmUPI(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req upiConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.service.ConfirmUPI(r.Context(), caller, id, req.PayerVPA)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// VerifyGatewayPayment проверяет подпись платежа, полученную клиентом от шлюза.
func (h *Handler) VerifyGatewayPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req verifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v := service.GatewayVerification{
		ProviderOrderID: req.ProviderOrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
	}
	if req.OrderID != "" {
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "orderId must be a valid id")
			return
		}
		v.OrderID = id
	}

	if _, err := h.service.VerifyGatewayPayment(r.Context(), caller, v); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Webhook принимает события платёжного шлюза. Подпись проверяется по сырому телу запроса.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
