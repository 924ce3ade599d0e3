package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/invoice"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type invoiceRequest struct {
	ClientID    uuid.UUID       `json:"client_id"`
	ServiceType string          `json:"service_type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	// RenewalDate is a calendar date, 2006-01-02, or an RFC 3339 timestamp.
	RenewalDate string `json:"renewal_date"`
}

func (req invoiceRequest) params() (invoice.Params, error) {
	params := invoice.Params{
		ClientID:    req.ClientID,
		ServiceType: req.ServiceType,
		Description: req.Description,
		Amount:      req.Amount,
	}
	if req.RenewalDate == "" {
		return params, nil
	}
	date, err := time.Parse(time.DateOnly, req.RenewalDate)
	if err != nil {
		if date, err = time.Parse(time.RFC3339, req.RenewalDate); err != nil {
			return params, model.Invalid("renewal_date %q is not a date", req.RenewalDate)
		}
	}
	params.RenewalDate = date
	return params, nil
}

func decodeInvoice(r *http.Request) (invoice.Params, error) {
	var req invoiceRequest
	if err := decode(r, &req); err != nil {
		return invoice.Params{}, err
	}
	return req.params()
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	deleted := r.URL.Query().Get("deleted") == "true"
	lines, err := h.Invoices.Invoices(r.Context(), principal(r), deleted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if lines == nil {
		lines = []store.InvoiceLine{}
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Invoices.Invoices(r.Context(), principal(r), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.csv"`)
	if err := invoice.WriteInvoicesCSV(w, lines); err != nil {
		writeError(w, r, err)
	}
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	params, err := decodeInvoice(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Invoices.CreateInvoice(r.Context(), principal(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.Invoices.Invoice(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) editInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	params, err := decodeInvoice(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Invoices.EditInvoice(r.Context(), principal(r), id, params); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) togglePaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		AccountID *uuid.UUID `json:"account_id"`
	}
	// The body is optional; without one the payment goes to the caller's
	// oldest account.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, model.Invalid("malformed request body: %v", err))
		return
	}
	paid, err := h.Invoices.TogglePaid(r.Context(), principal(r), id, body.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_paid": paid})
}

func (h *Handler) renewInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	renewalID, err := h.Invoices.RenewInvoice(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": renewalID})
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.Invoices.DeleteInvoice)
}

func (h *Handler) restoreInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.Invoices.RestoreInvoice)
}

func (h *Handler) hardDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.Invoices.HardDeleteInvoice)
}

func (h *Handler) invoiceAction(w http.ResponseWriter, r *http.Request, action func(context.Context, access.Principal, uuid.UUID) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := action(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
