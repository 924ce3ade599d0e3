package api

import (
	"net/http"

	"github.com/billbatista/acasinha-office/ledger"
	"github.com/billbatista/acasinha-office/model"
	"github.com/google/uuid"
)

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Ledger.Accounts(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []ledger.AccountSummary{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var params ledger.CreateAccountParams
	if err := decode(r, &params); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.Ledger.CreateAccount(r.Context(), principal(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.Ledger.Account(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) renameAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.RenameAccount(r.Context(), principal(r), id, body.Name, body.Currency); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.DeleteAccount(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) shareAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Username string `json:"username"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.ShareAccount(r.Context(), principal(r), id, body.Username); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantees(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	grants, err := h.Ledger.Grantees(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

func (h *Handler) revokeAccess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.RevokeAccess(r.Context(), principal(r), id, userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) statementCSV(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var filter ledger.StatementFilter
	if createdBy := r.URL.Query().Get("created_by"); createdBy != "" {
		userID, err := uuid.Parse(createdBy)
		if err != nil {
			writeError(w, r, model.Invalid("created_by is not a valid id"))
			return
		}
		filter.CreatedBy = uuid.NullUUID{UUID: userID, Valid: true}
	}
	lines, err := h.Ledger.Statement(r.Context(), principal(r), id, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="statement.csv"`)
	if err := ledger.WriteStatementCSV(w, lines); err != nil {
		writeError(w, r, err)
	}
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.Ledger.Reconcile(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var params ledger.CreateTransactionParams
	if err := decode(r, &params); err != nil {
		writeError(w, r, err)
		return
	}
	params.AccountID = id
	txID, err := h.Ledger.CreateTransaction(r.Context(), principal(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": txID})
}

func (h *Handler) editTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var params ledger.EditTransactionParams
	if err := decode(r, &params); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.EditTransaction(r.Context(), principal(r), id, params); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Ledger.DeleteTransaction(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var params ledger.TransferParams
	if err := decode(r, &params); err != nil {
		writeError(w, r, err)
		return
	}
	debitID, creditID, err := h.Ledger.Transfer(r.Context(), principal(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"debit_id": debitID, "credit_id": creditID})
}
