// Package api exposes the ledger and invoice services over JSON HTTP.
package api

import (
	"net/http"

	"github.com/billbatista/acasinha-office/eventlogger"
	"github.com/billbatista/acasinha-office/invoice"
	"github.com/billbatista/acasinha-office/ledger"
	"github.com/billbatista/acasinha-office/middleware"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/billbatista/acasinha-office/reminder"
	"github.com/billbatista/acasinha-office/session"
	"github.com/billbatista/acasinha-office/user"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Ledger    *ledger.Service
	Invoices  *invoice.Service
	Users     user.Repository
	Sessions  session.Repository
	Activity  eventlogger.EventLogger
	Notifier  notify.Notifier
	Scheduler *reminder.Scheduler
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.AuthMiddleware(h.Sessions, h.Users))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Post("/register", h.register)
	router.Post("/login", h.login)
	router.Post("/logout", h.logout)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/activity", h.activity)

		r.Get("/accounts", h.listAccounts)
		r.Post("/accounts", h.createAccount)
		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", h.getAccount)
			r.Put("/", h.renameAccount)
			r.Delete("/", h.deleteAccount)
			r.Post("/share", h.shareAccount)
			r.Get("/grantees", h.grantees)
			r.Delete("/grantees/{userID}", h.revokeAccess)
			r.Get("/statement.csv", h.statementCSV)
			r.Get("/reconcile", h.reconcile)
			r.Post("/transactions", h.createTransaction)
		})
		r.Put("/transactions/{id}", h.editTransaction)
		r.Delete("/transactions/{id}", h.deleteTransaction)
		r.Post("/transfers", h.transfer)

		r.Get("/invoices", h.listInvoices)
		r.Post("/invoices", h.createInvoice)
		r.Get("/invoices/export.csv", h.exportInvoices)
		r.Route("/invoices/{id}", func(r chi.Router) {
			r.Get("/", h.getInvoice)
			r.Put("/", h.editInvoice)
			r.Delete("/", h.deleteInvoice)
			r.Post("/toggle-paid", h.togglePaid)
			r.Post("/renew", h.renewInvoice)
			r.Post("/restore", h.restoreInvoice)
			r.Delete("/hard", h.hardDeleteInvoice)
		})

		r.Post("/reminders/run", h.runReminders)
	})

	return router
}
