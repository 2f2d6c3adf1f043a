package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// POST /invoices
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := decodeInvoice(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := s.invoices.CreateInvoice(r.Context(), inv)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/invoices/"+created.ID).
		Body(toInvoiceResponse(created)).
		Write(w)
}

// GET /invoices/{id}
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoices.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toInvoiceResponse(inv)).Write(w)
}

// GET /invoices?startDate=&endDate=
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	invoices, err := s.invoices.ListInvoices(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toInvoiceResponse(inv)
	}
	NewJSONResponse().Body(resp).Write(w)
}

// GET /reports/summary?startDate=&endDate=
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	summary, err := s.invoices.Summary(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toSummaryResponse(summary)).Write(w)
}
