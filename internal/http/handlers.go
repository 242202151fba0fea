package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"cashback/internal/core"
	"cashback/internal/log"
	"cashback/internal/sheets"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.svc.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.svc.GetCatalog(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toCardDTOs(catalog)).Write(w)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := sanitizeInput(req.Name)
	rates, err := parseCategoryRates(req.Categories)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	if err := s.svc.CreateCard(r.Context(), name, rates); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	catalog, err := s.svc.GetCatalog(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/cards/"+url.PathEscape(name)).
		Body(toCardDTOs(core.Catalog{name: catalog[name]})[0]).
		Write(w)
}

func (s *Server) handleMutateCard(w http.ResponseWriter, r *http.Request) {
	var req mutateCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.MutateCard(r.Context(), r.PathValue("name"), toEdits(req.Edits)); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCard(r.Context(), r.PathValue("name")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPurchases returns the ledger, narrowed by the same query
// parameters as the report.
func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	ledger, err := s.svc.GetLedger(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toPurchaseDTOs(ledger.Select(f))).Write(w)
}

func (s *Server) handleRecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := s.svc.RecordPurchase(r.Context(), sanitizeInput(req.Card), sanitizeInput(req.Category), req.Amount, req.Paid)
	if err != nil {
		s.fail(w, r, log.OpAppend, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/purchases/"+p.ID).
		Body(toPurchaseDTO(p)).
		Write(w)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	var req updatePurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.UpdatePurchase(r.Context(), r.PathValue("id"), req.Amount, req.Paid); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePurchase(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkAllPaid marks the purchases selected by card and month. A paid
// parameter is ignored since only unpaid purchases can change.
func (s *Server) handleMarkAllPaid(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpMarkPaid, err)
		return
	}
	f.Paid = nil
	n, err := s.svc.MarkAllPaid(r.Context(), f)
	if err != nil {
		s.fail(w, r, log.OpMarkPaid, err)
		return
	}
	NewJSONResponse().Body(markPaidResponse{Changed: n}).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpReport, err)
		return
	}
	report, err := s.svc.ComputeReport(r.Context(), f)
	if err != nil {
		s.fail(w, r, log.OpReport, err)
		return
	}
	NewJSONResponse().Body(toReportDTO(report)).Write(w)
}

// fail logs err at a level matching its class and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrNotFound), errors.Is(err, sheets.ErrConflict):
		logger.WarnContext(ctx, "Request rejected", log.FieldOperation, op, log.FieldError, err)
	default:
		logger.ErrorContext(ctx, "Request failed", log.FieldOperation, op, log.FieldError, err)
	}
	ErrorFromDomain(err).Write(w)
}
