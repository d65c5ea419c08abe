package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/de-tools/revenue-atlas/pkg/adapters"
	"github.com/de-tools/revenue-atlas/pkg/models/api"
	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/fiscal"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/de-tools/revenue-atlas/pkg/store/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	reports report.Service
}

func NewHandler(reports report.Service) *Handler {
	return &Handler{reports: reports}
}

func (h *Handler) ListRunDates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dates, err := h.reports.RunDates(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := api.RunDates{RunDates: make([]string, 0, len(dates))}
	for _, d := range dates {
		response.RunDates = append(response.RunDates, domain.FormatDate(d))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runDate, err := domain.ParseDate(chi.URLParam(r, "runDate"))
	if err != nil || runDate.IsZero() {
		writeMessage(w, r, http.StatusBadRequest, "invalid run date format. Expected format: YYYY-MM-DD")
		return
	}
	key := snapshot.Key{
		Quarter:  chi.URLParam(r, "quarter"),
		RunDate:  runDate,
		Category: r.URL.Query().Get("category"),
	}

	rep, err := h.reports.Load(ctx, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapReportToSnapshot(rep))
}

// GenerateReport serves the stored report for the request or collects it synchronously.
// A collection outlives a dropped client so it is never cut short halfway.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	query := r.URL.Query()

	runDate, err := domain.ParseDate(query.Get("run_date"))
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid 'run_date' format. Expected format: YYYY-MM-DD")
		return
	}
	var force bool
	if v := query.Get("force"); v != "" {
		force, err = strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, r, http.StatusBadRequest, "invalid 'force' value")
			return
		}
	}

	rep, err := h.reports.Generate(ctx, report.GenerateRequest{
		Quarter:  chi.URLParam(r, "quarter"),
		RunDate:  runDate,
		Category: query.Get("category"),
		Force:    force,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapReportToSnapshot(rep))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, report.ErrCollectionInProgress):
		status = http.StatusConflict
	case errors.Is(err, snapshot.ErrNotFound),
		errors.Is(err, fiscal.ErrQuarterNotFound),
		errors.Is(err, report.ErrNoRunDates):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeMessage(w, r, status, err.Error())
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, api.Error{Error: msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
