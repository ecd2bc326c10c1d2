package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/httputil"
	"github.com/AdamBeresnev/op-tournaments/internal/middleware"
	"github.com/AdamBeresnev/op-tournaments/internal/progression"
	"github.com/AdamBeresnev/op-tournaments/internal/readycheck"
	"github.com/AdamBeresnev/op-tournaments/internal/service"
	"github.com/AdamBeresnev/op-tournaments/internal/store"
	"github.com/AdamBeresnev/op-tournaments/internal/veto"
)

type handlers struct {
	tournaments *service.TournamentService
	matches     *service.MatchService
}

func newRouter(h *handlers, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Identify)
	r.Use(chimiddleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/tournaments", func(r chi.Router) {
		r.Post("/", h.createTournament)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.getBracket)
			r.Post("/registrations", h.register)
			r.Post("/bracket", h.generateBracket)
			r.Post("/playoff", h.generatePlayoff)
			r.Post("/reconcile", h.reconcile)

			r.Route("/matches/{matchID}", func(r chi.Router) {
				r.Get("/", h.getMatch)
				r.Post("/schedule", h.scheduleMatch)
				r.Post("/result", h.submitResult)
				r.Post("/reset", h.resetMatch)
				r.Post("/ready", h.markReady)
				r.Post("/veto", h.vetoMove)
			})
		})
	})

	return r
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

// callerUID prefers the gateway identity over a uid sent in the body.
func callerUID(r *http.Request, fallback string) string {
	if uid, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return uid
	}
	return fallback
}

func tournamentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tournamentID"))
	if err != nil {
		httputil.BadRequest(w, "Invalid tournament ID", err)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, progression.ErrMatchNotFound):
		httputil.NotFound(w, msg, err)
	case errors.Is(err, service.ErrNotCaptain), errors.Is(err, readycheck.ErrNotParticipant):
		httputil.Forbidden(w, err.Error(), err)
	case errors.Is(err, progression.ErrResultConflict),
		errors.Is(err, progression.ErrTournamentDecided),
		errors.Is(err, service.ErrBracketGenerated),
		errors.Is(err, service.ErrPlayoffGenerated),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrMatchLocked),
		errors.Is(err, readycheck.ErrMatchCompleted):
		httputil.Conflict(w, err.Error(), err)
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, service.ErrTournamentFull),
		errors.Is(err, service.ErrRequirementsNotMet),
		errors.Is(err, service.ErrNotEnoughTeams),
		errors.Is(err, service.ErrNotGroupPlayoff),
		errors.Is(err, service.ErrGroupsIncomplete),
		errors.Is(err, progression.ErrMatchNotReady),
		errors.Is(err, progression.ErrMatchNotCompleted),
		errors.Is(err, progression.ErrWinnerNotInMatch),
		errors.Is(err, progression.ErrInvalidScore),
		errors.Is(err, progression.ErrByeMatch),
		errors.Is(err, readycheck.ErrNotScheduled),
		errors.Is(err, readycheck.ErrMatchNotPlayable),
		errors.Is(err, readycheck.ErrWindowClosed),
		errors.Is(err, veto.ErrBestOfInvalid),
		errors.Is(err, veto.ErrMapPoolTooSmall):
		httputil.BadRequest(w, err.Error(), err)
	default:
		httputil.InternalServerError(w, msg, err)
	}
}

func (h *handlers) createTournament(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTournamentInput
	if !decode(w, r, &in) {
		return
	}
	t, err := h.tournaments.CreateTournament(r.Context(), in)
	if err != nil {
		writeError(w, "Failed to create tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *handlers) getBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	view, err := h.tournaments.GetBracket(r.Context(), id)
	if err != nil {
		writeError(w, "Tournament not found", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	var in service.RegistrationInput
	if !decode(w, r, &in) {
		return
	}
	reg, err := h.tournaments.Register(r.Context(), id, in)
	if err != nil {
		writeError(w, "Failed to register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

func (h *handlers) generateBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	matches, err := h.tournaments.GenerateBracket(r.Context(), id)
	if err != nil {
		writeError(w, "Failed to generate bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (h *handlers) generatePlayoff(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	matches, err := h.tournaments.GeneratePlayoff(r.Context(), id)
	if err != nil {
		writeError(w, "Failed to generate playoff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (h *handlers) reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	if err := h.matches.Reconcile(r.Context(), id); err != nil {
		writeError(w, "Failed to reconcile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	m, err := h.matches.GetMatch(r.Context(), id, chi.URLParam(r, "matchID"))
	if err != nil {
		writeError(w, "Match not found", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

type scheduleRequest struct {
	ScheduledAt int64 `json:"scheduledAt"`
	BestOf      int   `json:"bestOf"`
}

func (h *handlers) scheduleMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ScheduledAt <= 0 {
		httputil.BadRequest(w, "scheduledAt is required", nil)
		return
	}
	m, err := h.matches.ScheduleMatch(r.Context(), id, chi.URLParam(r, "matchID"), time.UnixMilli(req.ScheduledAt), req.BestOf)
	if err != nil {
		writeError(w, "Failed to schedule match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *handlers) submitResult(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	var in progression.ResultInput
	if !decode(w, r, &in) {
		return
	}
	sub, err := h.matches.SubmitResult(r.Context(), id, chi.URLParam(r, "matchID"), in)
	if err != nil {
		writeError(w, "Failed to submit result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *handlers) resetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	if err := h.matches.ResetMatch(r.Context(), id, chi.URLParam(r, "matchID")); err != nil {
		writeError(w, "Failed to reset match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type readyRequest struct {
	TeamID string `json:"teamId"`
	UID    string `json:"uid"`
}

func (h *handlers) markReady(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	var req readyRequest
	if !decode(w, r, &req) {
		return
	}
	rc, err := h.matches.MarkReady(r.Context(), id, chi.URLParam(r, "matchID"), req.TeamID, callerUID(r, req.UID))
	if err != nil {
		writeError(w, "Failed to mark ready", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rc)
}

type vetoRequest struct {
	TeamID string             `json:"teamId"`
	UID    string             `json:"uid"`
	Action bracket.VetoAction `json:"action"`
	Map    string             `json:"map"`
}

func (h *handlers) vetoMove(w http.ResponseWriter, r *http.Request) {
	id, ok := tournamentID(w, r)
	if !ok {
		return
	}
	var req vetoRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.matches.VetoMove(r.Context(), id, chi.URLParam(r, "matchID"), req.TeamID, callerUID(r, req.UID), req.Action, req.Map)
	if err != nil {
		writeError(w, "Failed to apply veto move", err)
		return
	}
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, res)
}
