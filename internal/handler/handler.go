// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
	"github.com/Shivanand-hulikatti/crew-planner/internal/service"
)

// EventHandler holds all HTTP handlers for the crew planner API.
type EventHandler struct {
	svc    *service.EventService
	logger *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// Routes mounts the event API. Identity must run before these handlers.
func (h *EventHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListEvents)
	r.Post("/", h.CreateEvent)
	r.Route("/{eventKey}", func(r chi.Router) {
		r.Get("/", h.GetEvent)
		r.Put("/", h.UpdateEvent)
		r.Delete("/", h.DeleteEvent)
		r.Put("/slots", h.UpdateSlots)
		r.Post("/registrations", h.AddRegistration)
		r.Route("/registrations/{registrationKey}", func(r chi.Router) {
			r.Get("/", h.ViewRegistration)
			r.Put("/", h.UpdateRegistration)
			r.Delete("/", h.RemoveRegistration)
			r.Post("/confirm", h.ConfirmRegistration)
			r.Post("/decline", h.DeclineRegistration)
		})
	})
	return r
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain errors to status codes. Unexpected errors
// are logged and hidden from the client.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func eventKeyParam(r *http.Request) (model.EventKey, error) {
	return model.ParseEventKey(chi.URLParam(r, "eventKey"))
}

func registrationKeyParams(r *http.Request) (model.EventKey, model.RegistrationKey, error) {
	eventKey, err := eventKeyParam(r)
	if err != nil {
		return "", "", err
	}
	regKey, err := model.ParseRegistrationKey(chi.URLParam(r, "registrationKey"))
	if err != nil {
		return "", "", err
	}
	return eventKey, regKey, nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /events?year=
// Returns the events of the year the caller may see, current year by default.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		year = parsed
	}

	events, err := h.svc.ListEvents(r.Context(), ViewerFrom(r.Context()), year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), ViewerFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{eventKey}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	key, err := eventKeyParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), ViewerFrom(r.Context()), key)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{eventKey}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	key, err := eventKeyParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), ViewerFrom(r.Context()), key, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateSlots handles PUT /events/{eventKey}/slots
// Replaces the whole slot plan.
func (h *EventHandler) UpdateSlots(w http.ResponseWriter, r *http.Request) {
	key, err := eventKeyParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req model.UpdateSlotsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateSlots(r.Context(), ViewerFrom(r.Context()), key, req.Slots)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{eventKey}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	key, err := eventKeyParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), ViewerFrom(r.Context()), key); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// AddRegistration handles POST /events/{eventKey}/registrations
func (h *EventHandler) AddRegistration(w http.ResponseWriter, r *http.Request) {
	key, err := eventKeyParam(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req model.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.AddRegistration(r.Context(), ViewerFrom(r.Context()), key, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// UpdateRegistration handles PUT /events/{eventKey}/registrations/{registrationKey}
func (h *EventHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	eventKey, regKey, err := registrationKeyParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req model.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.UpdateRegistration(r.Context(), ViewerFrom(r.Context()), eventKey, regKey, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// RemoveRegistration handles DELETE /events/{eventKey}/registrations/{registrationKey}
func (h *EventHandler) RemoveRegistration(w http.ResponseWriter, r *http.Request) {
	eventKey, regKey, err := registrationKeyParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.RemoveRegistration(r.Context(), ViewerFrom(r.Context()), eventKey, regKey); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Access-key actions ───────────────────────────────────────────────────────

// ViewRegistration handles GET /events/{eventKey}/registrations/{registrationKey}?accessKey=
// Serves registrants following a link from a confirmation message.
func (h *EventHandler) ViewRegistration(w http.ResponseWriter, r *http.Request) {
	eventKey, regKey, err := registrationKeyParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.ViewRegistration(r.Context(), eventKey, regKey, r.URL.Query().Get("accessKey"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ConfirmRegistration handles POST /events/{eventKey}/registrations/{registrationKey}/confirm
func (h *EventHandler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	h.accessKeyAction(w, r, h.svc.ConfirmRegistration)
}

// DeclineRegistration handles POST /events/{eventKey}/registrations/{registrationKey}/decline
func (h *EventHandler) DeclineRegistration(w http.ResponseWriter, r *http.Request) {
	h.accessKeyAction(w, r, h.svc.DeclineRegistration)
}

func (h *EventHandler) accessKeyAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, eventKey model.EventKey, key model.RegistrationKey, accessKey string) error,
) {
	eventKey, regKey, err := registrationKeyParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req model.AccessKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := action(r.Context(), eventKey, regKey, req.AccessKey); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessCheck handles GET /ready by running every dependency check.
func ReadinessCheck(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		writeJSON(w, status, result)
	}
}
