package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/middleware"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/response"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/service"
)

type EventsHandler struct {
	Events *service.EventService
}

func NewEventsHandler(events *service.EventService) *EventsHandler {
	return &EventsHandler{Events: events}
}

func (h *EventsHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/slug/{slug}", h.getBySlug)
	return r
}

func (h *EventsHandler) StaffRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.EventFilter{
		Search: q.Get("search"),
		Slug:   q.Get("slug"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 10),
	}
	if raw := q.Get("isActive"); raw != "" {
		active := raw == "true"
		f.IsActive = &active
	}
	if raw := q.Get("type"); raw != "" {
		typ, ok := domain.ParseEventType(raw)
		if !ok {
			response.BadRequest(w, "invalid type filter")
			return
		}
		f.Type = &typ
	}
	if raw := q.Get("createdBy"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid createdBy filter")
			return
		}
		f.CreatedBy = &id
	}
	if raw := q.Get("startDateFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "startDateFrom must be RFC 3339")
			return
		}
		f.StartDateFrom = &t
	}
	if raw := q.Get("endDateTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "endDateTo must be RFC 3339")
			return
		}
		f.EndDateTo = &t
	}
	if raw := q.Get("priceMin"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid priceMin")
			return
		}
		f.PriceMin = &v
	}
	if raw := q.Get("priceMax"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid priceMax")
			return
		}
		f.PriceMax = &v
	}
	if raw := q.Get("capacityMin"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "invalid capacityMin")
			return
		}
		f.CapacityMin = &v
	}
	if raw := q.Get("capacityMax"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "invalid capacityMax")
			return
		}
		f.CapacityMax = &v
	}

	evs, meta, err := h.Events.List(r.Context(), f)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if evs == nil {
		evs = []domain.Event{}
	}
	response.WriteJSON(w, http.StatusOK, response.ListResponse{Data: evs, Meta: meta})
}

func (h *EventsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid event id")
		return
	}
	ev, err := h.Events.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, ev)
}

func (h *EventsHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		response.BadRequest(w, "missing slug")
		return
	}
	ev, err := h.Events.GetBySlug(r.Context(), slug)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, ev)
}

func (h *EventsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	claims := middleware.Claims(r)
	ev, err := h.Events.Create(r.Context(), in, claims.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, ev)
}

func (h *EventsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid event id")
		return
	}
	var patch domain.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	ev, err := h.Events.Update(r.Context(), id, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, ev)
}

func (h *EventsHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid event id")
		return
	}
	if err := h.Events.Delete(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}
