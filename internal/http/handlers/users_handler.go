package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/middleware"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/response"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/service"
)

type UsersHandler struct {
	Users *service.UserService
}

func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{Users: users}
}

// Routes require authentication; listing and deleting are further
// restricted per-route.
func (h *UsersHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/me", h.me)
	r.Put("/me", h.updateMe)
	r.Put("/me/password", h.changePassword)
	r.With(middleware.RequireRole("admin")).Get("/", h.list)
	r.With(middleware.RequireRole("admin")).Post("/", h.create)
	r.With(middleware.RequireRole("admin")).Get("/{id}", h.get)
	r.With(middleware.RequireRole("admin")).Put("/{id}", h.update)
	r.With(middleware.RequireRole("admin")).Delete("/{id}", h.remove)
	return r
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	u, err := h.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	var patch domain.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	// Self-service edits cannot change the role.
	patch.Role = nil
	u, err := h.Users.Update(r.Context(), claims.UserID, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.Users.ChangePassword(r.Context(), claims.UserID, in.CurrentPassword, in.NewPassword); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in service.AdminCreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	u, err := h.Users.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.UserFilter{
		Search: q.Get("search"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 10),
	}
	if raw := q.Get("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			response.BadRequest(w, "invalid role filter")
			return
		}
		f.Role = &role
	}

	us, meta, err := h.Users.List(r.Context(), f)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if us == nil {
		us = []domain.User{}
	}
	response.WriteJSON(w, http.StatusOK, response.ListResponse{Data: us, Meta: meta})
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid user id")
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid user id")
		return
	}
	var patch domain.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	u, err := h.Users.Update(r.Context(), id, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid user id")
		return
	}
	claims := middleware.Claims(r)
	if claims.UserID == id {
		response.BadRequest(w, "cannot delete your own account")
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
