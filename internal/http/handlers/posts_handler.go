package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/middleware"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/response"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/service"
)

type PostsHandler struct {
	Posts *service.PostService
}

func NewPostsHandler(posts *service.PostService) *PostsHandler {
	return &PostsHandler{Posts: posts}
}

func (h *PostsHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/slug/{slug}", h.getBySlug)
	return r
}

func (h *PostsHandler) StaffRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

func (h *PostsHandler) PublicCategoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listCategories)
	r.Get("/{id}", h.getCategory)
	return r
}

func (h *PostsHandler) StaffCategoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.createCategory)
	r.Put("/{id}", h.updateCategory)
	r.Delete("/{id}", h.removeCategory)
	return r
}

func (h *PostsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PostFilter{
		Search: q.Get("search"),
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 10),
	}
	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid category filter")
			return
		}
		f.CategoryID = &id
	}
	if raw := q.Get("isActive"); raw != "" {
		active := raw == "true"
		f.IsActive = &active
	}

	ps, meta, err := h.Posts.List(r.Context(), f)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if ps == nil {
		ps = []domain.Post{}
	}
	response.WriteJSON(w, http.StatusOK, response.ListResponse{Data: ps, Meta: meta})
}

func (h *PostsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid post id")
		return
	}
	p, err := h.Posts.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *PostsHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		response.BadRequest(w, "missing slug")
		return
	}
	p, err := h.Posts.GetBySlug(r.Context(), slug)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *PostsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	claims := middleware.Claims(r)
	p, err := h.Posts.Create(r.Context(), in, claims.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, p)
}

func (h *PostsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid post id")
		return
	}
	var patch domain.PostPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	p, err := h.Posts.Update(r.Context(), id, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

func (h *PostsHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid post id")
		return
	}
	if err := h.Posts.Delete(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (h *PostsHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Posts.ListCategories(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	if cs == nil {
		cs = []domain.PostCategory{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"data": cs})
}

func (h *PostsHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid category id")
		return
	}
	c, err := h.Posts.GetCategory(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

func (h *PostsHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.PostCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	claims := middleware.Claims(r)
	c, err := h.Posts.CreateCategory(r.Context(), in, claims.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, c)
}

func (h *PostsHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid category id")
		return
	}
	var patch domain.PostCategoryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	c, err := h.Posts.UpdateCategory(r.Context(), id, patch)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

func (h *PostsHandler) removeCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid category id")
		return
	}
	if err := h.Posts.DeleteCategory(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}
