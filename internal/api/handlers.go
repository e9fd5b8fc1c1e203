package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/storygraph/internal/nodemanager"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	mgr nodemanager.Manager
}

// NewHandler creates a new Handler.
func NewHandler(mgr nodemanager.Manager) *Handler {
	return &Handler{mgr: mgr}
}

func decodeNodeRequest(w http.ResponseWriter, r *http.Request) (NodeRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req NodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return req, false
	}
	return req, true
}

// CreateNode handles POST /api/v1/nodes.
//
//	@Summary		Create a node with its content
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NodeRequest	true	"Node to create"
//	@Success		201		{object}	NodeDetail
//	@Failure		400		{object}	errResponse
//	@Router			/v1/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNodeRequest(w, r)
	if !ok {
		return
	}
	node, err := h.mgr.Create(r.Context(), req.draft())
	if err != nil {
		writeError(w, "create node", err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// GetNode handles GET /api/v1/nodes/{id}.
//
//	@Summary		Get a node by id
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeDetail
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/v1/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.mgr.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// FindNodes handles GET /api/v1/nodes/find.
//
//	@Summary		Find nodes by exact title
//	@Tags			nodes
//	@Produce		json
//	@Param			title	query		string	true	"Exact title"
//	@Success		200		{object}	NodeListResponse
//	@Failure		400		{object}	errResponse
//	@Router			/v1/nodes/find [get]
func (h *Handler) FindNodes(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(title) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'title' is required"))
		return
	}
	nodes, err := h.mgr.FindByTitle(r.Context(), title)
	if err != nil {
		writeError(w, "find nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: nodes})
}

// UpdateNode handles PATCH /api/v1/nodes/{id} and PATCH /api/v1/nodes.
//
//	@Summary		Replace a node's title and text
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		false	"Node id (or id in body)"
//	@Param			body	body		NodeRequest	true	"New values"
//	@Success		200		{object}	NodeDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/v1/nodes/{id} [patch]
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNodeRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		id = req.ID
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	node, err := h.mgr.Update(r.Context(), id, req.draft())
	if err != nil {
		writeError(w, "update node", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /api/v1/nodes/{id}.
//
//	@Summary		Delete a node, its content and its edges
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeDetail	"The node as it was before deletion"
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/v1/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.mgr.DeleteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete node", err)
		return
	}
	slog.Debug("node deleted", slog.String("id", node.ID.String()))
	writeJSON(w, http.StatusOK, node)
}

// ListChildren handles GET /api/v1/nodes/{id}/children.
//
//	@Summary		List the choices leaving a node
//	@Tags			edges
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	EdgeListResponse
//	@Failure		404	{object}	errResponse
//	@Router			/v1/nodes/{id}/children [get]
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	edges, err := h.mgr.Children(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list children", err)
		return
	}
	writeJSON(w, http.StatusOK, EdgeListResponse{Edges: edges})
}

// ListParents handles GET /api/v1/nodes/{id}/parents.
//
//	@Summary		List the choices leading into a node
//	@Tags			edges
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	EdgeListResponse
//	@Failure		404	{object}	errResponse
//	@Router			/v1/nodes/{id}/parents [get]
func (h *Handler) ListParents(w http.ResponseWriter, r *http.Request) {
	edges, err := h.mgr.Parents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list parents", err)
		return
	}
	writeJSON(w, http.StatusOK, EdgeListResponse{Edges: edges})
}
