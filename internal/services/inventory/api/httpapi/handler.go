// Package httpapi serves the inventory JSON API, the public item detail page
// and printable item labels.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/session"
	"github.com/louisbranch/inventag/internal/artifact/symbol"
	apperrors "github.com/louisbranch/inventag/internal/platform/errors"
	"github.com/louisbranch/inventag/internal/platform/pagination"
	"github.com/louisbranch/inventag/internal/platform/requestctx"
	"github.com/louisbranch/inventag/internal/platform/timeouts"
	"github.com/louisbranch/inventag/internal/services/inventory/credential"
	"github.com/louisbranch/inventag/internal/services/inventory/storage"
	"github.com/louisbranch/inventag/internal/services/inventory/templates"
)

var pageSizes = pagination.PageSizeConfig{Default: 50, Max: 200}

// Authenticator exchanges credentials for tokens and verifies them.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, credential.Claims, error)
	Verify(token string) (credential.Claims, error)
}

// LabelRenderer produces label PDFs and lookup symbols.
type LabelRenderer interface {
	Render(ctx context.Context, item artifact.Item, w io.Writer) (session.Receipt, error)
	Symbol(id string) (symbol.Snapshot, error)
	LookupURL(id string) string
}

// Config wires a Handler.
type Config struct {
	Items  storage.ItemStore
	Auth   Authenticator
	Labels LabelRenderer
}

// Handler serves the inventory HTTP API.
type Handler struct {
	items  storage.ItemStore
	auth   Authenticator
	labels LabelRenderer
	router chi.Router
}

// NewHandler builds the API router.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Items == nil {
		return nil, errors.New("item store is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if cfg.Labels == nil {
		return nil, errors.New("label renderer is required")
	}
	h := &Handler{items: cfg.Items, auth: cfg.Auth, labels: cfg.Labels}

	r := chi.NewRouter()
	r.Use(requestID, recoverPanic, logRequests, allowAllOrigins, compress)
	r.Get("/healthz", h.healthz)
	r.Get("/api/itemdetails/{id}", h.itemDetails)
	r.Post("/api/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.requireBearer)
		r.Post("/api/items", h.createItem)
		r.Get("/api/items", h.listItems)
		r.Get("/api/items/{id}", h.getItem)
		r.Get("/api/items/{id}/label.pdf", h.itemLabel)
	})
	h.router = r
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// itemID accepts both JSON strings and numbers.
type itemID string

func (id *itemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = itemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = itemID(n.String())
	return nil
}

type itemRequest struct {
	ID          itemID `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

type itemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type listResponse struct {
	Items         []itemResponse `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func toItemResponse(item storage.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
		CreatedBy:   item.CreatedBy,
		CreatedAt:   item.CreatedAt,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
	defer cancel()
	token, claims, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: claims.ExpiresAt})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item := storage.Item{
		ID:          strings.TrimSpace(string(req.ID)),
		Name:        strings.TrimSpace(req.Name),
		Price:       strings.TrimSpace(req.Price),
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   requestctx.UsernameFromContext(r.Context()),
		CreatedAt:   time.Now().UTC(),
	}
	if err := storage.ValidateItemID(item.ID); err != nil {
		writeError(w, itemIDError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
	defer cancel()
	if err := h.items.CreateItem(ctx, item); err != nil {
		writeError(w, storageError(err, item.ID))
		return
	}
	created, err := h.items.GetItem(ctx, item.ID)
	if err != nil {
		writeError(w, storageError(err, item.ID))
		return
	}
	w.Header().Set("Location", "/api/items/"+created.ID)
	writeJSON(w, http.StatusCreated, toItemResponse(created))
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	pageSize, err := pagination.ParsePageSize(r.URL.Query().Get("page_size"), pageSizes)
	if err != nil {
		writeError(w, apperrors.WithMetadata(
			apperrors.CodeInvalidArgument,
			err.Error(),
			map[string]string{"Field": "page_size"},
		))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
	defer cancel()
	page, err := h.items.ListItems(ctx, pageSize, r.URL.Query().Get("page_token"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := listResponse{
		Items:         make([]itemResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadItem(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) itemLabel(w http.ResponseWriter, r *http.Request) {
	item, err := h.loadItem(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	receipt, err := h.labels.Render(r.Context(), artifact.Item{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
	}, &buf)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeLabelUnavailable, "label could not be produced", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+receipt.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("ETag", `"`+receipt.Digest+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) itemDetails(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
	defer cancel()
	item, err := h.items.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrItemIDRequired) {
			templ.Handler(templates.NotFoundPage(id), templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
			return
		}
		writeError(w, err)
		return
	}
	snap, err := h.labels.Symbol(item.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	symbolPNG, err := snap.PNG()
	if err != nil {
		writeError(w, err)
		return
	}
	templ.Handler(templates.ItemDetailPage(templates.ItemDetailView{
		ID:           item.ID,
		Name:         item.Name,
		Price:        item.Price,
		Description:  item.Description,
		CreatedAt:    item.CreatedAt,
		LookupURL:    h.labels.LookupURL(item.ID),
		SymbolPNG:    symbolPNG,
		SymbolWidth:  snap.DisplayWidth,
		SymbolHeight: snap.DisplayHeight,
	})).ServeHTTP(w, r)
}

func (h *Handler) loadItem(r *http.Request) (storage.Item, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
	defer cancel()
	item, err := h.items.GetItem(ctx, id)
	if err != nil {
		return storage.Item{}, storageError(err, id)
	}
	return item, nil
}

func itemIDError(err error) error {
	if errors.Is(err, storage.ErrItemIDRequired) {
		return apperrors.WithMetadata(apperrors.CodeItemIDRequired, "item id is required", map[string]string{"Field": "id"})
	}
	return apperrors.WithMetadata(apperrors.CodeItemIDInvalid, err.Error(), map[string]string{"Field": "id"})
}

func storageError(err error, id string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.WithMetadata(apperrors.CodeNotFound, "item not found", map[string]string{"ID": id})
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.WithMetadata(apperrors.CodeItemExists, "item already exists", map[string]string{"ID": id})
	case errors.Is(err, storage.ErrItemIDRequired), errors.Is(err, storage.ErrItemIDInvalid):
		return itemIDError(err)
	default:
		return err
	}
}
