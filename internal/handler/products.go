package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/service"
	"github.com/mmeshcher/grocerymart/internal/validation"
)

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryID  *uuid.UUID      `json:"categoryId"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url"`
	ExpiryDate  *string         `json:"expiryDate"`
}

func (req productRequest) input() (service.ProductInput, error) {
	in := service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
	}

	if req.ExpiryDate != nil && strings.TrimSpace(*req.ExpiryDate) != "" {
		d, err := parseDate(*req.ExpiryDate)
		if err != nil {
			return in, err
		}
		in.ExpiryDate = &d
	}

	return in, nil
}

// parseDate принимает дату в виде 2006-01-02 или полную метку времени RFC 3339.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return service.ProductInput{}, false
	}

	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return service.ProductInput{}, false
	}

	in, err := req.input()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "expiryDate must be a date")
		return service.ProductInput{}, false
	}

	return in, true
}

// ListProducts возвращает активные товары каталога.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.ProductFilter{Search: q.Get("search")}

	if raw := q.Get("categoryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "categoryId must be a valid id")
			return
		}
		filter.CategoryID = &id
	}

	if raw := q.Get("nearExpiry"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "nearExpiry must be a boolean")
			return
		}
		filter.NearExpiry = v
	}

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

// ListNearExpiryProducts возвращает товары с истекающим сроком годности.
func (h *Handler) ListNearExpiryProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListNearExpiryProducts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

// ListFeaturedProducts возвращает витрину новинок.
func (h *Handler) ListFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListFeaturedProducts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// CreateProduct создаёт товар.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct заменяет редактируемые поля товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct снимает товар с продажи.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeactivateProduct(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
