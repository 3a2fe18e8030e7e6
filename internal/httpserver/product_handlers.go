package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"bazaar/internal/domain"
	"bazaar/internal/service"
)

type variantRequest struct {
	Name   string `json:"name" validate:"required,max=128"`
	Stock  int64  `json:"stock" validate:"gte=0"`
	Active *bool  `json:"active"`
}

type productRequest struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Description string           `json:"description"`
	Price       float64          `json:"price" validate:"gte=0"`
	ImageURL    string           `json:"image_url" validate:"omitempty,url"`
	CategoryID  *int64           `json:"category_id"`
	HasVariants bool             `json:"has_variants"`
	Stock       int64            `json:"stock" validate:"gte=0"`
	Variants    []variantRequest `json:"variants" validate:"dive"`
}

func (req productRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		HasVariants: req.HasVariants,
		Stock:       req.Stock,
		Variants: lo.Map(req.Variants, func(v variantRequest, _ int) service.VariantInput {
			return service.VariantInput{Name: v.Name, Stock: v.Stock, Active: v.Active}
		}),
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (s *Server) handleListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := domain.ProductFilter{Query: q.Get("q")}
		if raw := q.Get("category"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "invalid category filter")
				return
			}
			filter.CategoryID = &id
		}
		if raw := q.Get("seller_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "invalid seller filter")
				return
			}
			filter.SellerID = &id
		}

		products, err := s.catalog.List(r.Context(), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func (s *Server) handleGetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		product, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func (s *Server) handleCreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		product, err := s.catalog.Create(r.Context(), CurrentUser(r).ID, req.toInput())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	}
}

func (s *Server) handleUpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		existing, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !CanManageProduct(CurrentUser(r), existing) {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}

		var req productRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		product, err := s.catalog.Update(r.Context(), id, req.toInput())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

// handleArchiveProduct retires a listing instead of deleting it. Order items
// keep referencing archived products.
func (s *Server) handleArchiveProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		existing, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !CanManageProduct(CurrentUser(r), existing) {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}
		if err := s.catalog.Archive(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRestoreProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		existing, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !CanManageProduct(CurrentUser(r), existing) {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}
		product, err := s.catalog.Restore(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func (s *Server) handleListArchivedProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(CurrentUser(r)) {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}
		products, err := s.catalog.ListArchived(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}
