package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/catalog"
)

type CreateProductRequest struct {
	Nombre           string   `json:"nombre" validate:"required,min=2"`
	DescripcionCorta string   `json:"descripcionCorta" validate:"required"`
	DescripcionLarga string   `json:"descripcionLarga"`
	Precio           int64    `json:"precio" validate:"required,gt=0"`
	PrecioOriginal   *int64   `json:"precioOriginal" validate:"omitempty,gt=0"`
	CategoriaID      string   `json:"categoriaId" validate:"required,uuid4"`
	SKU              string   `json:"sku" validate:"required,min=3"`
	Stock            int      `json:"stock" validate:"min=0"`
	StockMinimo      int      `json:"stockMinimo" validate:"min=0"`
	Imagenes         []string `json:"imagenes"`
	Colores          []string `json:"colores"`
	Tallas           []string `json:"tallas"`
	Tags             []string `json:"tags"`
	Destacado        bool     `json:"destacado"`
	Activo           *bool    `json:"activo"`
	Variantes        []struct {
		Talla  string `json:"talla" validate:"required"`
		Color  string `json:"color" validate:"required"`
		Stock  int    `json:"stock" validate:"min=0"`
		Precio int64  `json:"precio" validate:"required,gt=0"`
		SKU    string `json:"sku" validate:"required"`
	} `json:"variantes" validate:"dive"`
}

type UpdateProductRequest struct {
	Nombre           *string  `json:"nombre" validate:"omitempty,min=2"`
	DescripcionCorta *string  `json:"descripcionCorta"`
	DescripcionLarga *string  `json:"descripcionLarga"`
	Precio           *int64   `json:"precio" validate:"omitempty,gt=0"`
	PrecioOriginal   *int64   `json:"precioOriginal" validate:"omitempty,gt=0"`
	CategoriaID      *string  `json:"categoriaId" validate:"omitempty,uuid4"`
	Stock            *int     `json:"stock" validate:"omitempty,min=0"`
	StockMinimo      *int     `json:"stockMinimo" validate:"omitempty,min=0"`
	Imagenes         []string `json:"imagenes"`
	Colores          []string `json:"colores"`
	Tallas           []string `json:"tallas"`
	Tags             []string `json:"tags"`
	Destacado        *bool    `json:"destacado"`
	Activo           *bool    `json:"activo"`
}

type CreateCategoryRequest struct {
	Nombre      string `json:"nombre" validate:"required,min=2"`
	Descripcion string `json:"descripcion"`
	Imagen      string `json:"imagen"`
	Orden       int    `json:"orden"`
	Activo      *bool  `json:"activo"`
}

type UpdateCategoryRequest struct {
	Nombre      *string `json:"nombre" validate:"omitempty,min=2"`
	Descripcion *string `json:"descripcion"`
	Imagen      *string `json:"imagen"`
	Orden       *int    `json:"orden"`
	Activo      *bool   `json:"activo"`
}

// ProductResponse decorates a product with the derived fields the storefront
// renders directly.
type ProductResponse struct {
	catalog.Product
	Descuento   int    `json:"descuento"`
	EstadoStock string `json:"estadoStock"`
}

type ProductListResponse struct {
	Productos  []ProductResponse `json:"productos"`
	Pagination Pagination        `json:"pagination"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewPagination(total, page, limit int) Pagination {
	if limit < 1 {
		limit = 1
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service, validate: validator.New()}
}

// RegisterPublicRoutes mounts the storefront read endpoints.
func (h *CatalogHandler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/productos", h.handleListProducts)
	router.Get("/productos/{idOrSlug}", h.handleGetProduct)
	router.Get("/categorias", h.handleListCategories)
}

// RegisterAdminRoutes mounts the catalog CRUD endpoints.
func (h *CatalogHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/productos", h.handleCreateProduct)
	router.Put("/productos/{id}", h.handleUpdateProduct)
	router.Patch("/productos/{id}", h.handleUpdateProduct)
	router.Delete("/productos/{id}", h.handleDeleteProduct)

	router.Post("/categorias", h.handleCreateCategory)
	router.Put("/categorias/{id}", h.handleUpdateCategory)
	router.Patch("/categorias/{id}", h.handleUpdateCategory)
	router.Delete("/categorias/{id}", h.handleDeleteCategory)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = catalog.DefaultPageSize
	}

	productos, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products")
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductListResponse{
		Productos:  decorateProducts(productos),
		Pagination: NewPagination(total, filter.Page, filter.Limit),
	})
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")

	producto, err := h.service.GetProduct(r.Context(), idOrSlug)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "Producto no encontrado")
		return
	}
	respondWithJSON(w, http.StatusOK, decorateProduct(producto))
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode create product request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	categoriaID, err := uuid.FromString(requestPayload.CategoriaID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid categoriaId")
		return
	}

	producto := &catalog.Product{
		Nombre:           requestPayload.Nombre,
		DescripcionCorta: requestPayload.DescripcionCorta,
		DescripcionLarga: requestPayload.DescripcionLarga,
		Precio:           requestPayload.Precio,
		PrecioOriginal:   requestPayload.PrecioOriginal,
		CategoriaID:      categoriaID,
		SKU:              requestPayload.SKU,
		Stock:            requestPayload.Stock,
		StockMinimo:      requestPayload.StockMinimo,
		Imagenes:         requestPayload.Imagenes,
		Colores:          requestPayload.Colores,
		Tallas:           requestPayload.Tallas,
		Tags:             requestPayload.Tags,
		Destacado:        requestPayload.Destacado,
		Activo:           true,
	}
	if requestPayload.Activo != nil {
		producto.Activo = *requestPayload.Activo
	}
	for _, v := range requestPayload.Variantes {
		producto.Variantes = append(producto.Variantes, catalog.Variant{
			Talla:  v.Talla,
			Color:  v.Color,
			Stock:  v.Stock,
			Precio: v.Precio,
			SKU:    v.SKU,
		})
	}

	created, err := h.service.CreateProduct(r.Context(), producto)
	if err != nil {
		log.Error().Err(err).Str("sku", requestPayload.SKU).Msg("Failed to create product")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to create product"))
		return
	}
	respondWithJSON(w, http.StatusCreated, decorateProduct(created))
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	update := catalog.ProductUpdate{
		Nombre:           requestPayload.Nombre,
		DescripcionCorta: requestPayload.DescripcionCorta,
		DescripcionLarga: requestPayload.DescripcionLarga,
		Precio:           requestPayload.Precio,
		PrecioOriginal:   requestPayload.PrecioOriginal,
		Stock:            requestPayload.Stock,
		StockMinimo:      requestPayload.StockMinimo,
		Imagenes:         requestPayload.Imagenes,
		Colores:          requestPayload.Colores,
		Tallas:           requestPayload.Tallas,
		Tags:             requestPayload.Tags,
		Destacado:        requestPayload.Destacado,
		Activo:           requestPayload.Activo,
	}
	if requestPayload.CategoriaID != nil {
		categoriaID, err := uuid.FromString(*requestPayload.CategoriaID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid categoriaId")
			return
		}
		update.CategoriaID = &categoriaID
	}

	updated, err := h.service.UpdateProduct(r.Context(), id, update)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("Failed to update product")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to update product"))
		return
	}
	respondWithJSON(w, http.StatusOK, decorateProduct(updated))
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("Failed to delete product")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to delete product"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("todas") != "true"

	categorias, err := h.service.ListCategories(r.Context(), onlyActive)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories")
		respondWithError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"categorias": categorias})
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCategoryRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	categoria := &catalog.Category{
		Nombre:      requestPayload.Nombre,
		Descripcion: requestPayload.Descripcion,
		Imagen:      requestPayload.Imagen,
		Orden:       requestPayload.Orden,
		Activo:      true,
	}
	if requestPayload.Activo != nil {
		categoria.Activo = *requestPayload.Activo
	}

	created, err := h.service.CreateCategory(r.Context(), categoria)
	if err != nil {
		log.Error().Err(err).Str("nombre", requestPayload.Nombre).Msg("Failed to create category")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to create category"))
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateCategoryRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	updated, err := h.service.UpdateCategory(r.Context(), id, catalog.CategoryUpdate{
		Nombre:      requestPayload.Nombre,
		Descripcion: requestPayload.Descripcion,
		Imagen:      requestPayload.Imagen,
		Orden:       requestPayload.Orden,
		Activo:      requestPayload.Activo,
	})
	if err != nil {
		log.Error().Err(err).Stringer("category_id", id).Msg("Failed to update category")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to update category"))
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		log.Error().Err(err).Stringer("category_id", id).Msg("Failed to delete category")
		respondWithError(w, mapErrorToStatusCode(err), clientMessageFor(err, "Failed to delete category"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productFilterFromQuery(r *http.Request) (catalog.ProductFilter, error) {
	q := r.URL.Query()
	filter := catalog.ProductFilter{
		Search:     q.Get("search"),
		Stock:      q.Get("stock"),
		Ofertas:    q.Get("ofertas") == "true",
		Destacados: q.Get("destacados") == "true",
	}
	if filter.Search == "" {
		filter.Search = q.Get("buscar")
	}

	// The admin frontend sends the category id under "categoria", the
	// storefront sends the slug.
	if raw := q.Get("categoria"); raw != "" {
		if id, err := uuid.FromString(raw); err == nil {
			filter.CategoriaID = id
		} else {
			filter.CategoriaSlug = raw
		}
	}
	if raw := q.Get("categoriaId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			return filter, errInvalidQueryParam("categoriaId")
		}
		filter.CategoriaID = id
	}
	if raw := q.Get("precioMin"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errInvalidQueryParam("precioMin")
		}
		filter.MinPrecio = &n
	}
	if raw := q.Get("precioMax"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errInvalidQueryParam("precioMax")
		}
		filter.MaxPrecio = &n
	}
	if raw := q.Get("activo"); raw != "" {
		activo := raw == "true"
		filter.Activo = &activo
	}
	if raw := q.Get("tallas"); raw != "" {
		filter.Tallas = strings.Split(raw, ",")
	}
	if raw := q.Get("colores"); raw != "" {
		filter.Colores = strings.Split(raw, ",")
	}
	if raw := q.Get("page"); raw != "" {
		filter.Page, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	return filter, nil
}

func decorateProduct(p *catalog.Product) ProductResponse {
	resp := ProductResponse{
		Product:     *p,
		EstadoStock: catalog.StockStatus(p.Stock, p.StockMinimo),
	}
	if p.PrecioOriginal != nil {
		resp.Descuento = catalog.Discount(*p.PrecioOriginal, p.Precio)
	}
	return resp
}

func decorateProducts(productos []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(productos))
	for i := range productos {
		out = append(out, decorateProduct(&productos[i]))
	}
	return out
}
