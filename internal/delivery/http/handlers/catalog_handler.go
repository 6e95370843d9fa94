package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/usecase"
)

// CatalogHandler exposes the storefront-facing JSON API. It is a consumer
// of the cache/resolver/pricing usecases and never touches the record
// store directly; all writes funnel through the cache's write path.
type CatalogHandler struct {
	resolver usecase.StoreResolverUsecase
	cache    usecase.CatalogCacheUsecase
	pricing  usecase.PricingEngineUsecase
	logger   *slog.Logger
}

func NewCatalogHandler(
	resolver usecase.StoreResolverUsecase,
	cache usecase.CatalogCacheUsecase,
	pricing usecase.PricingEngineUsecase,
	logger *slog.Logger,
) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		resolver: resolver,
		cache:    cache,
		pricing:  pricing,
		logger:   logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stores/{identifier}", h.ResolveStore)
	mux.HandleFunc("GET /api/catalog/{storeID}", h.GetCatalog)
	mux.HandleFunc("POST /api/pricing", h.ComputePricing)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func (h *CatalogHandler) ResolveStore(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")

	store, err := h.resolver.Resolve(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store unavailable")
			return
		}
		h.logger.Error("store resolution failed", "identifier", identifier, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeID")

	view := usecase.CustomerView
	if r.URL.Query().Get("view") == string(usecase.MerchantView) {
		view = usecase.MerchantView
	}

	snapshot, err := h.cache.Get(r.Context(), storeID, view)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store unavailable")
			return
		}
		h.logger.Error("catalog read failed", "store_id", storeID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Store:      snapshot.Store,
		Products:   snapshot.Products,
		Categories: snapshot.Categories,
	})
}

type catalogResponse struct {
	Store      *domain.StoreRecord `json:"store"`
	Products   []*domain.Product   `json:"products"`
	Categories []*domain.Category  `json:"categories"`
}

type pricingRequest struct {
	StoreID string            `json:"storeId"`
	City    string            `json:"city,omitempty"`
	Lines   []domain.CartLine `json:"lines"`
}

type pricingResponse struct {
	Subtotal     float64                `json:"subtotal"`
	TaxAmount    float64                `json:"taxAmount"`
	ShippingCost float64                `json:"shippingCost"`
	Total        float64                `json:"total"`
	Currency     string                 `json:"currency"`
	StaleLines   []domain.StaleCartLine `json:"staleLines,omitempty"`
}

func (h *CatalogHandler) ComputePricing(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StoreID == "" {
		writeError(w, http.StatusBadRequest, "storeId is required")
		return
	}

	// Merchant view: inactive products must stay visible to the engine so
	// lines pointing at them are flagged stale, not treated as missing.
	snapshot, err := h.cache.Get(r.Context(), req.StoreID, usecase.MerchantView)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store unavailable")
			return
		}
		h.logger.Error("pricing catalog read failed", "store_id", req.StoreID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	total, staleLines := h.pricing.ComputeTotal(
		req.Lines,
		snapshot.Products,
		snapshot.Store.Settings,
		usecase.PricingOptions{DestinationCity: req.City},
	)

	writeJSON(w, http.StatusOK, pricingResponse{
		Subtotal:     domain.ToMajorUnits(total.Subtotal),
		TaxAmount:    domain.ToMajorUnits(total.TaxAmount),
		ShippingCost: domain.ToMajorUnits(total.ShippingCost),
		Total:        domain.ToMajorUnits(total.Total),
		Currency:     snapshot.Store.Settings.Currency,
		StaleLines:   staleLines,
	})
}

func (h *CatalogHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
