package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/metrics"
	catalogdto "github.com/abdalwely/stor-sub001/internal/usecase/dto/catalog"
	"github.com/google/uuid"
)

type CatalogView string

const (
	// MerchantView sees every product status; CustomerView only active
	// products. Filtering happens at read time so one snapshot serves both.
	MerchantView CatalogView = "merchant"
	CustomerView CatalogView = "customer"
)

// CatalogSnapshot is one store's complete cached slice. Snapshots are
// replaced wholesale, never patched, so readers observe either the old or
// the new slice in full.
type CatalogSnapshot struct {
	Store      *domain.StoreRecord
	Products   []*domain.Product
	Categories []*domain.Category
}

// Notifier receives the change notifications produced by the cache's write
// path. The sync bus implements it.
type Notifier interface {
	Publish(n domain.ChangeNotification) error
}

type CatalogCacheUsecase interface {
	Get(ctx context.Context, storeID string, view CatalogView) (*CatalogSnapshot, error)
	Invalidate(storeID string)
	Hydrate(ctx context.Context, storeID string) error

	Stores() []*domain.StoreRecord
	RefreshIndex(ctx context.Context) error

	CreateStore(ctx context.Context, input *catalogdto.CreateStoreInput) (*domain.StoreRecord, error)
	UpdateStore(ctx context.Context, store *domain.StoreRecord) error
	SaveCustomization(ctx context.Context, storeID string, customization domain.Customization) error
	CreateProduct(ctx context.Context, input *catalogdto.CreateProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, storeID, productID string) error
	CreateCategory(ctx context.Context, input *catalogdto.CreateCategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, storeID, categoryID string) error
}

type slice struct {
	snapshot *CatalogSnapshot
	stale    bool
}

type DefaultCatalogCache struct {
	store     domain.RecordStore
	contextID string
	clock     Clock
	metrics   *metrics.CatalogMetrics
	logger    *slog.Logger

	mu       sync.RWMutex
	slices   map[string]*slice
	index    map[string]*domain.StoreRecord
	notifier Notifier
}

func NewDefaultCatalogCache(
	store domain.RecordStore,
	contextID string,
	clock Clock,
	m *metrics.CatalogMetrics,
	logger *slog.Logger,
) *DefaultCatalogCache {
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultCatalogCache{
		store:     store,
		contextID: contextID,
		clock:     clock,
		metrics:   m,
		logger:    logger,
		slices:    make(map[string]*slice),
		index:     make(map[string]*domain.StoreRecord),
	}
}

// AttachNotifier wires the sync bus in after both sides exist. Writes made
// before a notifier is attached are persisted but not announced.
func (c *DefaultCatalogCache) AttachNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

func (c *DefaultCatalogCache) ContextID() string {
	return c.contextID
}

func (c *DefaultCatalogCache) Get(ctx context.Context, storeID string, view CatalogView) (*CatalogSnapshot, error) {
	if storeID == "" {
		return nil, fmt.Errorf("store id is required")
	}

	c.mu.RLock()
	s, ok := c.slices[storeID]
	if ok && !s.stale {
		snapshot := s.snapshot
		c.mu.RUnlock()
		c.recordCacheRead(view, "hit")
		return filterSnapshot(snapshot, view), nil
	}
	c.mu.RUnlock()

	// Stale or missing slice: hydrate synchronously before returning.
	if err := c.hydrate(ctx, storeID, "read"); err != nil {
		c.recordCacheRead(view, "miss")
		return nil, err
	}

	c.mu.RLock()
	s, ok = c.slices[storeID]
	c.mu.RUnlock()
	if !ok {
		c.recordCacheRead(view, "miss")
		return nil, domain.ErrStoreNotFound
	}
	c.recordCacheRead(view, "hydrated")
	return filterSnapshot(s.snapshot, view), nil
}

// Invalidate marks a slice stale without blocking. The next Get hydrates.
func (c *DefaultCatalogCache) Invalidate(storeID string) {
	c.mu.Lock()
	if s, ok := c.slices[storeID]; ok {
		s.stale = true
	}
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordInvalidation(storeID)
	}
}

func (c *DefaultCatalogCache) Hydrate(ctx context.Context, storeID string) error {
	return c.hydrate(ctx, storeID, "direct")
}

// hydrate rebuilds one store's slice from the record store and swaps it in
// atomically. A malformed sibling key is skipped and logged, never fatal
// for the rest of the slice.
func (c *DefaultCatalogCache) hydrate(ctx context.Context, storeID, trigger string) error {
	started := c.clock.Now()

	raw, err := c.store.Get(ctx, domain.StoreKey(storeID))
	if err != nil {
		return fmt.Errorf("failed to read store record: %w", err)
	}
	if raw == nil {
		// Store gone (or never written): drop the slice entirely.
		c.mu.Lock()
		delete(c.slices, storeID)
		delete(c.index, storeID)
		c.mu.Unlock()
		return domain.ErrStoreNotFound
	}

	var store domain.StoreRecord
	if err := json.Unmarshal(raw, &store); err != nil {
		c.logger.Warn("malformed store record, treating as missing",
			"store_id", storeID, "error", err)
		c.recordKeyError(storeID, "store")
		c.mu.Lock()
		delete(c.slices, storeID)
		delete(c.index, storeID)
		c.mu.Unlock()
		return domain.ErrStoreNotFound
	}

	products, err := c.loadProducts(ctx, storeID)
	if err != nil {
		return err
	}
	categories, err := c.loadCategories(ctx, storeID)
	if err != nil {
		return err
	}

	snapshot := &CatalogSnapshot{
		Store:      &store,
		Products:   products,
		Categories: categories,
	}

	c.mu.Lock()
	c.slices[storeID] = &slice{snapshot: snapshot}
	c.index[storeID] = &store
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordHydration(storeID, trigger, c.clock.Now().Sub(started).Seconds())
	}
	return nil
}

func (c *DefaultCatalogCache) loadProducts(ctx context.Context, storeID string) ([]*domain.Product, error) {
	keys, err := c.store.Keys(ctx, domain.ProductKeysPrefix(storeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list product keys: %w", err)
	}

	products := make([]*domain.Product, 0, len(keys))
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil || raw == nil {
			c.logger.Warn("skipping unreadable product record", "key", key, "error", err)
			c.recordKeyError(storeID, "product")
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Warn("skipping malformed product record", "key", key, "error", err)
			c.recordKeyError(storeID, "product")
			continue
		}
		products = append(products, &p)
	}

	// Deterministic order keeps back-to-back hydrations byte-identical.
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (c *DefaultCatalogCache) loadCategories(ctx context.Context, storeID string) ([]*domain.Category, error) {
	keys, err := c.store.Keys(ctx, domain.CategoryKeysPrefix(storeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list category keys: %w", err)
	}

	categories := make([]*domain.Category, 0, len(keys))
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil || raw == nil {
			c.logger.Warn("skipping unreadable category record", "key", key, "error", err)
			c.recordKeyError(storeID, "category")
			continue
		}
		var cat domain.Category
		if err := json.Unmarshal(raw, &cat); err != nil {
			c.logger.Warn("skipping malformed category record", "key", key, "error", err)
			c.recordKeyError(storeID, "category")
			continue
		}
		categories = append(categories, &cat)
	}

	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

// Stores returns the current store index. Order is not defined.
func (c *DefaultCatalogCache) Stores() []*domain.StoreRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stores := make([]*domain.StoreRecord, 0, len(c.index))
	for _, s := range c.index {
		stores = append(stores, s)
	}
	return stores
}

// RefreshIndex reloads every store record from the record store. Used by
// the resolver during cold start.
func (c *DefaultCatalogCache) RefreshIndex(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, domain.StoreKeysPrefix())
	if err != nil {
		return fmt.Errorf("failed to list store keys: %w", err)
	}

	index := make(map[string]*domain.StoreRecord, len(keys))
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil || raw == nil {
			c.logger.Warn("skipping unreadable store record", "key", key, "error", err)
			continue
		}
		var store domain.StoreRecord
		if err := json.Unmarshal(raw, &store); err != nil {
			c.logger.Warn("skipping malformed store record", "key", key, "error", err)
			continue
		}
		index[store.ID] = &store
	}

	c.mu.Lock()
	c.index = index
	c.mu.Unlock()
	return nil
}

func (c *DefaultCatalogCache) CreateStore(ctx context.Context, input *catalogdto.CreateStoreInput) (*domain.StoreRecord, error) {
	if input.Subdomain == "" {
		return nil, fmt.Errorf("subdomain is required")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("store name is required")
	}

	now := c.clock.Now()
	store := &domain.StoreRecord{
		ID:            domain.StoreIDPrefix + uuid.New().String(),
		Subdomain:     input.Subdomain,
		Name:          input.Name,
		OwnerID:       input.OwnerID,
		Customization: input.Customization,
		Settings:      input.Settings,
		Status:        domain.StoreStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.writeStore(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	c.notify(domain.ChangeTypeStore, store.ID)
	return store, nil
}

func (c *DefaultCatalogCache) UpdateStore(ctx context.Context, store *domain.StoreRecord) error {
	if store == nil || store.ID == "" {
		return fmt.Errorf("store id is required")
	}
	store.UpdatedAt = c.clock.Now()
	if err := c.writeStore(ctx, store); err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	c.notify(domain.ChangeTypeStore, store.ID)
	return nil
}

func (c *DefaultCatalogCache) SaveCustomization(ctx context.Context, storeID string, customization domain.Customization) error {
	store, err := c.storeByID(ctx, storeID)
	if err != nil {
		return err
	}
	store.Customization = customization
	store.UpdatedAt = c.clock.Now()
	if err := c.writeStore(ctx, store); err != nil {
		return fmt.Errorf("failed to save customization: %w", err)
	}
	c.notify(domain.ChangeTypeCustomization, storeID)
	return nil
}

func (c *DefaultCatalogCache) CreateProduct(ctx context.Context, input *catalogdto.CreateProductInput) (*domain.Product, error) {
	if input.StoreID == "" {
		return nil, fmt.Errorf("store id is required")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("stock must not be negative")
	}

	status := input.Status
	if status == "" {
		status = domain.ProductStatusDraft
	}

	product := &domain.Product{
		ID:        uuid.New().String(),
		StoreID:   input.StoreID,
		Name:      input.Name,
		Price:     input.Price,
		SalePrice: input.SalePrice,
		Category:  input.Category,
		Stock:     input.Stock,
		Status:    status,
		Featured:  input.Featured,
		CreatedAt: c.clock.Now(),
	}

	if err := c.writeJSON(ctx, domain.ProductKey(product.StoreID, product.ID), product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	c.Invalidate(product.StoreID)
	c.notify(domain.ChangeTypeProduct, product.StoreID)
	return product, nil
}

func (c *DefaultCatalogCache) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" || product.StoreID == "" {
		return fmt.Errorf("product id and store id are required")
	}
	if err := c.writeJSON(ctx, domain.ProductKey(product.StoreID, product.ID), product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	c.Invalidate(product.StoreID)
	c.notify(domain.ChangeTypeProduct, product.StoreID)
	return nil
}

func (c *DefaultCatalogCache) DeleteProduct(ctx context.Context, storeID, productID string) error {
	if storeID == "" || productID == "" {
		return fmt.Errorf("store id and product id are required")
	}
	if err := c.store.Remove(ctx, domain.ProductKey(storeID, productID)); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	c.Invalidate(storeID)
	c.notify(domain.ChangeTypeProduct, storeID)
	return nil
}

func (c *DefaultCatalogCache) CreateCategory(ctx context.Context, input *catalogdto.CreateCategoryInput) (*domain.Category, error) {
	if input.StoreID == "" {
		return nil, fmt.Errorf("store id is required")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	category := &domain.Category{
		ID:          uuid.New().String(),
		StoreID:     input.StoreID,
		Name:        input.Name,
		Description: input.Description,
	}

	if err := c.writeJSON(ctx, domain.CategoryKey(category.StoreID, category.ID), category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	c.Invalidate(category.StoreID)
	c.notify(domain.ChangeTypeCategory, category.StoreID)
	return category, nil
}

func (c *DefaultCatalogCache) DeleteCategory(ctx context.Context, storeID, categoryID string) error {
	if storeID == "" || categoryID == "" {
		return fmt.Errorf("store id and category id are required")
	}
	if err := c.store.Remove(ctx, domain.CategoryKey(storeID, categoryID)); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	c.Invalidate(storeID)
	c.notify(domain.ChangeTypeCategory, storeID)
	return nil
}

func (c *DefaultCatalogCache) storeByID(ctx context.Context, storeID string) (*domain.StoreRecord, error) {
	if storeID == "" {
		return nil, fmt.Errorf("store id is required")
	}
	raw, err := c.store.Get(ctx, domain.StoreKey(storeID))
	if err != nil {
		return nil, fmt.Errorf("failed to read store record: %w", err)
	}
	if raw == nil {
		return nil, domain.ErrStoreNotFound
	}
	var store domain.StoreRecord
	if err := json.Unmarshal(raw, &store); err != nil {
		return nil, fmt.Errorf("malformed store record: %w", err)
	}
	return &store, nil
}

func (c *DefaultCatalogCache) writeStore(ctx context.Context, store *domain.StoreRecord) error {
	if err := c.writeJSON(ctx, domain.StoreKey(store.ID), store); err != nil {
		return err
	}
	c.mu.Lock()
	c.index[store.ID] = store
	if s, ok := c.slices[store.ID]; ok {
		s.stale = true
	}
	c.mu.Unlock()
	return nil
}

func (c *DefaultCatalogCache) writeJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, raw)
}

func (c *DefaultCatalogCache) notify(changeType domain.ChangeType, storeID string) {
	c.mu.RLock()
	n := c.notifier
	c.mu.RUnlock()
	if n == nil {
		return
	}
	err := n.Publish(domain.ChangeNotification{
		Type:            changeType,
		StoreID:         storeID,
		OriginContextID: c.contextID,
		Timestamp:       c.clock.Now(),
	})
	if err != nil {
		c.logger.Warn("failed to publish change notification",
			"type", changeType, "store_id", storeID, "error", err)
	}
}

func (c *DefaultCatalogCache) recordCacheRead(view CatalogView, result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheRead(string(view), result)
	}
}

func (c *DefaultCatalogCache) recordKeyError(storeID, kind string) {
	if c.metrics != nil {
		c.metrics.RecordHydrationKeyError(storeID, kind)
	}
}

// filterSnapshot applies the view's status filter without touching the
// cached snapshot itself.
func filterSnapshot(s *CatalogSnapshot, view CatalogView) *CatalogSnapshot {
	if view != CustomerView {
		return &CatalogSnapshot{
			Store:      s.Store,
			Products:   append([]*domain.Product(nil), s.Products...),
			Categories: append([]*domain.Category(nil), s.Categories...),
		}
	}

	products := make([]*domain.Product, 0, len(s.Products))
	for _, p := range s.Products {
		if p.IsActive() {
			products = append(products, p)
		}
	}
	return &CatalogSnapshot{
		Store:      s.Store,
		Products:   products,
		Categories: append([]*domain.Category(nil), s.Categories...),
	}
}
