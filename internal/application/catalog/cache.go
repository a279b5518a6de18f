package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

// Cache key layout
const (
	KeyPrefixList     = "products:list:"
	KeyPrefixFeatured = "products:featured:"
	KeyCategories     = "products:categories"
)

// Cache names reported to the lookup recorder
const (
	CacheList       = "product_list"
	CacheFeatured   = "featured"
	CacheCategories = "categories"
)

// ResponseCache stores JSON read models. Implemented by the Redis and
// in-memory caches in infrastructure/cache.
type ResponseCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheGeneration counts catalog invalidations. A load that began in an older
// generation must not leave its result in the cache.
type CacheGeneration struct {
	n atomic.Uint64
}

func (g *CacheGeneration) Current() uint64 { return g.n.Load() }

func (g *CacheGeneration) Advance() { g.n.Add(1) }

// LookupRecorder counts cache hits and misses
type LookupRecorder interface {
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordCacheLookup(context.Context, string, bool) {}

// CacheTTLs are the lifetimes of each cached read model
type CacheTTLs struct {
	List       time.Duration
	Featured   time.Duration
	Categories time.Duration
}

// DefaultCacheTTLs returns 5 minutes for listings, 10 for featured and an hour
// for the category aggregation.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		List:       300 * time.Second,
		Featured:   600 * time.Second,
		Categories: time.Hour,
	}
}

// canonicalQuery fixes the field order of the hashed form
type canonicalQuery struct {
	Category  string `json:"c"`
	Search    string `json:"q"`
	MinPrice  string `json:"min"`
	MaxPrice  string `json:"max"`
	SortBy    string `json:"s"`
	SortOrder string `json:"o"`
	Page      int    `json:"p"`
	Limit     int    `json:"l"`
	Featured  string `json:"f"`
	VendorID  string `json:"v"`
}

// ListCacheKey hashes a normalized query into products:list:<sha256>
func ListCacheKey(q ListProductsQuery) string {
	c := canonicalQuery{
		Category:  q.Category,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		Limit:     q.Limit,
	}
	if q.MinPrice != nil {
		c.MinPrice = q.MinPrice.String()
	}
	if q.MaxPrice != nil {
		c.MaxPrice = q.MaxPrice.String()
	}
	if q.Featured != nil {
		c.Featured = strconv.FormatBool(*q.Featured)
	}
	if q.VendorID != nil {
		c.VendorID = q.VendorID.String()
	}

	// Marshalling a struct of strings and ints cannot fail
	raw, _ := json.Marshal(c)
	sum := sha256.Sum256(raw)
	return KeyPrefixList + hex.EncodeToString(sum[:])
}

// FeaturedCacheKey returns products:featured:<limit>
func FeaturedCacheKey(limit int) string {
	return KeyPrefixFeatured + strconv.Itoa(limit)
}
