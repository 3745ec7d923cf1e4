package subscriptions

import (
	"errors"
	"strconv"
	"strings"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/env"
)

// ErrInvalidProductID means the vendor product id maps to no known plan.
var ErrInvalidProductID = errors.New("invalid product id")

// Catalog maps LemonSqueezy product ids onto plan tiers. The lists come from
// the environment so new store products need no deploy.
type Catalog struct {
	tiers map[int64]int
}

// NewCatalogFromEnv builds the product catalog from the LEMON_*_PRODUCT_IDS
// environment variables, falling back to the store's current product ids.
func NewCatalogFromEnv() *Catalog {
	c := &Catalog{tiers: make(map[int64]int)}
	c.addList(env.GetEnv("LEMON_ENTERPRISE_PRODUCT_IDS", "363041,363064"), models.PlanTierT4)
	c.addList(env.GetEnv("LEMON_AGENCY_PRODUCT_IDS", "363063,321751"), models.PlanTierT3)
	c.addList(env.GetEnv("LEMON_TEAM_PRODUCT_IDS", "363062,363040"), models.PlanTierT2)
	c.addList(env.GetEnv("LEMON_INDIVIDUAL_PRODUCT_IDS", "328561,285937"), models.PlanTierT1)
	return c
}

// NewCatalog builds a catalog from explicit per-tier product id lists.
// Used by tests.
func NewCatalog(enterprise, agency, team, individual []int64) *Catalog {
	c := &Catalog{tiers: make(map[int64]int)}
	for _, id := range enterprise {
		c.tiers[id] = models.PlanTierT4
	}
	for _, id := range agency {
		c.tiers[id] = models.PlanTierT3
	}
	for _, id := range team {
		c.tiers[id] = models.PlanTierT2
	}
	for _, id := range individual {
		c.tiers[id] = models.PlanTierT1
	}
	return c
}

func (c *Catalog) addList(raw string, tier int) {
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		c.tiers[id] = tier
	}
}

// TierForProduct resolves a vendor product id to its plan tier.
func (c *Catalog) TierForProduct(productID int64) (int, error) {
	tier, ok := c.tiers[productID]
	if !ok {
		return 0, ErrInvalidProductID
	}
	return tier, nil
}

// Contains reports whether the product id is known to the catalog.
func (c *Catalog) Contains(productID int64) bool {
	_, ok := c.tiers[productID]
	return ok
}
