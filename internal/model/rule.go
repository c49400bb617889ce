package model

import "time"

// MerchantRule maps a merchant pattern to a category. Rules are evaluated in
// ascending priority order and the first match wins. They are read-only input
// to the pipeline; mutation happens through a separate administrative surface.
type MerchantRule struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CategoryID    *int64
	SubcategoryID *int64
	Owner         string
	Pattern       string
	ID            int64
	Priority      int
	IsRegex       bool
	IsActive      bool
}
