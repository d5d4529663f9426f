package model

// KPIValue is a single extracted market indicator. Value and Detail are
// nullable: extraction never invents data the sources do not support.
type KPIValue struct {
	Label     string  `json:"label"`
	Value     *string `json:"value"`
	Direction string  `json:"direction,omitempty"` // up, down, flat, unknown
	Detail    *string `json:"detail,omitempty"`
}

// KPIFieldCount is the number of slots in the MarketKPIs schema.
const KPIFieldCount = 8

// MarketKPIs is the fixed market-indicator schema. Every slot is optional;
// a nil slot means the sources did not cover it.
type MarketKPIs struct {
	MedianPrice     *KPIValue `json:"median_price,omitempty"`
	PricePerSqft    *KPIValue `json:"price_per_sqft,omitempty"`
	ActiveListings  *KPIValue `json:"active_listings,omitempty"`
	DaysOnMarket    *KPIValue `json:"days_on_market,omitempty"`
	SaleToListRatio *KPIValue `json:"sale_to_list_ratio,omitempty"`
	InventoryChange *KPIValue `json:"inventory_change,omitempty"`
	YoYPriceChange  *KPIValue `json:"yoy_price_change,omitempty"`
	MedianRent      *KPIValue `json:"median_rent,omitempty"`
}

// Populated returns how many KPI slots carry a value.
func (k *MarketKPIs) Populated() int {
	if k == nil {
		return 0
	}
	n := 0
	for _, v := range []*KPIValue{
		k.MedianPrice, k.PricePerSqft, k.ActiveListings, k.DaysOnMarket,
		k.SaleToListRatio, k.InventoryChange, k.YoYPriceChange, k.MedianRent,
	} {
		if v != nil && v.Value != nil {
			n++
		}
	}
	return n
}

// Empty reports whether no KPI slot is populated.
func (k *MarketKPIs) Empty() bool {
	return k.Populated() == 0
}

// TrendMetric is one time-series comparison extracted from sources. Both
// Current and Previous must be present for the metric to be included.
type TrendMetric struct {
	Label     string   `json:"label"`
	Current   float64  `json:"current"`
	Previous  float64  `json:"previous"`
	Unit      string   `json:"unit,omitempty"`
	ChangePct *float64 `json:"change_pct,omitempty"`
}

// CompListing is one comparable property mention. A listing is kept only
// when it has at least a price or an address.
type CompListing struct {
	Address   *string `json:"address,omitempty"`
	Price     *string `json:"price,omitempty"`
	Sqft      *string `json:"sqft,omitempty"`
	Beds      *string `json:"beds,omitempty"`
	Baths     *string `json:"baths,omitempty"`
	Status    *string `json:"status,omitempty"`
	SourceURL string  `json:"source_url,omitempty"`
}

// Usable reports whether the listing carries enough identity to show.
func (c CompListing) Usable() bool {
	return (c.Price != nil && *c.Price != "") || (c.Address != nil && *c.Address != "")
}
