package domain

// TrendPoint is the total units sold across all brands on one date.
type TrendPoint struct {
	Date  string  `json:"date"`
	Units float64 `json:"units"`
}

// RankedBrand is one entry of the sales ranking.
type RankedBrand struct {
	Rank             int     `json:"rank"`
	Index            int64   `json:"index"`
	Name             string  `json:"brand_name"`
	MonthlySaleValue float64 `json:"monthly_sale_value"`
	StockValueToday  float64 `json:"stock_value_today"`
	StockRatio       Ratio   `json:"stock_ratio"`
}

// AnalyticsSummary is derived per request and never persisted.
type AnalyticsSummary struct {
	TotalBrands           int           `json:"total_brands"`
	TotalStockValue       float64       `json:"total_stock_value"`
	OverstockedBrands     int           `json:"overstocked_brands"`
	TotalOverstockedValue float64       `json:"total_overstocked_value"`
	Multiplier            float64       `json:"overstock_multiplier"`
	Trend                 []TrendPoint  `json:"sales_trends"`
	Ranking               []RankedBrand `json:"top_selling_brands"`
}

// OverstockFinding is produced for each brand whose stock value exceeds
// monthly_avg_sale * multiplier.
type OverstockFinding struct {
	Index             int64   `json:"index"`
	BrandName         string  `json:"brand_name"`
	CurrentStockValue float64 `json:"current_stock_value"`
	MonthlyAvgSale    float64 `json:"monthly_avg_sale"`
	Threshold         float64 `json:"threshold"`
	StockRatio        Ratio   `json:"stock_ratio"`
	OverstockValue    float64 `json:"overstock_value"`
}

// Urgency buckets days of stock into reorder priority.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

// Rank orders urgencies HIGH first.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	default:
		return 2
	}
}

// DemandRecommendation is a reorder suggestion for one brand.
type DemandRecommendation struct {
	Index                int64   `json:"index"`
	BrandName            string  `json:"brand_name"`
	Rate                 float64 `json:"rate"`
	WholesaleRate        float64 `json:"wholesale_rate"`
	QuantityCurrentStock float64 `json:"quantity_current_stock"`
	MonthlySalesQuantity float64 `json:"monthly_sales_quantity"`
	AvgDailySales        float64 `json:"avg_daily_sales"`
	DaysOfStock          Ratio   `json:"days_of_stock"`
	QuantityToBeDemanded float64 `json:"quantity_to_be_demanded"`
	Urgency              Urgency `json:"urgency_level"`
}

// ReviewFlag marks a brand whose demand could not be derived.
type ReviewFlag struct {
	Index     int64  `json:"index"`
	BrandName string `json:"brand_name"`
	Reason    string `json:"reason"`
}

// DemandPlan is the output of the demand engine.
type DemandPlan struct {
	TargetStockDays int                    `json:"target_stock_days"`
	Recommendations []DemandRecommendation `json:"recommendations"`
	Review          []ReviewFlag           `json:"needs_review"`
}

// BrandDetail exposes the per-brand intermediate figures for verification.
type BrandDetail struct {
	Index                int64    `json:"index"`
	BrandName            string   `json:"brand_name"`
	Rate                 float64  `json:"rate"`
	WholesaleRate        float64  `json:"wholesale_rate"`
	QuantityCurrentStock float64  `json:"quantity_current_stock"`
	MonthlySaleValue     float64  `json:"monthly_sale_value"`
	StockValueToday      float64  `json:"stock_value_today"`
	StockRatio           Ratio    `json:"stock_ratio"`
	MonthlySalesQuantity *float64 `json:"monthly_sales_quantity"`
	AvgDailySales        *float64 `json:"avg_daily_sales"`
	DaysOfStock          *Ratio   `json:"days_of_stock"`
	DaysAnalyzed         int      `json:"days_analyzed"`
}

// VolumeLeader ranks a brand by units on hand.
type VolumeLeader struct {
	Index           int64   `json:"index"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"value"`
	StockValueToday float64 `json:"stock_value"`
}

// VelocityLeader ranks a brand by how fast its stock turns over.
// Velocity is 30 / days of stock.
type VelocityLeader struct {
	Index            int64   `json:"index"`
	Name             string  `json:"name"`
	Velocity         float64 `json:"velocity"`
	DaysOfStock      float64 `json:"days_of_stock"`
	MonthlySaleValue float64 `json:"sales_value"`
}

type RevenueLeader struct {
	Index            int64   `json:"index"`
	Name             string  `json:"name"`
	MonthlySaleValue float64 `json:"value"`
	StockValueToday  float64 `json:"stock_value"`
	StockRatio       Ratio   `json:"stock_ratio"`
}

// RevenueShare is a revenue leader's percentage of total monthly sales.
type RevenueShare struct {
	Index            int64   `json:"index"`
	Name             string  `json:"name"`
	MonthlySaleValue float64 `json:"value"`
	Percentage       float64 `json:"percentage"`
	StockValueToday  float64 `json:"stock_value"`
}

// Charts holds the dashboard chart series.
type Charts struct {
	VolumeLeaders   []VolumeLeader   `json:"volume_leaders"`
	VelocityLeaders []VelocityLeader `json:"velocity_leaders"`
	RevenueLeaders  []RevenueLeader  `json:"revenue_leaders"`
	RevenueShare    []RevenueShare   `json:"revenue_proportion"`
}
