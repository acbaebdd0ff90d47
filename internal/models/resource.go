package models

// Resource identifies one of the collections polled from the backend.
type Resource string

const (
	ResourceCases       Resource = "cases"
	ResourceTips        Resource = "tips"
	ResourceUsers       Resource = "users"
	ResourceRewards     Resource = "rewards"
	ResourceRedemptions Resource = "redemptions"
	ResourceReports     Resource = "reports"
)

// Resources lists every polled collection in fetch order.
var Resources = []Resource{
	ResourceCases,
	ResourceTips,
	ResourceUsers,
	ResourceRewards,
	ResourceRedemptions,
	ResourceReports,
}

// Keyed is implemented by every entity held in a collection.
type Keyed interface {
	Key() int64
}
