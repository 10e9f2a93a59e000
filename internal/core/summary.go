package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
	// Share is the percentage of the grand total, 0-100.
	Share float64
}

// MonthAmount is the total spent in one YYYY-MM month.
type MonthAmount struct {
	Month  string
	Amount Money
}
