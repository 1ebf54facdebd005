package domain

// MarketplaceItem — награда, доступная к обмену на Fitcoin.
type MarketplaceItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

var marketplaceItems = []MarketplaceItem{
	{ID: "m4", Name: "Healthy Smoothie Voucher", Category: "Nutrition Partner", Cost: 5, Description: "Redeem for one free smoothie at HealthyBites Cafe.", Icon: "GlassWater"},
	{ID: "m5", Name: "Online Yoga Class", Category: "Wellness App", Cost: 10, Description: "Access a premium online yoga session from ZenFlow.", Icon: "Flower"},
	{ID: "m6", Name: "Meditation App Trial", Category: "Wellness App", Cost: 10, Description: "Unlock a 1-month premium trial for the CalmMind app.", Icon: "Sparkles"},
	{ID: "m7", Name: "Protein Bar Pack", Category: "Snack Company", Cost: 20, Description: "Get a variety pack of 5 protein bars shipped to you.", Icon: "Cookie"},
	{ID: "m8", Name: "1-Week Gym Pass", Category: "Fitness Center", Cost: 30, Description: "Get a free 7-day pass to any partner gym.", Icon: "Dumbbell"},
	{ID: "m3", Name: "Personalized Meal Plan", Category: "Health Provider", Cost: 800, Description: "Get a 4-week custom nutrition plan.", Icon: "Apple"},
	{ID: "m1", Name: "Insurance Premium Waiver", Category: "Insurance Company", Cost: 1500, Description: "Waive one month of your yearly premium.", Icon: "Shield"},
	{ID: "m2", Name: "50% Wearable Discount", Category: "Wearable Company", Cost: 5000, Description: "Claim 50% off the latest smart device.", Icon: "Watch"},
}

// MarketplaceItems возвращает каталог наград в порядке возрастания стоимости.
func MarketplaceItems() []MarketplaceItem {
	items := make([]MarketplaceItem, len(marketplaceItems))
	copy(items, marketplaceItems)
	return items
}

// MarketplaceItemByID возвращает награду по идентификатору.
func MarketplaceItemByID(id string) (MarketplaceItem, bool) {
	for _, item := range marketplaceItems {
		if item.ID == id {
			return item, true
		}
	}
	return MarketplaceItem{}, false
}
