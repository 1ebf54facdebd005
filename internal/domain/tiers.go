package domain

// SavingsTier описывает уровень накоплений и его ставку.
type SavingsTier struct {
	Name     string  `json:"name"`
	MinStake float64 `json:"minStake"`
	APY      float64 `json:"apy"`
}

var savingsTiers = []SavingsTier{
	{Name: "Bronze", MinStake: 0, APY: 5},
	{Name: "Silver", MinStake: 1000, APY: 8},
	{Name: "Gold", MinStake: 5000, APY: 12},
}

// SavingsTiers возвращает уровни накоплений по возрастанию порога.
func SavingsTiers() []SavingsTier {
	tiers := make([]SavingsTier, len(savingsTiers))
	copy(tiers, savingsTiers)
	return tiers
}

// TierFor возвращает уровень, соответствующий застейканной сумме.
func TierFor(stakedAmount float64) SavingsTier {
	current := savingsTiers[0]
	for _, tier := range savingsTiers {
		if stakedAmount >= tier.MinStake {
			current = tier
		}
	}
	return current
}
