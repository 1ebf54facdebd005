package catalog

import "fitcoin-engine/internal/domain"

// Static реализует domain.MetricCatalog на статических таблицах конвертации.
// Таблицы неизменяемы и загружаются один раз при создании каталога.
type Static struct {
	metrics  map[domain.Provider]map[string]domain.MetricDefinition
	fallback domain.Provider
}

var _ domain.MetricCatalog = (*Static)(nil)

// NewStatic создаёт каталог метрик.
func NewStatic() *Static {
	return &Static{metrics: providerMetrics, fallback: domain.ProviderWearables}
}

// Lookup возвращает метрики провайдера. Неизвестный провайдер получает
// набор generic-метрик: отсутствие в каталоге не является ошибкой.
func (c *Static) Lookup(provider domain.Provider) map[string]domain.MetricDefinition {
	set, ok := c.metrics[provider]
	if !ok {
		set = c.metrics[c.fallback]
	}
	out := make(map[string]domain.MetricDefinition, len(set))
	for key, def := range set {
		out[key] = def
	}
	return out
}

func metricSet(defs ...domain.MetricDefinition) map[string]domain.MetricDefinition {
	set := make(map[string]domain.MetricDefinition, len(defs))
	for _, def := range defs {
		set[def.Key] = def
	}
	return set
}

// Курсы конвертации: fitcoin = value / ValuePerFitcoin.
var providerMetrics = map[domain.Provider]map[string]domain.MetricDefinition{
	domain.ProviderStrava: metricSet(
		domain.MetricDefinition{Key: "run_distance", Unit: "kilometers", ValuePerFitcoin: 2},
		domain.MetricDefinition{Key: "cycle_distance", Unit: "kilometers", ValuePerFitcoin: 4},
		domain.MetricDefinition{Key: "moving_time", Unit: "minutes", ValuePerFitcoin: 15},
		domain.MetricDefinition{Key: "elevation_gain", Unit: "meters", ValuePerFitcoin: 100},
		domain.MetricDefinition{Key: "active_calories", Unit: "kcal", ValuePerFitcoin: 100},
		domain.MetricDefinition{Key: "heart_rate_zone_time", Unit: "minutes_in_zone_3_plus", ValuePerFitcoin: 10},
	),
	domain.ProviderSamsungHealth: metricSet(
		domain.MetricDefinition{Key: "steps", Unit: "steps", ValuePerFitcoin: 1000},
		domain.MetricDefinition{Key: "active_time", Unit: "minutes", ValuePerFitcoin: 20},
		domain.MetricDefinition{Key: "active_calories", Unit: "kcal", ValuePerFitcoin: 150},
		domain.MetricDefinition{Key: "floors_climbed", Unit: "floors", ValuePerFitcoin: 10},
		domain.MetricDefinition{Key: "sleep_hours", Unit: "hours", ValuePerFitcoin: 7},
		domain.MetricDefinition{Key: "sleep_score", Unit: "score_points", ValuePerFitcoin: 10},
		domain.MetricDefinition{Key: "water_intake", Unit: "ml", ValuePerFitcoin: 500},
	),
	domain.ProviderGoogleFit: metricSet(
		domain.MetricDefinition{Key: "move_minutes", Unit: "minutes", ValuePerFitcoin: 20},
		domain.MetricDefinition{Key: "heart_points", Unit: "points", ValuePerFitcoin: 10},
	),
	domain.ProviderFitbit: metricSet(
		domain.MetricDefinition{Key: "steps", Unit: "steps", ValuePerFitcoin: 1000},
		domain.MetricDefinition{Key: "run_distance", Unit: "kilometers", ValuePerFitcoin: 2},
		domain.MetricDefinition{Key: "cycle_distance", Unit: "kilometers", ValuePerFitcoin: 4},
		domain.MetricDefinition{Key: "active_minutes", Unit: "minutes", ValuePerFitcoin: 20},
		domain.MetricDefinition{Key: "floors_climbed", Unit: "floors", ValuePerFitcoin: 10},
		domain.MetricDefinition{Key: "active_calories", Unit: "kcal", ValuePerFitcoin: 150},
		domain.MetricDefinition{Key: "sleep_hours", Unit: "hours", ValuePerFitcoin: 7},
	),
	domain.ProviderAppleHealth: metricSet(
		domain.MetricDefinition{Key: "exercise_minutes", Unit: "minutes", ValuePerFitcoin: 30},
		domain.MetricDefinition{Key: "active_kcal", Unit: "kcal", ValuePerFitcoin: 200},
		domain.MetricDefinition{Key: "stand_hours", Unit: "hours", ValuePerFitcoin: 2},
	),
	domain.ProviderWearables: metricSet(
		domain.MetricDefinition{Key: "active_zone_minutes", Unit: "minutes", ValuePerFitcoin: 10},
		domain.MetricDefinition{Key: "swim_distance", Unit: "meters", ValuePerFitcoin: 500},
		domain.MetricDefinition{Key: "mindfulness_minutes", Unit: "minutes", ValuePerFitcoin: 10},
		domain.MetricDefinition{Key: "resting_heart_rate_improvement", Unit: "percent_improvement", ValuePerFitcoin: 5},
	),
}
