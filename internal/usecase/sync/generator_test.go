package sync

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"fitcoin-engine/internal/domain"
)

type stubCatalog struct {
	metrics map[string]domain.MetricDefinition
}

func (c *stubCatalog) Lookup(_ domain.Provider) map[string]domain.MetricDefinition {
	return c.metrics
}

func testCatalog() *stubCatalog {
	return &stubCatalog{metrics: map[string]domain.MetricDefinition{
		"steps":          {Key: "steps", Unit: "steps", ValuePerFitcoin: 1000},
		"run_distance":   {Key: "run_distance", Unit: "kilometers", ValuePerFitcoin: 2},
		"active_minutes": {Key: "active_minutes", Unit: "minutes", ValuePerFitcoin: 15},
		"sleep_duration": {Key: "sleep_duration", Unit: "hours", ValuePerFitcoin: 4},
		"calories":       {Key: "calories", Unit: "kcal", ValuePerFitcoin: 100},
	}}
}

func TestGenerateCountAndConversion(t *testing.T) {
	catalog := testCatalog()
	gen := NewGenerator(catalog, rand.New(rand.NewSource(7)))

	for i := 0; i < 200; i++ {
		activities := gen.Generate(domain.ProviderWearables)
		if len(activities) < 1 || len(activities) > 4 {
			t.Fatalf("ожидали от 1 до 4 активностей, получили %d", len(activities))
		}
		for _, act := range activities {
			if act.Fitcoin < 0 {
				t.Fatalf("fitcoin не может быть отрицательным: %+v", act)
			}
			if act.Title == "" || act.Icon == "" {
				t.Fatalf("активность без заголовка или иконки: %+v", act)
			}
			assertConversion(t, catalog.metrics, act)
		}
	}
}

// assertConversion восстанавливает сырое значение из строки метрики и проверяет,
// что fitcoin равен значению, делённому на курс, с округлением до сотых.
func assertConversion(t *testing.T, metrics map[string]domain.MetricDefinition, act domain.Activity) {
	t.Helper()
	fields := strings.SplitN(act.Metric, " ", 2)
	if len(fields) != 2 {
		t.Fatalf("некорректная строка метрики: %q", act.Metric)
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		t.Fatalf("не удалось разобрать значение %q: %v", fields[0], err)
	}
	var def domain.MetricDefinition
	found := false
	for _, d := range metrics {
		if d.Unit == fields[1] && humanizeKey(d.Key) == act.Title {
			def, found = d, true
			break
		}
	}
	if !found {
		t.Fatalf("активность не соответствует ни одной метрике каталога: %+v", act)
	}
	want := math.Round(value/def.ValuePerFitcoin*100) / 100
	if act.Fitcoin != want {
		t.Fatalf("ожидали fitcoin %v для %q, получили %v", want, act.Metric, act.Fitcoin)
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	first := NewGenerator(testCatalog(), rand.New(rand.NewSource(42))).Generate(domain.ProviderStrava)
	second := NewGenerator(testCatalog(), rand.New(rand.NewSource(42))).Generate(domain.ProviderStrava)

	if len(first) != len(second) {
		t.Fatalf("одинаковое зерно должно давать одинаковый набор: %d != %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("расхождение на позиции %d: %+v != %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateCappedByCatalogSize(t *testing.T) {
	small := &stubCatalog{metrics: map[string]domain.MetricDefinition{
		"steps": {Key: "steps", Unit: "steps", ValuePerFitcoin: 1000},
	}}
	gen := NewGenerator(small, rand.New(rand.NewSource(3)))

	for i := 0; i < 50; i++ {
		activities := gen.Generate(domain.ProviderWearables)
		if len(activities) != 1 {
			t.Fatalf("каталог из одной метрики даёт одну активность, получили %d", len(activities))
		}
	}
}

func TestHumanizeKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"run_distance", "Run Distance"},
		{"steps", "Steps"},
		{"sleep_duration", "Sleep Duration"},
		{"kcal_active", "Kcal Active"},
	}
	for _, tc := range cases {
		if got := humanizeKey(tc.key); got != tc.want {
			t.Fatalf("humanizeKey(%q) = %q, ожидали %q", tc.key, got, tc.want)
		}
	}
}

func TestIconForKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"run_distance", "Footprints"},
		{"steps", "Footprints"},
		{"walk_minutes", "Footprints"},
		{"cycle_distance", "Bike"},
		{"sleep_duration", "Moon"},
		{"calories", "Zap"},
	}
	for _, tc := range cases {
		if got := iconForKey(tc.key); got != tc.want {
			t.Fatalf("iconForKey(%q) = %q, ожидали %q", tc.key, got, tc.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{512, "512"},
		{8432, "8,432"},
		{1234567, "1,234,567"},
		{7.5, "7.5"},
		{6.0, "6"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.value); got != tc.want {
			t.Fatalf("formatValue(%v) = %q, ожидали %q", tc.value, got, tc.want)
		}
	}
}
