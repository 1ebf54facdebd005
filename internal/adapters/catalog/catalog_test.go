package catalog

import (
	"testing"

	"fitcoin-engine/internal/domain"
)

func TestLookupKnownProviders(t *testing.T) {
	c := NewStatic()
	for _, provider := range domain.Providers {
		set := c.Lookup(provider)
		if len(set) == 0 {
			t.Fatalf("ожидали непустой набор метрик для %s", provider)
		}
		for key, def := range set {
			if def.Key != key {
				t.Fatalf("ключ метрики %s не совпадает с определением %s", key, def.Key)
			}
			if def.ValuePerFitcoin <= 0 {
				t.Fatalf("курс метрики %s/%s должен быть положительным", provider, key)
			}
			if def.Unit == "" {
				t.Fatalf("у метрики %s/%s нет единицы измерения", provider, key)
			}
		}
	}
}

func TestLookupUnknownProviderFallsBack(t *testing.T) {
	c := NewStatic()
	got := c.Lookup(domain.Provider("garmin"))
	want := c.Lookup(domain.ProviderWearables)
	if len(got) != len(want) {
		t.Fatalf("ожидали набор по умолчанию, получили %d метрик вместо %d", len(got), len(want))
	}
	for key := range want {
		if _, ok := got[key]; !ok {
			t.Fatalf("в наборе по умолчанию нет метрики %s", key)
		}
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	c := NewStatic()
	set := c.Lookup(domain.ProviderStrava)
	delete(set, "run_distance")
	if _, ok := c.Lookup(domain.ProviderStrava)["run_distance"]; !ok {
		t.Fatalf("каталог не должен мутироваться через результат Lookup")
	}
}
