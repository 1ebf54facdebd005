package sync

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"fitcoin-engine/internal/domain"
)

// Количество активностей за одну синхронизацию.
const (
	minActivities = 1
	maxActivities = 4
)

// Generator порождает правдоподобный набор активностей по метрикам провайдера.
// Случайная генерация замещает реальный пайплайн выгрузки данных провайдера;
// конвертация метрики в Fitcoin при этом считается по боевым курсам каталога.
type Generator struct {
	catalog domain.MetricCatalog
	mu      gosync.Mutex
	rnd     *rand.Rand
}

// NewGenerator создаёт генератор. rnd == nil означает источник со случайным зерном.
func NewGenerator(catalog domain.MetricCatalog, rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{catalog: catalog, rnd: rnd}
}

// Generate возвращает от 1 до 4 активностей по случайному подмножеству метрик
// провайдера. Результат никогда не пуст, fitcoin каждой активности неотрицателен.
func (g *Generator) Generate(provider domain.Provider) []domain.Activity {
	g.mu.Lock()
	defer g.mu.Unlock()

	metricSet := g.catalog.Lookup(provider)
	keys := make([]string, 0, len(metricSet))
	for key := range metricSet {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	g.rnd.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	count := minActivities + g.rnd.Intn(maxActivities-minActivities+1)
	if count > len(keys) {
		count = len(keys)
	}

	activities := make([]domain.Activity, 0, count)
	for _, key := range keys[:count] {
		def := metricSet[key]
		value := g.drawValue(def.Unit)
		activities = append(activities, domain.Activity{
			Title:   humanizeKey(key),
			Fitcoin: round2(value / def.ValuePerFitcoin),
			Metric:  formatValue(value) + " " + def.Unit,
			Icon:    iconForKey(key),
		})
	}
	return activities
}

// drawValue тянет сырое значение из распределения, зависящего от класса единицы:
// шаги — тысячи, минуты — десятки, километры и часы — с одним десятичным знаком,
// калории — сотни, остальное — небольшие целые.
func (g *Generator) drawValue(unit string) float64 {
	switch {
	case strings.Contains(unit, "steps"):
		return float64(1000 + g.rnd.Intn(8000))
	case strings.Contains(unit, "minutes"):
		return float64(10 + g.rnd.Intn(50))
	case strings.Contains(unit, "kilometers"):
		return round1(1 + g.rnd.Float64()*9)
	case strings.Contains(unit, "hours"):
		return round1(6 + g.rnd.Float64()*3)
	case strings.Contains(unit, "kcal"):
		return float64(50 + g.rnd.Intn(400))
	default:
		return float64(10 + g.rnd.Intn(90))
	}
}

// humanizeKey превращает ключ метрики в заголовок активности:
// "run_distance" -> "Run Distance".
func humanizeKey(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// iconForKey подбирает иконку по ключевым словам метрики.
func iconForKey(key string) string {
	switch {
	case strings.Contains(key, "run"), strings.Contains(key, "steps"), strings.Contains(key, "walk"):
		return "Footprints"
	case strings.Contains(key, "cycle"), strings.Contains(key, "bike"):
		return "Bike"
	case strings.Contains(key, "sleep"):
		return "Moon"
	default:
		return "Zap"
	}
}

// formatValue печатает значение метрики: целые — с разделителями тысяч,
// дробные — с одним знаком после запятой.
func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return groupThousands(strconv.FormatInt(int64(v), 10))
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
