package syncer

import (
	"sort"
	"strings"

	"github.com/psds-microservice/repair-desk/internal/model"
)

// Category — поле квитанции, для которого предлагаются ранее введённые значения.
type Category string

const (
	CategoryDeviceType   Category = "device_type"
	CategoryManufacturer Category = "manufacturer"
	CategoryAccessories  Category = "accessories"
)

var Categories = []Category{CategoryDeviceType, CategoryManufacturer, CategoryAccessories}

// DefaultSuggestions — стартовые списки выпадающих полей.
var DefaultSuggestions = map[Category][]string{
	CategoryDeviceType:   {"Смартфон", "Планшет", "Ноутбук", "ПК", "Другое"},
	CategoryManufacturer: {"Apple", "Samsung", "Xiaomi", "HP", "Dell", "Другое"},
	CategoryAccessories:  {"Коробка", "Наушники", "Блок питания", "Другое"},
}

// Suggestions is a non-authoritative cache of distinct free-text values per
// category. It is never persisted. Not safe for concurrent use.
type Suggestions struct {
	sets map[Category]map[string]struct{}
}

func NewSuggestions() *Suggestions {
	s := &Suggestions{}
	s.Reset()
	return s
}

// Reset drops everything learned and restores the defaults.
func (s *Suggestions) Reset() {
	s.sets = make(map[Category]map[string]struct{}, len(Categories))
	for _, c := range Categories {
		set := make(map[string]struct{})
		for _, v := range DefaultSuggestions[c] {
			set[v] = struct{}{}
		}
		s.sets[c] = set
	}
}

func (s *Suggestions) Add(c Category, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	set, ok := s.sets[c]
	if !ok {
		return
	}
	set[v] = struct{}{}
}

func (s *Suggestions) AddFields(f model.RepairFields) {
	s.Add(CategoryDeviceType, f.DeviceType)
	s.Add(CategoryManufacturer, f.Manufacturer)
	s.Add(CategoryAccessories, f.Accessories)
}

// Values returns the sorted distinct values of c.
func (s *Suggestions) Values(c Category) []string {
	out := make([]string, 0, len(s.sets[c]))
	for v := range s.sets[c] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Complete returns the values of c starting with prefix, case-insensitively.
func (s *Suggestions) Complete(c Category, prefix string) []string {
	p := strings.ToLower(strings.TrimSpace(prefix))
	var out []string
	for _, v := range s.Values(c) {
		if strings.HasPrefix(strings.ToLower(v), p) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Suggestions) Clone() *Suggestions {
	c := &Suggestions{sets: make(map[Category]map[string]struct{}, len(s.sets))}
	for cat, set := range s.sets {
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		c.sets[cat] = cp
	}
	return c
}

// suggestionsFrom rebuilds the cache from a full List response.
func suggestionsFrom(repairs []model.Repair) *Suggestions {
	s := NewSuggestions()
	for _, r := range repairs {
		s.AddFields(r.Fields())
	}
	return s
}
