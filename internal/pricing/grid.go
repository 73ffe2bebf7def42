package pricing

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Profile holds the market rate bands for one (category, sub-category) pair.
// Profiles are immutable reference data loaded once at startup.
type Profile struct {
	HourlyMin        float64 `json:"hourly_min"`
	HourlyMed        float64 `json:"hourly_med"`
	HourlyMax        float64 `json:"hourly_max"`
	DailyMin         float64 `json:"daily_min"`
	DailyMed         float64 `json:"daily_med"`
	DailyMax         float64 `json:"daily_max"`
	ComplexityFactor float64 `json:"complexity_factor"`
	AvgDays          int     `json:"avg_days"`
}

// categorySet keeps sub-category insertion order so "first available
// sub-category" fallback is deterministic.
type categorySet struct {
	order []string
	subs  map[string]Profile
}

// Grid is an immutable pricing table keyed by canonical category and
// sub-category. Concurrent readers need no locking; reloads swap the whole
// grid atomically through Store.
type Grid struct {
	categories map[string]*categorySet
}

// categoryAliases maps free-form request categories to canonical grid keys.
// Unknown categories resolve to développement, the broadest segment.
var categoryAliases = map[string]string{
	"développement": "développement",
	"developpement": "développement",
	"dev":           "développement",
	"web":           "développement",
	"mobile":        "développement",
	"design":        "design",
	"marketing":     "marketing",
	"conseil":       "conseil",
}

// DefaultProfile is used when a canonical category is absent from the grid.
func DefaultProfile() Profile {
	return Profile{
		HourlyMin: 25, HourlyMed: 45, HourlyMax: 75,
		DailyMin: 200, DailyMed: 360, DailyMax: 600,
		ComplexityFactor: 1.0, AvgDays: 15,
	}
}

// DefaultGrid returns the built-in pricing table used when no CSV is
// available or the CSV fails to load.
func DefaultGrid() *Grid {
	g := &Grid{categories: make(map[string]*categorySet)}
	g.add("développement", "web", Profile{
		HourlyMin: 30, HourlyMed: 50, HourlyMax: 90,
		DailyMin: 240, DailyMed: 400, DailyMax: 720,
		ComplexityFactor: 1.2, AvgDays: 20,
	})
	g.add("développement", "mobile", Profile{
		HourlyMin: 35, HourlyMed: 60, HourlyMax: 100,
		DailyMin: 280, DailyMed: 480, DailyMax: 800,
		ComplexityFactor: 1.4, AvgDays: 30,
	})
	g.add("design", "ui_ux", Profile{
		HourlyMin: 25, HourlyMed: 45, HourlyMax: 80,
		DailyMin: 200, DailyMed: 360, DailyMax: 640,
		ComplexityFactor: 1.1, AvgDays: 12,
	})
	g.add("design", "graphique", Profile{
		HourlyMin: 20, HourlyMed: 35, HourlyMax: 60,
		DailyMin: 160, DailyMed: 280, DailyMax: 480,
		ComplexityFactor: 0.9, AvgDays: 8,
	})
	g.add("marketing", "digital", Profile{
		HourlyMin: 30, HourlyMed: 55, HourlyMax: 100,
		DailyMin: 240, DailyMed: 440, DailyMax: 800,
		ComplexityFactor: 1.0, AvgDays: 15,
	})
	g.add("marketing", "contenu", Profile{
		HourlyMin: 20, HourlyMed: 35, HourlyMax: 65,
		DailyMin: 160, DailyMed: 280, DailyMax: 520,
		ComplexityFactor: 0.8, AvgDays: 10,
	})
	g.add("conseil", "stratégie", Profile{
		HourlyMin: 50, HourlyMed: 80, HourlyMax: 150,
		DailyMin: 400, DailyMed: 640, DailyMax: 1200,
		ComplexityFactor: 1.3, AvgDays: 25,
	})
	return g
}

func (g *Grid) add(category, sub string, p Profile) {
	set, ok := g.categories[category]
	if !ok {
		set = &categorySet{subs: make(map[string]Profile)}
		g.categories[category] = set
	}
	if _, exists := set.subs[sub]; !exists {
		set.order = append(set.order, sub)
	}
	set.subs[sub] = p
}

// Lookup resolves a (category, sub-category) pair to a pricing profile.
// Category goes through the alias table; a missing sub-category falls back
// to the first sub-category of the canonical category; a missing category
// falls back to DefaultProfile. Lookup never fails.
func (g *Grid) Lookup(category, subCategory string) Profile {
	canonical, ok := categoryAliases[strings.ToLower(category)]
	if !ok {
		canonical = "développement"
	}

	set, ok := g.categories[canonical]
	if !ok || len(set.order) == 0 {
		return DefaultProfile()
	}

	if subCategory != "" {
		if p, ok := set.subs[strings.ToLower(subCategory)]; ok {
			return p
		}
	}
	return set.subs[set.order[0]]
}

// Categories returns the canonical category keys in the grid.
func (g *Grid) Categories() []string {
	keys := make([]string, 0, len(g.categories))
	for k := range g.categories {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of (category, sub-category) profiles.
func (g *Grid) Len() int {
	n := 0
	for _, set := range g.categories {
		n += len(set.subs)
	}
	return n
}

// LoadGrid parses a pricing CSV into a Grid. The file must carry a header
// row naming at least category and sub_category; rate columns default when
// absent. Any non-numeric rate value aborts the whole load: reference data
// is all-or-nothing so the grid can never be a partially-updated mix.
func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pricing data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read pricing data: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("pricing data %s has no rows", path)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := header["category"]; !ok {
		return nil, fmt.Errorf("pricing data %s missing category column", path)
	}
	if _, ok := header["sub_category"]; !ok {
		return nil, fmt.Errorf("pricing data %s missing sub_category column", path)
	}

	field := func(row []string, name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	numeric := func(row []string, name string, def float64) (float64, error) {
		raw := field(row, name)
		if raw == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}

	g := &Grid{categories: make(map[string]*categorySet)}
	for n, row := range records[1:] {
		category := strings.ToLower(field(row, "category"))
		sub := strings.ToLower(field(row, "sub_category"))
		if category == "" || sub == "" {
			return nil, fmt.Errorf("pricing data %s row %d: empty category or sub_category", path, n+2)
		}

		var p Profile
		var parseErr error
		read := func(name string, def float64) float64 {
			v, err := numeric(row, name, def)
			if err != nil && parseErr == nil {
				parseErr = fmt.Errorf("row %d: %w", n+2, err)
			}
			return v
		}
		p.HourlyMin = read("hourly_min", 25)
		p.HourlyMed = read("hourly_med", 45)
		p.HourlyMax = read("hourly_max", 80)
		p.DailyMin = read("daily_min", 200)
		p.DailyMed = read("daily_med", 350)
		p.DailyMax = read("daily_max", 600)
		p.ComplexityFactor = read("complexity_factor", 1.0)
		avgDays := read("avg_days", 15)
		if parseErr != nil {
			return nil, fmt.Errorf("pricing data %s: %w", path, parseErr)
		}
		p.AvgDays = int(avgDays)

		g.add(category, sub, p)
	}

	return g, nil
}

// Store owns the active pricing grid. Reads go through an atomic pointer so
// in-flight computations never observe a partially-updated table; Reload
// swaps in a fully-built replacement or leaves the current grid untouched.
type Store struct {
	path string
	grid atomic.Pointer[Grid]
}

// NewStore loads the grid at path, substituting the built-in default table
// when the file is absent or malformed.
func NewStore(path string) *Store {
	s := &Store{path: path}
	grid, err := LoadGrid(path)
	if err != nil {
		slog.Warn("Pricing data unavailable, using built-in defaults", "path", path, "error", err)
		grid = DefaultGrid()
	} else {
		slog.Info("Pricing data loaded", "path", path, "profiles", grid.Len())
	}
	s.grid.Store(grid)
	return s
}

// NewStoreWithGrid wraps an already-built grid, mainly for tests.
func NewStoreWithGrid(g *Grid) *Store {
	s := &Store{}
	s.grid.Store(g)
	return s
}

// Grid returns the active immutable grid.
func (s *Store) Grid() *Grid {
	return s.grid.Load()
}

// Reload re-reads the CSV and atomically swaps the table. On failure the
// previous grid stays active and the error is returned to the caller.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("no pricing data path configured")
	}
	grid, err := LoadGrid(s.path)
	if err != nil {
		return err
	}
	s.grid.Store(grid)
	slog.Info("Pricing data reloaded", "path", s.path, "profiles", grid.Len())
	return nil
}
