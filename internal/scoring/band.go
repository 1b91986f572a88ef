package scoring

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ieltsprep/practice-service/internal/models"
)

const (
	BandListening       = "listening"
	BandAcademicReading = "academic_reading"
	BandGeneralReading  = "general_reading"
)

var ErrInvalidBandRange = errors.New("invalid band range")

// BandEntry maps an inclusive correct-count range such as "27-29" to a band.
type BandEntry struct {
	Range string  `json:"range"`
	Band  float64 `json:"band"`

	lo, hi int
}

// BandTable is an ordered correct-count to band lookup table.
type BandTable struct {
	Name    string      `json:"name"`
	Entries []BandEntry `json:"entries"`
}

// NewBandTable parses every range once. Ranges must not overlap.
func NewBandTable(name string, entries []BandEntry) (*BandTable, error) {
	parsed := make([]BandEntry, len(entries))
	for i, e := range entries {
		lo, hi, err := parseBandRange(e.Range)
		if err != nil {
			return nil, err
		}
		if e.Band < 0 || e.Band > 9 {
			return nil, fmt.Errorf("%w: band %.1f for %q is outside 0-9", ErrInvalidBandRange, e.Band, e.Range)
		}
		parsed[i] = BandEntry{Range: e.Range, Band: e.Band, lo: lo, hi: hi}
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].lo > parsed[j].lo })
	for i := 1; i < len(parsed); i++ {
		if parsed[i].hi >= parsed[i-1].lo {
			return nil, fmt.Errorf("%w: %q overlaps %q", ErrInvalidBandRange, parsed[i].Range, parsed[i-1].Range)
		}
	}
	return &BandTable{Name: name, Entries: parsed}, nil
}

func parseBandRange(r string) (int, int, error) {
	r = strings.TrimSpace(r)
	loText, hiText, found := strings.Cut(r, "-")
	if !found {
		hiText = loText
	}
	lo, err := strconv.Atoi(strings.TrimSpace(loText))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBandRange, r)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(hiText))
	if err != nil || lo < 0 || hi < lo {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBandRange, r)
	}
	return lo, hi, nil
}

// Lookup returns the band for a correct count.
func (t *BandTable) Lookup(correct int) (float64, bool) {
	for _, e := range t.Entries {
		if correct >= e.lo && correct <= e.hi {
			return e.Band, true
		}
	}
	return 0, false
}

// ===== REGISTRY =====

var (
	bandMu     sync.RWMutex
	bandTables = map[string]*BandTable{}
)

// RegisterBandTable binds a built-in table to its name.
func RegisterBandTable(t *BandTable) {
	bandMu.Lock()
	defer bandMu.Unlock()
	bandTables[t.Name] = t
}

var bandNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

// ValidBandTableName reports whether name can identify a stored band table:
// lower case letters, digits and underscores, starting with a letter.
func ValidBandTableName(name string) bool {
	return bandNamePattern.MatchString(name)
}

// BuiltinBandTable returns a registered table.
func BuiltinBandTable(name string) (*BandTable, bool) {
	bandMu.RLock()
	defer bandMu.RUnlock()
	t, ok := bandTables[name]
	return t, ok
}

// BuiltinBandTables lists registered tables by name.
func BuiltinBandTables() []*BandTable {
	bandMu.RLock()
	defer bandMu.RUnlock()
	out := make([]*BandTable, 0, len(bandTables))
	for _, t := range bandTables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultBandTable picks the table for a quiz: its explicit table when set,
// else the listening or academic reading table by skill.
func DefaultBandTable(quiz *models.Quiz) string {
	if quiz.BandTable != "" {
		return quiz.BandTable
	}
	if quiz.IsListening() {
		return BandListening
	}
	return BandAcademicReading
}

func mustBandTable(name string, entries []BandEntry) *BandTable {
	t, err := NewBandTable(name, entries)
	if err != nil {
		panic(err)
	}
	return t
}

func init() {
	RegisterBandTable(mustBandTable(BandListening, []BandEntry{
		{Range: "39-40", Band: 9}, {Range: "37-38", Band: 8.5}, {Range: "35-36", Band: 8},
		{Range: "32-34", Band: 7.5}, {Range: "30-31", Band: 7}, {Range: "26-29", Band: 6.5},
		{Range: "23-25", Band: 6}, {Range: "18-22", Band: 5.5}, {Range: "16-17", Band: 5},
		{Range: "13-15", Band: 4.5}, {Range: "10-12", Band: 4}, {Range: "8-9", Band: 3.5},
		{Range: "6-7", Band: 3}, {Range: "4-5", Band: 2.5}, {Range: "0-3", Band: 0},
	}))
	RegisterBandTable(mustBandTable(BandAcademicReading, []BandEntry{
		{Range: "39-40", Band: 9}, {Range: "37-38", Band: 8.5}, {Range: "35-36", Band: 8},
		{Range: "33-34", Band: 7.5}, {Range: "30-32", Band: 7}, {Range: "27-29", Band: 6.5},
		{Range: "23-26", Band: 6}, {Range: "19-22", Band: 5.5}, {Range: "15-18", Band: 5},
		{Range: "13-14", Band: 4.5}, {Range: "10-12", Band: 4}, {Range: "8-9", Band: 3.5},
		{Range: "6-7", Band: 3}, {Range: "4-5", Band: 2.5}, {Range: "0-3", Band: 0},
	}))
	RegisterBandTable(mustBandTable(BandGeneralReading, []BandEntry{
		{Range: "40", Band: 9}, {Range: "39", Band: 8.5}, {Range: "37-38", Band: 8},
		{Range: "36", Band: 7.5}, {Range: "34-35", Band: 7}, {Range: "32-33", Band: 6.5},
		{Range: "30-31", Band: 6}, {Range: "27-29", Band: 5.5}, {Range: "23-26", Band: 5},
		{Range: "19-22", Band: 4.5}, {Range: "15-18", Band: 4}, {Range: "12-14", Band: 3.5},
		{Range: "9-11", Band: 3}, {Range: "6-8", Band: 2.5}, {Range: "0-5", Band: 0},
	}))
}
