package planner

import (
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/tidwall/jsonc"
)

// rawPayload is the union of every persisted shape we have written:
// the current year-keyed layout and the older single-year flat months map.
type rawPayload struct {
	Members []Member             `json:"members"`
	Years   map[int]*rawYear     `json:"years"`
	Months  map[int]*legacyMonth `json:"months"`
}

// rawYear keeps null allowances distinguishable from zero.
type rawYear struct {
	Months       map[int]*MonthRecord `json:"months"`
	VacationDays map[int]*float64     `json:"vacationDays"`
}

type legacyMonth struct {
	Members  []Member               `json:"members"`
	Days     map[int]map[int]Status `json:"days"`
	Approved map[int]map[int]bool   `json:"approved"`
}

// IsImportPayload reports whether raw is a JSON object carrying at least
// one of members, years or the legacy months field. Comments and trailing
// commas are tolerated.
func IsImportPayload(raw []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(raw), &probe); err != nil || probe == nil {
		return false
	}
	for _, key := range []string{"members", "years", "months"} {
		if _, ok := probe[key]; ok {
			return true
		}
	}
	return false
}

// ParsePayload decodes persisted or imported state and upgrades it to the
// canonical shape: legacy flat months become years[currentYear], legacy
// half-day codes are migrated, missing sub-maps are filled in, approvals
// on non-vacation days are dropped and the roster is sorted.
func ParsePayload(raw []byte, currentYear int) (*Data, error) {
	if !IsImportPayload(raw) {
		return nil, ErrMalformedPayload
	}
	var p rawPayload
	if err := json.Unmarshal(jsonc.ToJSON(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	d := &Data{Members: p.Members, Years: make(map[int]*YearRecord, len(p.Years))}
	for year, ry := range p.Years {
		if ry == nil {
			continue
		}
		yr := &YearRecord{Months: ry.Months, VacationDays: make(map[int]float64, len(ry.VacationDays))}
		for member, v := range ry.VacationDays {
			if v != nil {
				yr.VacationDays[member] = *v
			}
		}
		d.Years[year] = yr
	}
	for i := range d.Members {
		d.Members[i] = Member{Name: d.Members[i].Name}
	}

	if p.Months != nil {
		keys := make([]int, 0, len(p.Months))
		for k := range p.Months {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		if len(d.Members) == 0 {
			for _, k := range keys {
				if lm := p.Months[k]; lm != nil && len(lm.Members) > 0 {
					for _, m := range lm.Members {
						d.Members = append(d.Members, Member{Name: m.Name})
					}
					break
				}
			}
		}
		if _, ok := d.Years[currentYear]; !ok {
			yr := newYearRecord()
			for _, k := range keys {
				if lm := p.Months[k]; lm != nil {
					yr.Months[k] = &MonthRecord{Days: lm.Days, Approved: lm.Approved}
				}
			}
			d.Years[currentYear] = yr
		}
	}

	Normalize(d)
	return d, nil
}

// Normalize brings an already decoded tree into canonical shape in place.
func Normalize(d *Data) {
	ensureShape(d)
	for _, yr := range d.Years {
		for _, mr := range yr.Months {
			migrateHalfDays(mr)
			pruneMonth(mr)
		}
	}
	NewStore(d).SortMembers()
}

func migrateHalfDays(mr *MonthRecord) {
	for _, days := range mr.Days {
		for day, status := range days {
			if status == statusLegacyHalfDay {
				days[day] = StatusVacationMorning
			}
		}
	}
}

// pruneMonth removes empty per-member maps and approvals whose day no
// longer holds a vacation-class status.
func pruneMonth(mr *MonthRecord) {
	for member, days := range mr.Days {
		if len(days) == 0 {
			delete(mr.Days, member)
		}
	}
	for member, days := range mr.Approved {
		for day, ok := range days {
			if !ok || !mr.Days[member][day].IsVacation() {
				delete(days, day)
			}
		}
		if len(days) == 0 {
			delete(mr.Approved, member)
		}
	}
}

// Marshal encodes d in the persisted/exported shape.
func Marshal(d *Data) ([]byte, error) {
	return json.Marshal(d)
}

// MarshalIndent encodes d for file download.
func MarshalIndent(d *Data) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
