package planner

// Member is one roster entry. Its identity is its index in Data.Members.
type Member struct {
	Name string `json:"name"`
}

// Data is the complete persisted state.
type Data struct {
	Members []Member            `json:"members"`
	Years   map[int]*YearRecord `json:"years"`
}

// YearRecord holds all months of one calendar year plus the annual
// vacation allowance per member index.
type YearRecord struct {
	Months       map[int]*MonthRecord `json:"months"`
	VacationDays map[int]float64      `json:"vacationDays"`
}

// MonthRecord holds day assignments and approvals keyed by member index
// and then by day of month. Months are indexed 0..11.
type MonthRecord struct {
	Days     map[int]map[int]Status `json:"days"`
	Approved map[int]map[int]bool   `json:"approved"`
}

// NewData returns an empty, fully shaped Data.
func NewData() *Data {
	return &Data{Members: []Member{}, Years: map[int]*YearRecord{}}
}

func newYearRecord() *YearRecord {
	return &YearRecord{Months: map[int]*MonthRecord{}, VacationDays: map[int]float64{}}
}

func newMonthRecord() *MonthRecord {
	return &MonthRecord{Days: map[int]map[int]Status{}, Approved: map[int]map[int]bool{}}
}

// ensureShape replaces missing sub-maps with empty ones so that every
// later access can assume a fully shaped tree. Nil month entries are dropped.
func ensureShape(d *Data) {
	if d.Members == nil {
		d.Members = []Member{}
	}
	if d.Years == nil {
		d.Years = map[int]*YearRecord{}
	}
	for year, yr := range d.Years {
		if yr == nil {
			delete(d.Years, year)
			continue
		}
		if yr.Months == nil {
			yr.Months = map[int]*MonthRecord{}
		}
		if yr.VacationDays == nil {
			yr.VacationDays = map[int]float64{}
		}
		for idx, mr := range yr.Months {
			if mr == nil {
				delete(yr.Months, idx)
				continue
			}
			if mr.Days == nil {
				mr.Days = map[int]map[int]Status{}
			}
			if mr.Approved == nil {
				mr.Approved = map[int]map[int]bool{}
			}
		}
	}
}
