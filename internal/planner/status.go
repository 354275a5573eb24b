package planner

// Status is the attendance code stored for a (member, day) cell.
// The string values are the persisted codes and must not change.
type Status string

const (
	StatusNone            Status = ""
	StatusVacation        Status = "urlaub"
	StatusSpecialVacation Status = "sonderurlaub"
	StatusVacationMorning Status = "urlaub-am"
	StatusVacationAfter   Status = "urlaub-pm"
	StatusSick            Status = "krank"
	StatusTraining        Status = "schulung"
	StatusDeployment      Status = "einsatz"
	StatusCompDay         Status = "gleittag"

	// statusLegacyHalfDay was written by older versions for a half vacation day.
	statusLegacyHalfDay Status = "urlaub-half"
)

// StatusOption describes one entry of the status vocabulary.
type StatusOption struct {
	Status                   Status `json:"value"`
	Label                    string `json:"label"`
	ClassName                string `json:"className"`
	RequiresWeekendOrHoliday bool   `json:"requiresWeekendOrHoliday,omitempty"`
}

// StatusOptions is the fixed vocabulary in display order.
var StatusOptions = []StatusOption{
	{Status: StatusNone, Label: "nichts"},
	{Status: StatusVacation, Label: "Urlaub", ClassName: "status-urlaub"},
	{Status: StatusSpecialVacation, Label: "Sonderurlaub", ClassName: "status-sonderurlaub"},
	{Status: StatusVacationMorning, Label: "Urlaub vormittags", ClassName: "status-urlaub-am"},
	{Status: StatusVacationAfter, Label: "Urlaub nachmittags", ClassName: "status-urlaub-pm"},
	{Status: StatusSick, Label: "krank", ClassName: "status-krank"},
	{Status: StatusTraining, Label: "Schulung", ClassName: "status-schulung"},
	{Status: StatusDeployment, Label: "Einsatz", ClassName: "status-einsatz", RequiresWeekendOrHoliday: true},
	{Status: StatusCompDay, Label: "Gleittag", ClassName: "status-gleittag"},
}

// LookupStatus returns the vocabulary entry for s.
func LookupStatus(s Status) (StatusOption, bool) {
	for _, opt := range StatusOptions {
		if opt.Status == s {
			return opt, true
		}
	}
	return StatusOption{}, false
}

// Label returns the display label, or the raw code for unknown values.
func (s Status) Label() string {
	if opt, ok := LookupStatus(s); ok {
		return opt.Label
	}
	return string(s)
}

// IsVacation reports whether s may carry an approval flag.
func (s Status) IsVacation() bool {
	switch s {
	case StatusVacation, StatusSpecialVacation, StatusVacationMorning, StatusVacationAfter:
		return true
	}
	return false
}

// RequiresWeekendOrHoliday reports whether s may only be placed on excluded days.
func (s Status) RequiresWeekendOrHoliday() bool {
	opt, ok := LookupStatus(s)
	return ok && opt.RequiresWeekendOrHoliday
}

// Valid reports whether s is part of the vocabulary.
func (s Status) Valid() bool {
	_, ok := LookupStatus(s)
	return ok
}
