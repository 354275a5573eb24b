package holidays

import "testing"

func TestCalculateEaster(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{2024, "2024-03-31"},
		{2025, "2025-04-20"},
		{2026, "2026-04-05"},
		{2027, "2027-03-28"},
	}
	for _, tt := range tests {
		if got := calculateEaster(tt.year).Format(dateLayout); got != tt.want {
			t.Errorf("calculateEaster(%d) = %s, want %s", tt.year, got, tt.want)
		}
	}
}

func TestPublicHolidays(t *testing.T) {
	got := map[string]string{}
	for _, h := range PublicHolidays(2025) {
		got[h.Key()] = h.Name
	}
	want := map[string]string{
		"2025-01-01": "Neujahr",
		"2025-04-18": "Karfreitag",
		"2025-04-20": "Ostersonntag",
		"2025-04-21": "Ostermontag",
		"2025-05-01": "Tag der Arbeit",
		"2025-05-29": "Christi Himmelfahrt",
		"2025-06-08": "Pfingstsonntag",
		"2025-06-09": "Pfingstmontag",
		"2025-06-19": "Fronleichnam",
		"2025-10-03": "Tag der Deutschen Einheit",
		"2025-11-01": "Allerheiligen",
		"2025-12-25": "1. Weihnachtstag",
		"2025-12-26": "2. Weihnachtstag",
	}
	if len(got) != len(want) {
		t.Errorf("Expected %d holidays, got %d", len(want), len(got))
	}
	for key, name := range want {
		if got[key] != name {
			t.Errorf("holiday %s: got %q, want %q", key, got[key], name)
		}
	}
}

func TestCalendarSpansNeighbourYears(t *testing.T) {
	c := NewCalendar(2025)
	if name, ok := c.Name("2026-01-01"); !ok || name != "Neujahr" {
		t.Errorf("Expected next year's Neujahr in the lookup, got %q %v", name, ok)
	}
	if _, ok := c.Name("2024-12-26"); !ok {
		t.Error("Expected previous year's Christmas in the lookup")
	}
	if _, ok := c.Name("2027-01-01"); ok {
		t.Error("lookup must not reach two years ahead")
	}
}

func TestExcluded(t *testing.T) {
	c := NewCalendar(2025)
	tests := []struct {
		name       string
		month, day int
		want       bool
	}{
		{"holiday", 0, 1, true},
		{"saturday", 0, 4, true},
		{"sunday", 0, 5, true},
		{"tuesday", 0, 7, false},
		{"whit monday", 5, 9, true},
		{"regular friday", 5, 13, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Excluded(2025, tt.month, tt.day); got != tt.want {
				t.Errorf("Excluded(2025, %d, %d) = %v, want %v", tt.month, tt.day, got, tt.want)
			}
		})
	}
}
