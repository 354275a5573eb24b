package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

// icsNamespace seeds the stable event UIDs of the absence feed.
var icsNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://teamkalender.winterberg.de/absences"))

// Absence is a run of consecutive days with the same status.
type Absence struct {
	Status   planner.Status
	Start    time.Time
	End      time.Time // inclusive
	Approved bool
}

// CollectAbsences returns the absences of member from minYear on, in date
// order. Consecutive days with the same status form one absence, also
// across month and year boundaries.
func CollectAbsences(store *planner.Store, member, minYear int) []Absence {
	type day struct {
		date     time.Time
		status   planner.Status
		approved bool
	}
	var days []day
	for year, yr := range store.Data().Years {
		if year < minYear {
			continue
		}
		for month, mr := range yr.Months {
			for d, status := range mr.Days[member] {
				if status == planner.StatusNone {
					continue
				}
				days = append(days, day{
					date:     time.Date(year, time.Month(month+1), d, 12, 0, 0, 0, time.UTC),
					status:   status,
					approved: mr.Approved[member][d],
				})
			}
		}
	}
	slices.SortFunc(days, func(a, b day) int { return a.date.Compare(b.date) })

	var out []Absence
	for _, d := range days {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Status == d.status && last.End.AddDate(0, 0, 1).Equal(d.date) {
				last.End = d.date
				last.Approved = last.Approved && d.approved
				continue
			}
		}
		out = append(out, Absence{Status: d.status, Start: d.date, End: d.date, Approved: d.approved})
	}
	return out
}

// writeString writes to w and logs any error (helper for ICS generation)
func (s *Server) writeString(w io.Writer, str string) {
	if _, err := io.WriteString(w, str); err != nil {
		s.log.Error("error writing response", zap.Error(err))
	}
}

// icsEscape escapes TEXT values (RFC 5545 section 3.3.11).
func icsEscape(v string) string {
	return strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`).Replace(v)
}

// absenceUID is stable across exports so subscribed calendars update in place.
func absenceUID(member string, a Absence) string {
	key := fmt.Sprintf("%s|%s|%s", member, a.Start.Format("2006-01-02"), a.Status)
	return uuid.NewSHA1(icsNamespace, []byte(key)).String() + "@teamkalender"
}

// GenerateAbsencesICS writes an iCalendar subscription feed with one
// all-day event per absence. reminderDays >= 0 together with a HH:MM
// reminderTime adds an alarm before each absence.
func (s *Server) GenerateAbsencesICS(w http.ResponseWriter, member string, absences []Absence, reminderDays int, reminderTime string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	fmt.Fprintf(&b, "PRODID:%s\r\n", ICSProductID)
	b.WriteString("METHOD:PUBLISH\r\n")
	fmt.Fprintf(&b, "X-WR-CALNAME:Abwesenheiten %s\r\n", icsEscape(member))
	fmt.Fprintf(&b, "X-WR-TIMEZONE:%s\r\n", ICSTimezone)
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("X-PUBLISHED-TTL:PT1H\r\n")

	stamp := s.now().UTC().Format("20060102T150405Z")
	for _, a := range absences {
		summary := a.Status.Label()
		if a.Approved {
			summary += " (genehmigt)"
		}
		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "UID:%s\r\n", absenceUID(member, a))
		fmt.Fprintf(&b, "DTSTAMP:%s\r\n", stamp)
		fmt.Fprintf(&b, "DTSTART;VALUE=DATE:%s\r\n", a.Start.Format("20060102"))
		fmt.Fprintf(&b, "DTEND;VALUE=DATE:%s\r\n", a.End.AddDate(0, 0, 1).Format("20060102"))
		fmt.Fprintf(&b, "SUMMARY:%s: %s\r\n", icsEscape(member), icsEscape(summary))
		b.WriteString("TRANSP:TRANSPARENT\r\n")
		if reminderDays >= 0 && reminderTime != "" {
			AddAlarm(&b, a.Start, reminderDays, reminderTime, summary)
		}
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	s.writeString(w, b.String())
}

// AddAlarm adds an alarm/reminder to an ICS event
func AddAlarm(w io.Writer, eventDate time.Time, daysBefore int, alarmTime string, description string) {
	// Parse alarm time (HH:MM format)
	parts := strings.Split(alarmTime, ":")
	if len(parts) != 2 {
		return
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return
	}

	// Alarm at alarmTime on (eventDate - daysBefore), relative to the
	// all-day event starting at midnight.
	alarmDate := eventDate.AddDate(0, 0, -daysBefore)
	alarmDateTime := time.Date(alarmDate.Year(), alarmDate.Month(), alarmDate.Day(), hour, minute, 0, 0, time.UTC)
	eventStart := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, time.UTC)
	totalMinutes := int(alarmDateTime.Sub(eventStart).Minutes())

	sign := ""
	if totalMinutes < 0 {
		sign = "-"
		totalMinutes = -totalMinutes
	}
	days := totalMinutes / (24 * 60)
	hours := totalMinutes % (24 * 60) / 60
	minutes := totalMinutes % 60

	fmt.Fprint(w, "BEGIN:VALARM\r\n")
	fmt.Fprint(w, "ACTION:DISPLAY\r\n")
	fmt.Fprintf(w, "DESCRIPTION:Erinnerung: %s\r\n", icsEscape(description))
	fmt.Fprintf(w, "TRIGGER:%sP%dDT%dH%dM\r\n", sign, days, hours, minutes)
	fmt.Fprint(w, "END:VALARM\r\n")
}

// CountsCSVHeader is the header row of the counts export.
var CountsCSVHeader = []string{"Name", "Urlaubstage", "Urlaub", "Sonderurlaub", "krank", "Schulung", "Einsatz", "Gleittag"}

// GenerateCountsCSV writes the yearly totals as semicolon separated CSV
// with decimal commas.
func (s *Server) GenerateCountsCSV(w http.ResponseWriter, year int, rows []CountsRow) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=urlaubsplanung_%d.csv", year))

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	records := [][]string{CountsCSVHeader}
	for _, row := range rows {
		vacationDays := ""
		if row.VacationDays != nil {
			vacationDays = strings.Replace(strconv.FormatFloat(*row.VacationDays, 'f', -1, 64), ".", ",", 1)
		}
		c := row.Counts
		records = append(records, []string{
			row.Name,
			vacationDays,
			planner.FormatCount(c.Vacation),
			planner.FormatCount(c.SpecialVacation),
			planner.FormatCount(c.Sick),
			planner.FormatCount(c.Training),
			planner.FormatCount(c.Deployment),
			planner.FormatCount(c.CompDay),
		})
	}
	if err := cw.WriteAll(records); err != nil {
		s.log.Error("error writing CSV export", zap.Error(err))
	}
}

// ExportFileName is the download name of the JSON export on day t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("urlaubsplanung-%s.json", t.Format("2006-01-02"))
}

// GenerateExport writes the pretty printed state as a file download.
func (s *Server) GenerateExport(w http.ResponseWriter, d *planner.Data) {
	payload, err := planner.MarshalIndent(d)
	if err != nil {
		s.log.Error("error encoding JSON export", zap.Error(err))
		http.Error(w, ErrFailedToGenerateJSON, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+ExportFileName(s.now()))
	if _, err := w.Write(payload); err != nil {
		s.log.Error("error writing JSON export", zap.Error(err))
	}
}
