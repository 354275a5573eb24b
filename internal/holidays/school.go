package holidays

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// ErrNoEntries is returned when a source answered but listed no usable
// school holiday ranges.
var ErrNoEntries = errors.New("no school holiday entries")

// DefaultStateCode is used when no state has been chosen.
const DefaultStateCode = "NW"

// State is a German federal state offered for school holidays.
type State struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	SubdivisionCode string `json:"subdivisionCode"`
}

// States lists all federal states in display order.
var States = []State{
	{"BW", "Baden-Württemberg", "DE-BW"},
	{"BY", "Bayern", "DE-BY"},
	{"BE", "Berlin", "DE-BE"},
	{"BB", "Brandenburg", "DE-BB"},
	{"HB", "Bremen", "DE-HB"},
	{"HH", "Hamburg", "DE-HH"},
	{"HE", "Hessen", "DE-HE"},
	{"MV", "Mecklenburg-Vorpommern", "DE-MV"},
	{"NI", "Niedersachsen", "DE-NI"},
	{"NW", "Nordrhein-Westfalen", "DE-NW"},
	{"RP", "Rheinland-Pfalz", "DE-RP"},
	{"SL", "Saarland", "DE-SL"},
	{"SN", "Sachsen", "DE-SN"},
	{"ST", "Sachsen-Anhalt", "DE-ST"},
	{"SH", "Schleswig-Holstein", "DE-SH"},
	{"TH", "Thüringen", "DE-TH"},
}

// LookupState returns the state with the given code.
func LookupState(code string) (State, bool) {
	for _, s := range States {
		if s.Code == code {
			return s, true
		}
	}
	return State{}, false
}

// Range is one normalized school holiday period. Start and End are
// inclusive calendar dates.
type Range struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Label renders the range as "Name (dd.mm.yyyy - dd.mm.yyyy)".
func (r Range) Label() string {
	return fmt.Sprintf("%s (%s - %s)", r.Name, r.Start.Format("02.01.2006"), r.End.Format("02.01.2006"))
}

// Source fetches the school holidays of one state and year.
type Source interface {
	Fetch(ctx context.Context, state State, year int) ([]Range, error)
}

const (
	OpenHolidaysURL = "https://openholidaysapi.org"
	FerienAPIURL    = "https://ferien-api.de"
)

// OpenHolidays queries openholidaysapi.org.
type OpenHolidays struct {
	Client  *fasthttp.Client
	BaseURL string
	Timeout time.Duration
}

// Fetch implements Source.
func (o *OpenHolidays) Fetch(ctx context.Context, state State, year int) ([]Range, error) {
	uri := fmt.Sprintf("%s/SchoolHolidays?countryIsoCode=DE&subdivisionCode=%s&validFrom=%d-01-01&validTo=%d-12-31&languageIsoCode=DE",
		strings.TrimRight(o.BaseURL, "/"), state.SubdivisionCode, year, year)
	body, err := get(ctx, o.Client, uri, o.Timeout)
	if err != nil {
		return nil, err
	}
	ranges, err := NormalizeEntries(body)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, ErrNoEntries
	}
	return ranges, nil
}

// FerienAPI queries ferien-api.de.
type FerienAPI struct {
	Client  *fasthttp.Client
	BaseURL string
	Timeout time.Duration
}

// Fetch implements Source.
func (f *FerienAPI) Fetch(ctx context.Context, state State, year int) ([]Range, error) {
	uri := fmt.Sprintf("%s/api/v1/holidays/%s/%d", strings.TrimRight(f.BaseURL, "/"), state.Code, year)
	body, err := get(ctx, f.Client, uri, f.Timeout)
	if err != nil {
		return nil, err
	}
	return NormalizeEntries(body)
}

// Fallback tries Primary and falls back to Secondary once on any error.
type Fallback struct {
	Primary   Source
	Secondary Source
}

// Fetch implements Source.
func (f Fallback) Fetch(ctx context.Context, state State, year int) ([]Range, error) {
	ranges, err := f.Primary.Fetch(ctx, state, year)
	if err == nil {
		return ranges, nil
	}
	ranges, fallbackErr := f.Secondary.Fetch(ctx, state, year)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, fallbackErr)
	}
	return ranges, nil
}

// NewDefaultSource returns the openholidaysapi.org source with ferien-api.de
// as fallback, sharing one HTTP client.
func NewDefaultSource(timeout time.Duration) Source {
	client := &fasthttp.Client{
		Name:                "team-kalender",
		MaxIdleConnDuration: time.Minute,
	}
	return Fallback{
		Primary:   &OpenHolidays{Client: client, BaseURL: OpenHolidaysURL, Timeout: timeout},
		Secondary: &FerienAPI{Client: client, BaseURL: FerienAPIURL, Timeout: timeout},
	}
}

func get(ctx context.Context, client *fasthttp.Client, uri string, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	var err error
	if deadline.IsZero() {
		err = client.Do(req, resp)
	} else {
		err = client.DoDeadline(req, resp, deadline)
	}
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", uri, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", uri, code)
	}
	return append([]byte(nil), resp.Body()...), nil
}

// rawEntry covers the entry shapes of both APIs and of cached ranges.
type rawEntry struct {
	Start     json.RawMessage `json:"start"`
	StartDate json.RawMessage `json:"startDate"`
	End       json.RawMessage `json:"end"`
	EndDate   json.RawMessage `json:"endDate"`
	Name      json.RawMessage `json:"name"`
	Type      string          `json:"type"`
}

type localizedText struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// NormalizeEntries decodes a JSON array of holiday entries into ranges.
// Entries without a parseable start and end are skipped. A non-array
// payload yields no ranges.
func NormalizeEntries(body []byte) ([]Range, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		var probe any
		if json.Unmarshal(body, &probe) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("decode school holidays: %w", err)
	}
	ranges := make([]Range, 0, len(entries))
	for _, raw := range entries {
		var e rawEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		start, ok := parseHolidayDate(firstNonEmpty(e.StartDate, e.Start))
		if !ok {
			continue
		}
		end, ok := parseHolidayDate(firstNonEmpty(e.EndDate, e.End))
		if !ok {
			continue
		}
		ranges = append(ranges, Range{Name: resolveName(e), Start: start, End: end})
	}
	return ranges, nil
}

func firstNonEmpty(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

// parseHolidayDate accepts "2025-04-14", RFC 3339 timestamps and objects
// carrying a date or iso field. Only the calendar date is kept.
func parseHolidayDate(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Date string `json:"date"`
			ISO  string `json:"iso"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return time.Time{}, false
		}
		s = obj.Date
		if s == "" {
			s = obj.ISO
		}
	}
	if len(s) < len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return date(t.Year(), int(t.Month()), t.Day()), true
}

func resolveName(e rawEntry) string {
	if len(e.Name) > 0 {
		var s string
		if json.Unmarshal(e.Name, &s) == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var single localizedText
		if json.Unmarshal(e.Name, &single) == nil && strings.TrimSpace(single.Text) != "" {
			return single.Text
		}
		var list []localizedText
		if json.Unmarshal(e.Name, &list) == nil {
			for _, item := range list {
				if strings.EqualFold(item.Language, "DE") && item.Text != "" {
					return item.Text
				}
			}
			for _, item := range list {
				if item.Text != "" {
					return item.Text
				}
			}
		}
	}
	if strings.TrimSpace(e.Type) != "" {
		return e.Type
	}
	return "Ferien"
}
