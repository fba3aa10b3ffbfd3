package resources

import (
	"fmt"
	"strings"
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/dateparse"
	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// DateLayout is the event date format accepted by the event filters.
const DateLayout = "2006-01-02T15:04:05.000Z"

// FilterOperators are the operators accepted in filter expressions.
var FilterOperators = []string{"eq", "neq", "le", "ge", "cn"}

// Filter is one field:operator:value clause.
type Filter struct {
	Field    string
	Operator string
	Value    string
}

func (f Filter) String() string {
	return f.Field + ":" + f.Operator + ":" + f.Value
}

// ParseFilter parses "field:op:value|field:op:value". Values may contain ':'.
func ParseFilter(expr string) ([]Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	var filters []Filter
	for _, clause := range strings.Split(expr, "|") {
		parts := strings.SplitN(clause, ":", 3)
		switch {
		case len(parts) < 1 || parts[0] == "":
			return nil, filterError(clause, "filter field not found")
		case len(parts) < 2 || parts[1] == "":
			return nil, filterError(clause, "filter operator not found")
		case len(parts) < 3 || parts[2] == "":
			return nil, filterError(clause, "filter value not found")
		}
		if !validOperator(parts[1]) {
			return nil, filterError(clause, fmt.Sprintf("invalid filter operator %q", parts[1]))
		}
		filters = append(filters, Filter{Field: parts[0], Operator: parts[1], Value: parts[2]})
	}
	return filters, nil
}

func validOperator(op string) bool {
	for _, o := range FilterOperators {
		if o == op {
			return true
		}
	}
	return false
}

func filterError(clause, msg string) error {
	return output.ErrUsageHint(fmt.Sprintf("%s in %q", msg, clause),
		"Use field:operator:value, operators: "+strings.Join(FilterOperators, ", "))
}

func joinFilters(filters []Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, "|")
}

// ListParams are the pagination, filter and sort parameters of list endpoints.
type ListParams struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Filter string `json:"filter"`
	Sort   string `json:"sort"`
}

// Validate checks the filter syntax.
func (p ListParams) Validate() error {
	_, err := ParseFilter(p.Filter)
	return err
}

// Options converts the parameters to client options.
func (p ListParams) Options() (dracoon.ListOptions, error) {
	filters, err := ParseFilter(p.Filter)
	if err != nil {
		return dracoon.ListOptions{}, err
	}
	return dracoon.ListOptions{
		Offset: p.Offset,
		Limit:  p.Limit,
		Filter: joinFilters(filters),
		Sort:   strings.TrimSpace(p.Sort),
	}, nil
}

// canonical returns p with filter and sort in the form sent to the server,
// so equivalent queries share a cache key.
func (p ListParams) canonical(opts dracoon.ListOptions) ListParams {
	p.Filter = opts.Filter
	p.Sort = opts.Sort
	return p
}

// WithFilter returns a copy with an extra filter clause appended.
func (p ListParams) WithFilter(f Filter) ListParams {
	if p.Filter == "" {
		p.Filter = f.String()
	} else {
		p.Filter += "|" + f.String()
	}
	return p
}

// EventListParams are the event log query parameters.
type EventListParams struct {
	Offset        uint64 `json:"offset"`
	Limit         uint64 `json:"limit"`
	UserID        *int64 `json:"userId"`
	OperationType *int64 `json:"operationType"`
	FromDate      string `json:"fromDate"`
	ToDate        string `json:"toDate"`
	Status        *int   `json:"status"`
}

// Validate checks dates and status.
func (p EventListParams) Validate() error {
	_, err := p.Options()
	return err
}

// Options converts the parameters to client parameters.
func (p EventListParams) Options() (dracoon.EventParams, error) {
	out := dracoon.EventParams{
		Offset:        p.Offset,
		Limit:         p.Limit,
		UserID:        p.UserID,
		OperationType: p.OperationType,
	}
	var err error
	if out.DateStart, err = parseDate("from", p.FromDate); err != nil {
		return out, err
	}
	if out.DateEnd, err = parseDate("to", p.ToDate); err != nil {
		return out, err
	}
	if out.DateStart != nil && out.DateEnd != nil && out.DateEnd.Before(*out.DateStart) {
		return out, output.ErrUsage("to date is before from date")
	}
	if p.Status != nil {
		switch dracoon.EventStatus(*p.Status) {
		case dracoon.EventStatusSuccess, dracoon.EventStatusFailure:
			s := dracoon.EventStatus(*p.Status)
			out.Status = &s
		default:
			return out, output.ErrUsageHint(fmt.Sprintf("invalid event status %d", *p.Status), "Use 0 (success) or 2 (failure)")
		}
	}
	return out, nil
}

// canonical returns p with absolute dates in DateLayout and relative dates
// lowercased. Relative dates stay symbolic: "last week" is one key until the
// entry expires.
func (p EventListParams) canonical() EventListParams {
	p.FromDate = canonicalDate(p.FromDate)
	p.ToDate = canonicalDate(p.ToDate)
	return p
}

func canonicalDate(s string) string {
	s = strings.TrimSpace(s)
	if t, ok := parseAbsoluteDate(s); ok {
		return FormatDate(t)
	}
	return strings.ToLower(s)
}

func parseAbsoluteDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15:04:05Z", time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseDate accepts the event date layout (fraction optional), RFC 3339,
// plain dates and the relative forms of dateparse.
func parseDate(name, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, ok := parseAbsoluteDate(s); ok {
		return &t, nil
	}
	if t, ok := dateparse.Parse(s); ok {
		return &t, nil
	}
	return nil, output.ErrUsageHint(fmt.Sprintf("invalid %s date %q", name, s),
		"Use "+DateLayout+", YYYY-MM-DD, or a relative date like yesterday, monday, last week, 3 days ago")
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
