// Package dashboard filters, groups and exports the admin student rows.
// Everything here is pure and works on rows already loaded by the query
// service.
package dashboard

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"techsymposium/internal/query"
)

const (
	PaymentAll    = "all"
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"

	EventAll = "all"

	dateLayout = "2006-01-02"
)

var csvHeader = []string{"ID", "Name", "Email", "Payment Status", "Registration Date", "Payment Method"}

// Filter mirrors the dashboard controls. Zero values match everything.
type Filter struct {
	Search  string `json:"search"`
	Event   string `json:"event"`
	Payment string `json:"payment"`
}

// Apply keeps rows matching every set criterion, preserving order.
func (f Filter) Apply(rows []query.StudentView) []query.StudentView {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	event := strings.TrimSpace(f.Event)
	payment := strings.ToLower(strings.TrimSpace(f.Payment))

	out := make([]query.StudentView, 0, len(rows))
	for _, row := range rows {
		if search != "" && !matchesSearch(row, search) {
			continue
		}
		if event != "" && event != EventAll && row.EventTitle != event {
			continue
		}
		switch payment {
		case PaymentPaid:
			if !row.IsPaid {
				continue
			}
		case PaymentUnpaid:
			if row.IsPaid {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

func matchesSearch(row query.StudentView, search string) bool {
	return strings.Contains(strings.ToLower(row.Name), search) ||
		strings.Contains(strings.ToLower(row.Email), search) ||
		strings.Contains(strings.ToLower(row.ID), search)
}

// EventGroup is one dashboard table.
type EventGroup struct {
	EventTitle string              `json:"eventTitle"`
	Students   []query.StudentView `json:"students"`
}

// GroupByEvent groups rows by event title, titles sorted.
func GroupByEvent(rows []query.StudentView) []EventGroup {
	byTitle := make(map[string][]query.StudentView)
	for _, row := range rows {
		byTitle[row.EventTitle] = append(byTitle[row.EventTitle], row)
	}

	titles := make([]string, 0, len(byTitle))
	for title := range byTitle {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	groups := make([]EventGroup, len(titles))
	for i, title := range titles {
		groups[i] = EventGroup{EventTitle: title, Students: byTitle[title]}
	}
	return groups
}

// ExportCSV writes a header and one line per row. Fields containing commas,
// quotes or newlines are quoted.
func ExportCSV(w io.Writer, rows []query.StudentView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		status := "Unpaid"
		if row.IsPaid {
			status = "Paid"
		}
		record := []string{
			row.ID,
			row.Name,
			row.Email,
			status,
			row.RegistrationDate.Format(dateLayout),
			row.PaymentMethod,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName is "<title>_Registrations.csv" with whitespace runs
// replaced by underscores.
func ExportFileName(eventTitle string) string {
	title := strings.TrimSpace(eventTitle)
	if title == "" || title == EventAll {
		title = "All"
	}
	return strings.Join(strings.Fields(title), "_") + "_Registrations.csv"
}
