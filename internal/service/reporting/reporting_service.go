package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockwatch/internal/domain/models"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04 MST"
)

var tableTemplate = template.Must(template.New("low-stock").Parse(`<h2>{{.Heading}}</h2>
<p>{{.Intro}}</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse">
<thead><tr><th>Item</th><th>Category</th><th>Location</th><th>Quantity</th><th>Minimum</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Name}}</td><td>{{.Category}}</td><td>{{.Location}}</td><td>{{.Quantity}}</td><td>{{.Minimum}}</td></tr>
{{- end}}
</tbody>
</table>
`))

type tableRow struct {
	Name     string
	Category string
	Location string
	Quantity string
	Minimum  string
}

type tableView struct {
	Heading string
	Intro   string
	Rows    []tableRow
}

// Email is a rendered subject and HTML body.
type Email struct {
	Subject string
	HTML    string
}

// Row is a flattened low-stock line used by exports and the archive.
type Row struct {
	ItemID     string
	Name       string
	Category   string
	Location   string
	Quantity   float64
	Minimum    float64
	Shortfall  float64
	FirstLowAt *time.Time
}

// Service renders low-stock notifications and report rows.
type Service struct {
	loc    *time.Location
	logger *zap.Logger
}

// NewService wires a new reporting service. Timestamps are rendered in loc.
func NewService(loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{loc: loc, logger: logger}
}

// ThresholdEmail renders the notification for items that just went low.
func (s *Service) ThresholdEmail(items []models.InventoryItem, now time.Time) (Email, error) {
	subject := fmt.Sprintf("Low stock alert: %d item%s below minimum", len(items), plural(len(items)))
	html, err := s.render(tableView{
		Heading: "Items newly below minimum quantity",
		Intro:   fmt.Sprintf("As of %s the following items reached their minimum quantity.", now.In(s.loc).Format(dateTimeLayout)),
		Rows:    tableRows(items),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: html}, nil
}

// DailyDigestEmail renders the daily summary of every item currently low.
func (s *Service) DailyDigestEmail(items []models.InventoryItem, localDate string) (Email, error) {
	subject := fmt.Sprintf("Daily low stock digest %s: %d item%s", localDate, len(items), plural(len(items)))
	html, err := s.render(tableView{
		Heading: "Daily low stock digest",
		Intro:   fmt.Sprintf("Items at or below minimum quantity on %s.", localDate),
		Rows:    tableRows(items),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: html}, nil
}

// LowStockRows flattens entries into export rows ordered by category then name.
func (s *Service) LowStockRows(entries []models.LowStockEntry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			ItemID:     e.Item.ID,
			Name:       e.Item.Name,
			Category:   e.Item.Category,
			Location:   e.Item.Location,
			Quantity:   e.Item.Quantity,
			Minimum:    e.Item.MinimumQuantity,
			Shortfall:  e.Item.Shortfall(),
			FirstLowAt: e.State.FirstLowAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// FormatTime renders t in the business timezone, or "" for nil.
func (s *Service) FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.loc).Format(dateTimeLayout)
}

// LocalDate returns the calendar date of t in the business timezone.
func (s *Service) LocalDate(t time.Time) string {
	return t.In(s.loc).Format(dateLayout)
}

func (s *Service) render(view tableView) (string, error) {
	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, view); err != nil {
		s.logger.Error("render low stock table", zap.Error(err))
		return "", fmt.Errorf("render low stock table: %w", err)
	}
	return buf.String(), nil
}

func tableRows(items []models.InventoryItem) []tableRow {
	sorted := make([]models.InventoryItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Name < sorted[j].Name
	})

	rows := make([]tableRow, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, tableRow{
			Name:     item.Name,
			Category: item.Category,
			Location: item.Location,
			Quantity: formatQuantity(item.Quantity),
			Minimum:  formatQuantity(item.MinimumQuantity),
		})
	}
	return rows
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
