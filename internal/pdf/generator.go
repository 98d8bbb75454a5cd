// Package pdf renders priced quotes as PDF documents using maroto/v2.
package pdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ── Colour palette ──────────────────────────────────────────────────────

var (
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}    // near-black
	colorSecondary = &props.Color{Red: 107, Green: 114, Blue: 128} // gray-500
	colorAccent    = &props.Color{Red: 37, Green: 99, Blue: 235}   // blue-600
	colorTableHead = &props.Color{Red: 241, Green: 245, Blue: 249} // slate-100
	colorTableAlt  = &props.Color{Red: 249, Green: 250, Blue: 251} // gray-50
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240} // slate-200
)

var printer = message.NewPrinter(language.English)

// ── Data struct ─────────────────────────────────────────────────────────

// Dimension is one measured value of the product.
type Dimension struct {
	Name  string
	Value float64
	Unit  string
}

// Tier is one priced quantity break.
type Tier struct {
	Quantity int
	UnitCost float64
	Total    float64
}

// QuoteData holds everything printed on a quote document.
type QuoteData struct {
	QuoteNumber string
	CreatedAt   time.Time
	ValidUntil  *time.Time
	Currency    string

	CompanyName   string
	CustomerName  string
	CustomerPhone string

	Category   string
	Product    string
	Material   string
	Finishes   []string
	Dimensions []Dimension
	Tiers      []Tier
}

// GenerateQuotePDF creates the PDF document for a priced quote.
func GenerateQuotePDF(data QuoteData) ([]byte, error) {
	if len(data.Tiers) == 0 {
		return nil, fmt.Errorf("quote %s has no price tiers", data.QuoteNumber)
	}

	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	if err := m.RegisterFooter(buildFooter(data)); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(buildHeader(data)...)
	m.AddRows(separator())
	m.AddRows(row.New(6))

	m.AddRows(buildPartiesBlock(data)...)
	m.AddRows(row.New(6))

	m.AddRows(buildSpecificationTable(data)...)
	m.AddRows(row.New(6))

	m.AddRows(buildPriceTable(data)...)

	m.AddRows(row.New(8))
	m.AddRows(buildTerms(data)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

// ── Header ──────────────────────────────────────────────────────────────

func buildHeader(data QuoteData) []core.Row {
	return []core.Row{
		row.New(20).Add(
			col.New(6).Add(text.New(data.CompanyName, props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Color: colorPrimary,
				Top:   4,
			})),
			col.New(6).Add(
				text.New("QUOTE", props.Text{
					Size:  24,
					Style: fontstyle.Bold,
					Align: align.Right,
					Color: colorAccent,
				}),
				text.New(data.QuoteNumber, props.Text{
					Size:  11,
					Align: align.Right,
					Color: colorSecondary,
					Top:   12,
				}),
			),
		),
	}
}

// ── Parties ─────────────────────────────────────────────────────────────

func buildPartiesBlock(data QuoteData) []core.Row {
	label := props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent}
	labelRight := props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent, Align: align.Right}
	meta := props.Text{Size: 8, Color: colorSecondary, Align: align.Right}

	validity := ""
	if data.ValidUntil != nil {
		validity = "Valid until: " + data.ValidUntil.Format("2006-01-02")
	}
	customer := data.CustomerName
	if customer == "" {
		customer = "WhatsApp customer"
	}

	return []core.Row{
		row.New(5).Add(
			col.New(8).Add(text.New("PREPARED FOR", label)),
			col.New(4).Add(text.New("QUOTE DETAILS", labelRight)),
		),
		row.New(5).Add(
			col.New(8).Add(text.New(customer, props.Text{Size: 9, Style: fontstyle.Bold, Color: colorPrimary})),
			col.New(4).Add(text.New("Date: "+data.CreatedAt.Format("2006-01-02"), meta)),
		),
		row.New(5).Add(
			col.New(8).Add(text.New(data.CustomerPhone, props.Text{Size: 8, Color: colorSecondary})),
			col.New(4).Add(text.New(validity, meta)),
		),
	}
}

// ── Specification ───────────────────────────────────────────────────────

func buildSpecificationTable(data QuoteData) []core.Row {
	rows := []core.Row{sectionTitle("SPECIFICATION")}

	lines := [][2]string{
		{"Category", data.Category},
		{"Product", data.Product},
		{"Dimensions", formatDimensions(data.Dimensions)},
		{"Material", data.Material},
		{"Finishes", strings.Join(data.Finishes, ", ")},
	}

	for i, line := range lines {
		r := row.New(7).Add(
			col.New(3).Add(text.New(line[0], props.Text{Size: 8, Style: fontstyle.Bold, Color: colorSecondary, Top: 1})),
			col.New(9).Add(text.New(line[1], props.Text{Size: 8, Color: colorPrimary, Top: 1})),
		)
		if i%2 == 0 {
			r.WithStyle(&props.Cell{BackgroundColor: colorTableAlt})
		}
		rows = append(rows, r)
	}
	return rows
}

// ── Prices ──────────────────────────────────────────────────────────────

func buildPriceTable(data QuoteData) []core.Row {
	rows := []core.Row{sectionTitle("PRICING")}

	header := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Top: 1.5}
	headerRight := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Align: align.Right, Top: 1.5}
	rows = append(rows, row.New(7).Add(
		col.New(4).Add(text.New("Quantity", header)),
		col.New(4).Add(text.New("Unit price", headerRight)),
		col.New(4).Add(text.New("Total", headerRight)),
	).WithStyle(&props.Cell{
		BackgroundColor: colorTableHead,
		BorderType:      border.Bottom,
		BorderColor:     colorBorder,
	}))

	normal := props.Text{Size: 8, Color: colorPrimary, Top: 1}
	right := props.Text{Size: 8, Color: colorPrimary, Align: align.Right, Top: 1}
	for i, tier := range data.Tiers {
		r := row.New(7).Add(
			col.New(4).Add(text.New(FormatQuantity(tier.Quantity)+" pcs", normal)),
			col.New(4).Add(text.New(FormatUnitPrice(data.Currency, tier.UnitCost), right)),
			col.New(4).Add(text.New(FormatAmount(data.Currency, tier.Total), right)),
		)
		if i%2 == 0 {
			r.WithStyle(&props.Cell{BackgroundColor: colorTableAlt})
		}
		rows = append(rows, r)
	}
	return rows
}

// ── Terms ───────────────────────────────────────────────────────────────

func buildTerms(data QuoteData) []core.Row {
	terms := []string{
		"1.  Prices exclude taxes and shipping unless stated otherwise.",
		"2.  Final pricing is subject to artwork approval and material availability.",
	}
	if data.ValidUntil != nil {
		terms = append(terms, "3.  This quote is valid until "+data.ValidUntil.Format("2 January 2006")+".")
	}

	rows := []core.Row{
		separator(),
		row.New(3),
		row.New(5).Add(col.New(12).Add(text.New("TERMS", props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent}))),
	}
	for _, term := range terms {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(term, props.Text{Size: 7, Color: colorSecondary}))))
	}
	return rows
}

// ── Footer (registered — repeats on every page) ─────────────────────────

func buildFooter(data QuoteData) core.Row {
	footer := data.CompanyName + "  ·  " + data.QuoteNumber
	return row.New(10).Add(
		col.New(12).Add(text.New(footer, props.Text{
			Size:  6.5,
			Color: colorSecondary,
			Align: align.Center,
			Top:   4,
		})),
	).WithStyle(&props.Cell{
		BorderType:  border.Top,
		BorderColor: colorBorder,
	})
}

// ── Helpers ─────────────────────────────────────────────────────────────

func sectionTitle(title string) core.Row {
	return row.New(7).Add(col.New(12).Add(text.New(title, props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Color: colorAccent,
	})))
}

func separator() core.Row {
	return row.New(1).WithStyle(&props.Cell{
		BorderType:  border.Bottom,
		BorderColor: colorBorder,
	})
}

func formatDimensions(dims []Dimension) string {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		v := printer.Sprintf("%v", d.Value)
		if d.Unit != "" {
			v += " " + d.Unit
		}
		parts = append(parts, d.Name+": "+v)
	}
	return strings.Join(parts, "  ×  ")
}

// FormatQuantity renders n with thousands separators.
func FormatQuantity(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatAmount renders a money amount with two decimals.
func FormatAmount(currency string, v float64) string {
	return strings.TrimSpace(currency + " " + printer.Sprintf("%.2f", v))
}

// FormatUnitPrice keeps up to four decimals, as unit costs are often
// fractions of a cent.
func FormatUnitPrice(currency string, v float64) string {
	s := printer.Sprintf("%.4f", v)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = strings.TrimRight(s, "0")
		if len(s)-i-1 < 2 {
			s += strings.Repeat("0", 2-(len(s)-i-1))
		}
	}
	return strings.TrimSpace(currency + " " + s)
}
