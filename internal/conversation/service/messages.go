package service

import (
	"fmt"
	"strconv"
	"strings"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
)

// Quick-reply ids.
const (
	replyYes = "yes"
	replyNo  = "no"

	maxListRows = 10
)

var yesNoButtons = []ports.Button{
	{ID: replyYes, Title: "Yes"},
	{ID: replyNo, Title: "No"},
}

const (
	msgApology          = "Sorry, something went wrong on our side. Let's start over: send any message to begin a new quote."
	msgFarewell         = "No problem. Message us any time you need packaging quoted. Have a great day!"
	msgYesNoReprompt    = "Please tap Yes or No."
	msgPricingFailed    = "Sorry, I couldn't get pricing right now. Tap Yes to try again or No to stop."
	msgPricingInputs    = "Sorry, part of this order can't be priced as selected. Please choose it again."
	msgPricingReprompt  = "Would you like me to price this order? Please tap Yes or No."
	msgDocumentPrompt   = "Would you like this quote as a PDF?"
	msgDocumentReprompt = "Would you like the PDF quote? Please tap Yes or No."
	msgDocumentCaption  = "Here is your quote. Thank you for choosing us!"
	msgDocumentFailed   = "Sorry, I couldn't create the PDF right now. The prices above remain valid. Thank you!"
	msgThanks           = "Thank you! Message us any time if you need anything else."
	msgCatalogEmpty     = "Sorry, our catalog is unavailable at the moment. Please try again a little later."
	msgQuantityPrompt   = "How many units would you like? You can send several quantities separated by commas, e.g. 1000, 2500, 5000."
	msgQuantityInvalid  = "Please send the quantity as a whole number, e.g. 5000."
	msgChooseButton     = "Choose"
)

func welcomeMessage(company, name string) string {
	greeting := "Hi"
	if name = strings.TrimSpace(name); name != "" {
		greeting += " " + name
	}
	return fmt.Sprintf("%s! Welcome to %s. I can put together a price quote for your custom packaging in a few quick steps. Would you like a quote?", greeting, company)
}

func withNotice(notice, body string) string {
	if notice == "" {
		return body
	}
	return notice + "\n\n" + body
}

func notFoundNotice(what, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return fmt.Sprintf("Sorry, I couldn't find a %s matching \"%s\".", what, strings.TrimSpace(text))
}

func categoryPrompt() string {
	return "Which type of packaging are you interested in? Pick one from the list or type its name."
}

func productPrompt(category string) string {
	return fmt.Sprintf("Great choice! Which %s product do you need? Pick one from the list or type its name.", category)
}

func materialPrompt(product string) string {
	return fmt.Sprintf("Which material would you like for your %s?", product)
}

func finishPrompt() string {
	return "Which finish would you like? You can pick one now and mention more in your next message."
}

func dimensionPrompt(od *domain.OrderData) string {
	product := od.SelectedProduct
	required := product.RequiredDimensions()
	missing := od.MissingDimensions()

	unit := ""
	if len(required) > 0 && required[0].Unit != "" {
		unit = " (" + required[0].Unit + ")"
	}
	names := make([]string, len(required))
	example := make([]string, len(required))
	for i, spec := range required {
		names[i] = spec.Name
		example[i] = strconv.Itoa(4 + 2*i)
	}

	if len(od.Dimensions) == 0 {
		return fmt.Sprintf("What size should your %s be? Please send %s%s, e.g. %s.",
			product.Name, strings.Join(names, " x "), unit, strings.Join(example, "x"))
	}

	have := make([]string, len(od.Dimensions))
	for i, d := range od.Dimensions {
		have[i] = fmt.Sprintf("%s=%s", d.Name, formatNumber(d.Value))
	}
	return fmt.Sprintf("I have %s. Please send %s%s to complete the size.",
		strings.Join(have, ", "), strings.Join(missing, " x "), unit)
}

func rangeNotice(product *domain.ProductRef, rejected []string) string {
	if len(rejected) == 0 {
		return ""
	}
	var parts []string
	for _, name := range rejected {
		for _, spec := range product.RequiredDimensions() {
			if spec.Name != name {
				continue
			}
			switch {
			case spec.Min != nil && spec.Max != nil:
				parts = append(parts, fmt.Sprintf("%s must be between %s and %s", name, formatNumber(*spec.Min), formatNumber(*spec.Max)))
			case spec.Min != nil:
				parts = append(parts, fmt.Sprintf("%s must be at least %s", name, formatNumber(*spec.Min)))
			case spec.Max != nil:
				parts = append(parts, fmt.Sprintf("%s must be at most %s", name, formatNumber(*spec.Max)))
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Sorry, that size is outside what we can produce: " + strings.Join(parts, "; ") + "."
}

func missingNotice(fields []string) string {
	return "Before I can prepare the quote I still need: " + strings.Join(fields, ", ") + "."
}

func quoteSummary(od *domain.OrderData) string {
	var b strings.Builder
	b.WriteString("Here is your order summary:\n")
	if od.SelectedCategory != nil {
		fmt.Fprintf(&b, "\nCategory: %s", od.SelectedCategory.Name)
	}
	fmt.Fprintf(&b, "\nProduct: %s", od.SelectedProduct.Name)
	if len(od.Dimensions) > 0 {
		dims := make([]string, len(od.Dimensions))
		for i, d := range od.Dimensions {
			dims[i] = fmt.Sprintf("%s %s", d.Name, formatNumber(d.Value))
		}
		fmt.Fprintf(&b, "\nSize: %s", strings.Join(dims, " x "))
	}
	fmt.Fprintf(&b, "\nMaterial: %s", od.SelectedMaterial.Name)
	fmt.Fprintf(&b, "\nFinish: %s", joinOptionNames(od.SelectedFinishes))
	fmt.Fprintf(&b, "\nQuantity: %s", joinQuantities(od.Quantities))
	b.WriteString("\n\nShall I get pricing for this order?")
	return b.String()
}

// formatPricingTable renders tiers as one line per quantity break.
func formatPricingTable(data *domain.PricingData, currency string) string {
	var b strings.Builder
	b.WriteString("Your pricing:\n")
	for _, tier := range data.Tiers {
		fmt.Fprintf(&b, "\n%s pcs: %s %s each, total %s %s",
			formatThousands(tier.Quantity), currency, formatMoney(tier.UnitCost), currency, formatMoney(tier.Total))
	}
	return b.String()
}

func optionRows(prefix string, options []domain.OptionRef) []ports.ListRow {
	rows := make([]ports.ListRow, 0, min(len(options), maxListRows))
	for _, o := range options {
		if len(rows) == maxListRows {
			break
		}
		rows = append(rows, ports.ListRow{ID: prefix + o.ID.String(), Title: o.Name})
	}
	return rows
}

func joinOptionNames(options []domain.OptionRef) string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	return strings.Join(names, ", ")
}

func joinQuantities(quantities []int) string {
	parts := make([]string, len(quantities))
	for i, q := range quantities {
		parts[i] = formatThousands(q)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
