// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/cart-backend/internal/config"
	"github.com/your-org/cart-backend/internal/domain/cart"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
	tmpl   *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("quote").Parse(quoteTemplate)),
	}
}

// QuoteData represents the data passed to the quote template
type QuoteData struct {
	QuoteNumber string
	QuoteDate   string
	Quote       *cart.Quote
	Company     CompanyInfo
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Email   string
	Website string
}

// GenerateCartQuote renders the quote as a PDF document
func (s *Service) GenerateCartQuote(quote *cart.Quote) (*bytes.Buffer, error) {
	htmlContent, err := s.GenerateHTML(quote)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// GenerateHTML renders the quote template
func (s *Service) GenerateHTML(quote *cart.Quote) (string, error) {
	data := QuoteData{
		QuoteNumber: QuoteNumber(quote),
		QuoteDate:   quote.GeneratedAt.Format("January 2, 2006"),
		Quote:       quote,
		Company: CompanyInfo{
			Name:    s.config.PDF.CompanyName,
			Email:   s.config.PDF.CompanyEmail,
			Website: s.config.PDF.CompanyWebsite,
		},
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// QuoteNumber derives a stable, human readable reference for a quote
func QuoteNumber(quote *cart.Quote) string {
	id := quote.CartID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Q-%s-%s", quote.GeneratedAt.Format("20060102"), id)
}

const quoteTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Quote {{.QuoteNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .title { font-size: 28px; font-weight: bold; color: #2563eb; }
        table.items { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        table.items th { background-color: #f8f9fa; padding: 10px; text-align: left; border-bottom: 2px solid #dee2e6; }
        table.items td { padding: 10px; border-bottom: 1px solid #dee2e6; }
        .right { text-align: right; }
        .totals { float: right; width: 300px; }
        .totals td { padding: 6px 0; }
        .grand-total { font-weight: bold; font-size: 18px; border-top: 2px solid #333; }
        .footer { clear: both; margin-top: 50px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <div class="title">QUOTE</div>
        <div><strong>{{.Company.Name}}</strong></div>
        <div>{{.Company.Email}} · {{.Company.Website}}</div>
        <div>Quote #: {{.QuoteNumber}}</div>
        <div>Date: {{.QuoteDate}}</div>
    </div>

    <table class="items">
        <thead>
            <tr>
                <th>Item</th>
                <th class="right">Qty</th>
                <th class="right">Unit price</th>
                <th class="right">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Quote.Lines}}
            <tr>
                <td>{{.Name}}</td>
                <td class="right">{{.Quantity}}</td>
                <td class="right">{{.UnitPrice.StringFixed 2}}</td>
                <td class="right">{{.LineTotal.StringFixed 2}}</td>
            </tr>
            {{else}}
            <tr><td colspan="4">Your cart is empty.</td></tr>
            {{end}}
        </tbody>
    </table>

    <table class="totals">
        <tr><td>Items:</td><td class="right">{{.Quote.ItemCount}}</td></tr>
        <tr><td>Subtotal:</td><td class="right">{{.Quote.Subtotal.StringFixed 2}}</td></tr>
        {{if .Quote.DiscountCode}}
        <tr><td>Discount ({{.Quote.DiscountCode}}):</td><td class="right">-{{.Quote.DiscountAmount.StringFixed 2}}</td></tr>
        {{end}}
        <tr class="grand-total"><td>Total:</td><td class="right">{{.Quote.Total.StringFixed 2}}</td></tr>
    </table>

    <div class="footer">
        Prices are taken from the current catalogue and may change until checkout.
    </div>
</body>
</html>
`
