package report

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sacsol/sacsol-api/internal/procurement"
)

// CompanyInfo carries the letterhead details printed on documents.
type CompanyInfo struct {
	Name    string
	Email   string
	Phone   string
	SiteURL string
}

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// LPORenderer builds the printable purchase order document.
type LPORenderer struct {
	client  HTMLRenderer
	company CompanyInfo
}

// NewLPORenderer constructs the renderer.
func NewLPORenderer(client HTMLRenderer, company CompanyInfo) *LPORenderer {
	return &LPORenderer{client: client, company: company}
}

var moneyPrinter = message.NewPrinter(language.English)

func formatMoney(d decimal.Decimal) string {
	return moneyPrinter.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

func formatQty(d decimal.Decimal) string {
	return d.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006")
}

var lpoTemplate = template.Must(template.New("lpo").Funcs(template.FuncMap{
	"money": formatMoney,
	"qty":   formatQty,
	"date":  formatDate,
	"inc":   func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Order.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 32px; }
h1 { font-size: 20px; margin-bottom: 0; }
.meta { color: #555; margin-bottom: 24px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: left; }
th { background: #f2f2f2; }
td.num, th.num { text-align: right; }
.totals { margin-top: 16px; width: 40%; margin-left: auto; }
.totals td { border: none; padding: 4px 8px; }
.totals tr.grand td { border-top: 2px solid #1a1a1a; font-weight: bold; }
.footer { margin-top: 48px; color: #777; font-size: 10px; }
</style>
</head>
<body>
<h1>{{.Company.Name}}</h1>
<div class="meta">{{.Company.Email}} &middot; {{.Company.Phone}} &middot; {{.Company.SiteURL}}</div>

<h2>Local Purchase Order {{.Order.Number}}</h2>
<p>
Supplier: <strong>{{.Supplier.Name}}</strong> ({{.Supplier.Code}})<br>
{{if .Supplier.Address}}{{.Supplier.Address}}<br>{{end}}
{{if .Supplier.ContactPerson}}Attn: {{.Supplier.ContactPerson}}<br>{{end}}
Date: {{date .Order.CreatedAt}}<br>
{{if not .Order.ExpectedDeliveryDate.IsZero}}Expected delivery: {{date .Order.ExpectedDeliveryDate}}<br>{{end}}
{{if .Order.DeliveryAddress}}Deliver to: {{.Order.DeliveryAddress}}<br>{{end}}
{{if .Order.PaymentTerms}}Payment terms: {{.Order.PaymentTerms}}{{end}}
</p>

<table>
<tr><th>#</th><th>Description</th><th class="num">Qty</th><th class="num">Unit Price ({{.Order.Currency}})</th><th class="num">Line Total ({{.Order.Currency}})</th></tr>
{{range $i, $item := .Items}}
<tr>
<td>{{inc $i}}</td>
<td>{{$item.Description}}</td>
<td class="num">{{qty $item.Qty}}</td>
<td class="num">{{money $item.UnitPrice}}</td>
<td class="num">{{money $item.LineTotal}}</td>
</tr>
{{end}}
</table>

<table class="totals">
<tr><td>Subtotal</td><td class="num">{{money .Order.Subtotal}}</td></tr>
{{if not .Order.TaxAmount.IsZero}}<tr><td>Tax</td><td class="num">{{money .Order.TaxAmount}}</td></tr>{{end}}
{{if not .Order.DiscountAmount.IsZero}}<tr><td>Discount</td><td class="num">-{{money .Order.DiscountAmount}}</td></tr>{{end}}
<tr class="grand"><td>Grand Total ({{.Order.Currency}})</td><td class="num">{{money .Order.GrandTotal}}</td></tr>
</table>

<div class="footer">Generated by {{.Company.Name}}. This order is valid only when approved.</div>
</body>
</html>`))

type lpoDocument struct {
	Company  CompanyInfo
	Order    procurement.LPO
	Items    []procurement.LPOItem
	Supplier procurement.Supplier
}

// BuildHTML renders the order document as HTML.
func (r *LPORenderer) BuildHTML(order procurement.LPO, items []procurement.LPOItem, supplier procurement.Supplier) (string, error) {
	var buf bytes.Buffer
	err := lpoTemplate.Execute(&buf, lpoDocument{
		Company:  r.company,
		Order:    order,
		Items:    items,
		Supplier: supplier,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderLPO implements the procurement renderer contract.
func (r *LPORenderer) RenderLPO(ctx context.Context, order procurement.LPO, items []procurement.LPOItem, supplier procurement.Supplier) ([]byte, error) {
	html, err := r.BuildHTML(order, items, supplier)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}
