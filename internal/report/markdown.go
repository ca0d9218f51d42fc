package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/hierarchy"
	"github.com/ginjaninja78/salesrecon/internal/summary"
)

// renderMarkdown writes the human-readable report.
func renderMarkdown(doc Document, options GenerateOptions) []byte {
	var buffer bytes.Buffer
	r := doc.Result

	fmt.Fprintf(&buffer, "# %s\n\n", escapeMarkdown(title(doc, options)))
	fmt.Fprintf(&buffer, "Run `%s`, generated %s", doc.RunID, doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if doc.Profile != "" {
		fmt.Fprintf(&buffer, ", profile `%s`", doc.Profile)
	}
	buffer.WriteString(".\n\n")

	// Summary
	buffer.WriteString("## Summary\n\n")
	writeTable(&buffer, []string{"Metric", "Value"}, [][]string{
		{"Total net sales", money(r.Summary.TotalNetSales)},
		{"Total net quantity", r.Summary.TotalNetQuantity.String()},
		{"Total net transactions", r.Summary.TotalNetTransactions.String()},
		{"Total discounted amount", money(r.Summary.TotalDiscountedAmount)},
		{"Total loss amount", money(r.Summary.TotalLossAmount)},
		{"Average transaction value", ratioMoney(r.Summary.AvgTransactionValue)},
		{"Discount rate", percent(r.Summary.DiscountRate)},
		{"Loss rate", percent(r.Summary.LossRate)},
	})

	// Categories
	buffer.WriteString("## Categories\n\n")
	rows := make([][]string, 0, len(r.Tree.Categories))
	for i := range r.Tree.Categories {
		c := &r.Tree.Categories[i]
		declared := "-"
		if c.Declared != nil {
			declared = money(c.Declared.NetAmount)
		}
		position := "-"
		if c.Position > 0 {
			position = fmt.Sprint(c.Position)
		}
		// Shares are in tree order; labels may repeat.
		share := summary.Undefined()
		if i < len(r.Shares) {
			share = r.Shares[i].Percent
		}
		rows = append(rows, []string{
			c.Label,
			position,
			declared,
			money(c.Computed.NetAmount),
			fmt.Sprint(len(c.Products)),
			share.String(),
		})
	}
	writeTable(&buffer, []string{"Category", "Row", "Declared net", "Computed net", "Products", "Share %"}, rows)

	if options.IncludeProducts {
		for i := range r.Tree.Categories {
			c := &r.Tree.Categories[i]
			if len(c.Products) == 0 {
				continue
			}
			fmt.Fprintf(&buffer, "### %s\n\n", escapeMarkdown(c.Label))
			prows := make([][]string, 0, len(c.Products))
			for _, p := range c.Products {
				prows = append(prows, []string{
					p.Label, p.ProductID, money(p.NetAmount), p.NetQuantity.String(), p.NetTransactions.String(),
				})
			}
			writeTable(&buffer, []string{"Product", "ID", "Net amount", "Net quantity", "Net transactions"}, prows)
		}
	}

	// Warnings
	buffer.WriteString("## Reconciliation warnings\n\n")
	if len(r.Warnings) == 0 {
		buffer.WriteString("None.\n\n")
	} else {
		writeTable(&buffer, []string{"Category", "Row", "Declared", "Computed", "Delta"}, warningRows(r.Warnings))
	}

	if len(r.GrandTotalChecks) > 0 {
		buffer.WriteString("## Grand totals\n\n")
		grows := make([][]string, 0, len(r.GrandTotalChecks))
		for _, g := range r.GrandTotalChecks {
			status := "ok"
			if !g.Matches {
				status = "mismatch"
			}
			grows = append(grows, []string{g.Label, fmt.Sprint(g.Row), money(g.Declared), money(g.Computed), money(g.Delta), status})
		}
		writeTable(&buffer, []string{"Label", "Row", "Declared", "Computed", "Delta", "Status"}, grows)
	}

	// Top products
	buffer.WriteString("## Top products\n\n")
	if len(r.TopProducts) == 0 {
		buffer.WriteString("None.\n\n")
	} else {
		trows := make([][]string, 0, len(r.TopProducts))
		for i, p := range r.TopProducts {
			trows = append(trows, []string{fmt.Sprint(i + 1), p.Label, p.ProductID, money(p.NetAmount), p.NetQuantity.String()})
		}
		writeTable(&buffer, []string{"#", "Product", "ID", "Net amount", "Net quantity"}, trows)
	}

	// Data quality
	buffer.WriteString("## Data quality\n\n")
	fmt.Fprintf(&buffer, "%d row(s) read, %d blank row(s) dropped, %d categories, %d products.\n\n",
		r.Stats.RowsRead, r.Stats.RowsDropped, r.Stats.Categories, r.Stats.Products)

	if cols := r.CoercionFailures.Columns(); len(cols) > 0 {
		crows := make([][]string, 0, len(cols))
		for _, col := range cols {
			crows = append(crows, []string{col, fmt.Sprint(r.CoercionFailures[col])})
		}
		writeTable(&buffer, []string{"Column", "Unreadable cells"}, crows)
	}

	if r.Audit != nil && len(r.Audit.Errors) > 0 {
		for _, e := range r.Audit.Errors {
			fmt.Fprintf(&buffer, "- %s\n", escapeMarkdown(e.Error()))
		}
		buffer.WriteString("\n")
	}

	return buffer.Bytes()
}

func warningRows(warnings []hierarchy.ReconciliationWarning) [][]string {
	rows := make([][]string, 0, len(warnings))
	for _, w := range warnings {
		rows = append(rows, []string{w.Category, fmt.Sprint(w.Row), money(w.Declared), money(w.Computed), money(w.Delta)})
	}
	return rows
}

// writeTable writes a GFM table. An empty table is written as "None.".
func writeTable(buffer *bytes.Buffer, header []string, rows [][]string) {
	if len(rows) == 0 {
		buffer.WriteString("None.\n\n")
		return
	}

	buffer.WriteString("|")
	for _, h := range header {
		buffer.WriteString(" " + escapeMarkdown(h) + " |")
	}
	buffer.WriteString("\n|")
	for i := range header {
		if i == 0 {
			buffer.WriteString(" --- |")
		} else {
			buffer.WriteString(" ---: |")
		}
	}
	buffer.WriteString("\n")

	for _, row := range rows {
		buffer.WriteString("|")
		for _, cell := range row {
			buffer.WriteString(" " + escapeMarkdown(cell) + " |")
		}
		buffer.WriteString("\n")
	}
	buffer.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	"<", "&lt;",
	">", "&gt;",
	"\n", " ",
)

// escapeMarkdown makes label text safe inside table cells and headings.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func ratioMoney(r summary.Ratio) string {
	v, ok := r.Value()
	if !ok {
		return r.String()
	}
	return money(v)
}

func percent(r summary.Ratio) string {
	p := r.Percent()
	v, ok := p.Value()
	if !ok {
		return p.String()
	}
	return v.StringFixed(2) + "%"
}
