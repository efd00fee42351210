// Package printing renders order receipts.
//
// HTML is produced from an embedded html/template with locale-aware number
// formatting. PDF output prints that HTML through headless Chrome (chromedp)
// on 80mm receipt paper.
//
//	pdf, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{NoSandbox: true})
//	renderer, err := printing.NewReceiptRenderer(printing.ReceiptRendererConfig{Locale: "en"}, pdf)
//	doc, err := renderer.Render(ctx, trade.ReceiptFormatPDF, receipt)
package printing
