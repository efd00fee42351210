package printing

import (
	"context"
	"errors"
	"html/template"
	"time"

	tradeapp "github.com/fxoffice/backend/internal/application/trade"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"go.uber.org/zap"
)

var _ tradeapp.ReceiptRenderer = (*ReceiptRenderer)(nil)

// ReceiptRendererConfig configures receipt output
type ReceiptRendererConfig struct {
	Locale   string
	Location *time.Location
	Timeout  time.Duration
	Logger   *zap.Logger
}

// ReceiptRenderer renders order receipts as HTML, and as PDF when a PDF renderer is set
type ReceiptRenderer struct {
	engine  *TemplateEngine
	tmpl    *template.Template
	pdf     PDFRenderer
	timeout time.Duration
	logger  *zap.Logger
}

// NewReceiptRenderer parses the receipt template. pdf may be nil, in which case
// PDF requests fail with PDF_UNAVAILABLE.
func NewReceiptRenderer(cfg ReceiptRendererConfig, pdf PDFRenderer) (*ReceiptRenderer, error) {
	engine := NewTemplateEngine(cfg.Locale, WithLocation(cfg.Location))
	tmpl, err := engine.Parse("receipt", receiptTemplate)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptRenderer{
		engine:  engine,
		tmpl:    tmpl,
		pdf:     pdf,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Render produces the receipt document in the requested format
func (r *ReceiptRenderer) Render(ctx context.Context, format trade.ReceiptFormat, receipt trade.Receipt) ([]byte, error) {
	html, err := r.engine.Execute(r.tmpl, receipt)
	if err != nil {
		return nil, err
	}

	switch format {
	case trade.ReceiptFormatHTML:
		return []byte(html), nil
	case trade.ReceiptFormatPDF:
		if r.pdf == nil {
			return nil, shared.NewDomainError("PDF_UNAVAILABLE", "PDF receipts are not enabled")
		}
		result, err := r.pdf.Render(ctx, &RenderRequest{
			HTML:         html,
			Title:        receipt.OrderNumber,
			PaperWidthMM: defaultPaperWidthMM,
			MarginMM:     4,
			Timeout:      r.timeout,
		})
		if err != nil {
			r.logger.Warn("receipt PDF rendering failed",
				zap.String("order_number", receipt.OrderNumber),
				zap.Error(err))
			var re *RenderError
			if errors.As(err, &re) && re.Code == ErrCodeRenderTimeout {
				return nil, shared.NewDomainError(shared.ErrExternalService.Code, "Receipt PDF rendering timed out")
			}
			return nil, shared.NewDomainError(shared.ErrExternalService.Code, "Receipt PDF rendering failed")
		}
		return result.PDFData, nil
	default:
		return nil, shared.NewDomainError("INVALID_FORMAT", "Receipt format must be html or pdf")
	}
}

// Close releases the PDF renderer
func (r *ReceiptRenderer) Close() error {
	if r.pdf == nil {
		return nil
	}
	return r.pdf.Close()
}
