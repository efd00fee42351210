package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// TemplateEngine renders HTML templates with locale-aware formatting functions
type TemplateEngine struct {
	tag     language.Tag
	printer *message.Printer
	loc     *time.Location
	funcMap template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithLocation sets the time zone dates are printed in
func WithLocation(loc *time.Location) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewTemplateEngine creates a template engine for a BCP 47 locale such as "en" or "de-CH".
// Unknown locales fall back to English.
func NewTemplateEngine(locale string, opts ...TemplateEngineOption) *TemplateEngine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	e := &TemplateEngine{
		tag:     tag,
		printer: message.NewPrinter(tag),
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.funcMap = template.FuncMap{
		"formatAmount":   e.formatAmount,
		"formatRate":     e.formatRate,
		"formatDateTime": e.formatDateTime,
		"statusText":     e.statusText,
		"upper":          strings.ToUpper,
	}
	return e
}

// Parse compiles a named template with the engine's functions
func (e *TemplateEngine) Parse(name, content string) (*template.Template, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}
	return tmpl, nil
}

// Execute renders a parsed template
func (e *TemplateEngine) Execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// formatAmount prints an amount with exactly places fraction digits and locale grouping,
// e.g. 1234.5 with 2 places is "1,234.50" in English and "1.234,50" in German
func (e *TemplateEngine) formatAmount(d decimal.Decimal, places int) string {
	if places < 0 {
		places = 0
	}
	f := d.Round(int32(places)).InexactFloat64()
	return e.printer.Sprint(number.Decimal(f, number.MinFractionDigits(places), number.MaxFractionDigits(places)))
}

// formatRate prints a rate without trailing zeros, keeping up to 8 fraction digits
func (e *TemplateEngine) formatRate(d decimal.Decimal) string {
	f := d.Round(8).InexactFloat64()
	return e.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(8)))
}

func (e *TemplateEngine) formatDateTime(v any) string {
	var t time.Time
	switch tv := v.(type) {
	case time.Time:
		t = tv
	case *time.Time:
		if tv == nil {
			return ""
		}
		t = *tv
	default:
		return fmt.Sprint(v)
	}
	if t.IsZero() {
		return ""
	}
	return t.In(e.loc).Format("2006-01-02 15:04 MST")
}

// statusText turns QUOTE or FLOAT_OPEN_COMPLETE into "Quote" or "Float Open Complete"
func (e *TemplateEngine) statusText(v any) string {
	s := strings.ReplaceAll(strings.ToLower(fmt.Sprint(v)), "_", " ")
	return cases.Title(e.tag).String(s)
}
