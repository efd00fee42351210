package printing

// receiptTemplate is laid out for 80mm receipt paper
const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.OrderNumber}}</title>
<style>
  body { font-family: "DejaVu Sans Mono", monospace; font-size: 11px; width: 72mm; margin: 0 auto; }
  h1 { font-size: 14px; text-align: center; margin: 0 0 2px; }
  .center { text-align: center; }
  .muted { color: #555; }
  hr { border: 0; border-top: 1px dashed #000; margin: 6px 0; }
  table { width: 100%; border-collapse: collapse; }
  td.r { text-align: right; }
  .big td { font-size: 13px; font-weight: bold; }
  .status { text-align: center; font-weight: bold; letter-spacing: 1px; }
</style>
</head>
<body>
  <h1>{{.OrganizationName}}</h1>
  {{- if .RepositoryName}}<div class="center muted">{{.RepositoryName}}</div>{{end}}
  <hr>
  <table>
    <tr><td>Order</td><td class="r">{{.OrderNumber}}</td></tr>
    <tr><td>Issued</td><td class="r">{{formatDateTime .IssuedAt}}</td></tr>
    {{- if .CompletedAt}}
    <tr><td>Completed</td><td class="r">{{formatDateTime .CompletedAt}}</td></tr>
    {{- end}}
    <tr><td>Type</td><td class="r">{{statusText .Side}}</td></tr>
    {{- if .CustomerName}}
    <tr><td>Customer</td><td class="r">{{.CustomerName}}</td></tr>
    {{- end}}
  </table>
  <hr>
  <table class="big">
    <tr><td>Received</td><td class="r">{{formatAmount .InputAmount .FromDecimals}} {{.FromCurrency}}</td></tr>
    <tr><td>Paid out</td><td class="r">{{formatAmount .OutputAmount .ToDecimals}} {{.ToCurrency}}</td></tr>
  </table>
  <table>
    <tr><td>Rate</td><td class="r">1 {{.FromCurrency}} = {{formatRate .QuotedRate}} {{.ToCurrency}}</td></tr>
  </table>
  <hr>
  <div class="status">{{statusText .Status}}</div>
</body>
</html>
`
