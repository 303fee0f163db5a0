package worker

import (
	"html/template"
	"io"
	"time"

	"github.com/hackhub/backend/internal/certificates"
)

var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Certificate of Participation - {{.EventTitle}}</title>
<style>
body { font-family: Georgia, serif; text-align: center; margin: 0; padding: 64px; }
.frame { border: 8px double #333; padding: 48px; }
h1 { font-size: 40px; margin-bottom: 8px; }
.name { font-size: 32px; font-weight: bold; margin: 24px 0; }
.code { font-family: monospace; color: #666; margin-top: 48px; }
</style>
</head>
<body>
<div class="frame">
<h1>Certificate of Participation</h1>
<p>This certifies that</p>
<p class="name">{{.RecipientName}}</p>
<p>took part in <strong>{{.EventTitle}}</strong>{{if .SubmissionTitle}} with the project <em>{{.SubmissionTitle}}</em>{{end}}.</p>
<p>Issued {{.IssuedOn}}</p>
<p class="code">Verification code: {{.Code}}</p>
</div>
</body>
</html>
`))

type certificateView struct {
	RecipientName   string
	EventTitle      string
	SubmissionTitle string
	IssuedOn        string
	Code            string
}

// Render writes the HTML certificate document.
func Render(w io.Writer, data *certificates.RenderData, issuedAt time.Time) error {
	return certificateTemplate.Execute(w, certificateView{
		RecipientName:   data.Certificate.RecipientName,
		EventTitle:      data.EventTitle,
		SubmissionTitle: data.SubmissionTitle,
		IssuedOn:        issuedAt.Format("January 2, 2006"),
		Code:            data.Certificate.Code,
	})
}
