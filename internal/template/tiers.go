package template

import htmltemplate "html/template"

// richTemplate is the full-fidelity document: header/footer bands, logo,
// CTA button, two-color theme.
var richTemplate = htmltemplate.Must(htmltemplate.New("rich").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Helvetica,Arial,sans-serif;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;overflow:hidden;">
<tr>
<td style="background:linear-gradient(135deg,{{.Accent}},{{.AccentDark}});padding:28px 32px;" align="left">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.CompanyName}}" height="40" style="display:block;border:0;max-height:40px;">
{{else}}<span style="color:#ffffff;font-size:22px;font-weight:bold;">{{.CompanyName}}</span>{{end}}
</td>
</tr>
<tr>
<td style="padding:32px;">
<h1 style="margin:0 0 20px 0;font-size:20px;color:#1f2933;">{{.Subject}}</h1>
{{range .Paragraphs}}<p style="margin:0 0 16px 0;font-size:15px;line-height:1.6;color:#3e4c59;">{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{end}}<table role="presentation" cellpadding="0" cellspacing="0" style="margin:28px 0;">
<tr><td style="border-radius:6px;background-color:{{.Accent}};">
<a href="{{.Link}}" style="display:inline-block;padding:13px 28px;font-size:15px;font-weight:bold;color:#ffffff;text-decoration:none;">View Proposal</a>
</td></tr>
</table>
<p style="margin:24px 0 0 0;font-size:14px;color:#3e4c59;">Best regards,</p>
<p style="margin:4px 0 0 0;font-size:14px;color:#1f2933;"><strong>{{.SenderName}}</strong><br>{{.SenderTitle}}, {{.CompanyName}}</p>
{{if .ReplyTo}}<p style="margin:4px 0 0 0;font-size:13px;color:#52606d;"><a href="mailto:{{.ReplyTo}}" style="color:{{.AccentDark}};">{{.ReplyTo}}</a></p>{{end}}
</td>
</tr>
<tr>
<td style="background-color:{{.AccentDark}};padding:20px 32px;" align="center">
<p style="margin:0;font-size:12px;color:#ffffff;">{{.CompanyName}}{{if .Address}} &middot; {{.Address}}{{end}}</p>
{{if .Website}}<p style="margin:6px 0 0 0;font-size:12px;"><a href="{{.Website}}" style="color:#ffffff;">{{.Website}}</a></p>{{end}}
</td>
</tr>
</table>
</td></tr>
</table>
</body>
</html>
`))

// compatibleTemplate carries the same content with a layout chosen for
// stricter rendering engines: no gradients, no border-radius tricks, single
// table, inline-friendly styles.
var compatibleTemplate = htmltemplate.Must(htmltemplate.New("compatible").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#ffffff;font-family:Arial,sans-serif;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" align="center" border="0">
<tr>
<td style="background-color:{{.Accent}};padding:18px 24px;">
<span style="color:#ffffff;font-size:18px;font-weight:bold;">{{.CompanyName}}</span>
</td>
</tr>
<tr>
<td style="padding:24px;">
<h2 style="margin:0 0 16px 0;font-size:18px;color:#222222;">{{.Subject}}</h2>
{{range .Paragraphs}}<p style="margin:0 0 14px 0;font-size:14px;line-height:1.5;color:#333333;">{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{end}}<p style="margin:20px 0;font-size:14px;"><a href="{{.Link}}" style="color:{{.AccentDark}};font-weight:bold;">View the proposal here</a></p>
<p style="margin:20px 0 0 0;font-size:14px;color:#333333;">Best regards,<br><strong>{{.SenderName}}</strong><br>{{.SenderTitle}}, {{.CompanyName}}</p>
{{if .ReplyTo}}<p style="margin:6px 0 0 0;font-size:13px;color:#555555;">Reply to: {{.ReplyTo}}</p>{{end}}
</td>
</tr>
<tr>
<td style="padding:16px 24px;border-top:1px solid #dddddd;">
<p style="margin:0;font-size:11px;color:#777777;">{{.CompanyName}}{{if .Address}}, {{.Address}}{{end}}{{if .Website}} &middot; {{.Website}}{{end}}</p>
</td>
</tr>
</table>
</body>
</html>
`))

// ultraSimpleTemplate is the last-resort escalation: plain paragraphs and a
// bare link, nothing a content filter can object to.
var ultraSimpleTemplate = htmltemplate.Must(htmltemplate.New("ultra").Parse(`<html>
<body>
{{range .Paragraphs}}<p>{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{end}}<p>View the proposal: <a href="{{.Link}}">{{.Link}}</a></p>
<p>{{.SenderName}}<br>{{.SenderTitle}}, {{.CompanyName}}{{if .ReplyTo}}<br>{{.ReplyTo}}{{end}}</p>
</body>
</html>
`))
