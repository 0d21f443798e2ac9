package notify

import (
	"bytes"
	"errors"
	"fmt"
	html_tpl "html/template"
	"strings"
	text_tpl "text/template"
)

// Message is a rendered operator email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

var textTpl = text_tpl.Must(text_tpl.New("assistance.txt").Funcs(text_tpl.FuncMap{"mapURL": MapURL}).Parse(`A submitter asked for help with a reported waste hotspot.

Report:    {{.ReportID}}
Severity:  {{.SeverityLevel}} / 5
Location:  {{printf "%.6f" .Coordinate.Lat}}, {{printf "%.6f" .Coordinate.Lng}}
Map:       {{mapURL .}}
Photo:     {{.ImageRef}}

Contact email: {{.ContactEmail}}
Contact phone: {{.ContactPhone}}
`))

var htmlTpl = html_tpl.Must(html_tpl.New("assistance.html").Funcs(html_tpl.FuncMap{"mapURL": MapURL}).Parse(`<p>A submitter asked for help with a reported waste hotspot.</p>
<ul>
<li>Report: {{.ReportID}}</li>
<li>Severity: {{.SeverityLevel}} / 5</li>
<li>Location: <a href="{{mapURL .}}">{{printf "%.6f" .Coordinate.Lat}}, {{printf "%.6f" .Coordinate.Lng}}</a></li>
<li>Photo: <a href="{{.ImageRef}}">{{.ImageRef}}</a></li>
<li>Contact email: {{.ContactEmail}}</li>
<li>Contact phone: {{.ContactPhone}}</li>
</ul>
<p><img src="{{.ImageRef}}" alt="reported hotspot" style="max-width:480px"></p>
`))

// MapURL links the report position on OpenStreetMap.
func MapURL(p Payload) string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=18/%.6f/%.6f",
		p.Coordinate.Lat, p.Coordinate.Lng, p.Coordinate.Lat, p.Coordinate.Lng)
}

// BuildMessage renders the operator message for p.
func BuildMessage(operator string, p Payload) (Message, error) {
	if strings.TrimSpace(operator) == "" {
		return Message{}, errors.New("no operator address configured")
	}

	var text, html bytes.Buffer
	if err := textTpl.Execute(&text, p); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTpl.Execute(&html, p); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}

	return Message{
		To:      operator,
		ReplyTo: p.ContactEmail,
		Subject: fmt.Sprintf("Assistance request: severity %d hotspot", p.SeverityLevel),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
