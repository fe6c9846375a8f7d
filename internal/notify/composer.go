// Package notify turns transfer request events into emails for the
// warehouse staff in the receive_mail group.
package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
	_ "time/tzdata"

	"github.com/shopstock/stock-backend/pkg/messaging"
)

// Subject is the subject line of every transfer request email.
const Subject = "[STOCK MANAGEMENT] A transfer request been placed."

const placedAtLayout = "02 Jan 2006 15:04:05 MST"

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`Stock Transfer Request

The following order has been placed by {{.Username}} [{{.Email}}] on {{.PlacedAt}}.
{{range .Records}}
Stock Order Details:
  - SKU: {{.SKU}}
  - Description: {{.Description}}
  - Units transferred: {{.Quantity}}
  - Unit price: {{.RetailPrice}}
{{end}}`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html><head></head><body>
<h1>Stock Transfer Request</h1>
<p>The following order has been placed by {{.Username}} [<a href="mailto:{{.Email}}">{{.Email}}</a>] on {{.PlacedAt}}.</p>
{{range .Records}}<h2>Stock Order Details</h2>
<ul>
<li>SKU: {{.SKU}}</li>
<li>Description: {{.Description}}</li>
<li>Units transferred: {{.Quantity}}</li>
<li>Unit price: {{.RetailPrice}}</li>
</ul>
{{end}}<br/><hr/><br/>
</body><footer><hr></footer></html>
`))

// Message is a composed email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Composer renders transfer request emails. Times are shown in its
// location.
type Composer struct {
	location *time.Location
}

// NewComposer creates a composer. A nil location means UTC.
func NewComposer(loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{location: loc}
}

// Compose renders ev.
func (c *Composer) Compose(ev messaging.TransferRequestedEvent) (Message, error) {
	view := struct {
		messaging.TransferRequestedEvent
		PlacedAt string
	}{ev, ev.RequestedAt.In(c.location).Format(placedAtLayout)}

	var text, html bytes.Buffer
	if err := textBody.Execute(&text, view); err != nil {
		return Message{}, err
	}
	if err := htmlBody.Execute(&html, view); err != nil {
		return Message{}, err
	}
	return Message{
		Subject: Subject,
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}
