package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"brhygiene/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ist is the timezone the business reads timestamps in.
var ist = time.FixedZone("IST", 5*60*60+30*60)

const localTimeLayout = "Monday, 2 January 2006 at 3:04 PM MST"

// Branding holds the public business details printed in emails.
type Branding struct {
	Name         string
	Phone        string
	Email        string
	Address      string
	ResponseTime string
}

// Rendered is one email in plain-text and HTML form.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Inquiry       *domain.Inquiry
	Business      Branding
	TypeLabel     string
	PhoneDial     string
	ReceivedUTC   string
	ReceivedLocal string
	ReplySubject  string
}

// Templates renders inquiry emails. Rendering depends only on the inquiry
// passed in and the branding fixed at construction.
type Templates struct {
	brand Branding
	text  *texttemplate.Template
	html  *htmltemplate.Template
}

// NewTemplates parses the embedded email templates.
func NewTemplates(brand Branding) (*Templates, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	return &Templates{brand: brand, text: text, html: html}, nil
}

// Operator renders the notification sent to the business operator. It
// carries every inquiry field, the identifier and the creation time.
func (t *Templates) Operator(inq *domain.Inquiry) (Rendered, error) {
	data := t.data(inq)
	subject := fmt.Sprintf("New Inquiry: %s - %s [%s]", data.TypeLabel, inq.Name, inq.ID)
	return t.render("operator", subject, data)
}

// Acknowledgement renders the receipt sent back to the submitter.
func (t *Templates) Acknowledgement(inq *domain.Inquiry) (Rendered, error) {
	data := t.data(inq)
	subject := fmt.Sprintf("We received your inquiry - %s", t.brand.Name)
	return t.render("acknowledgement", subject, data)
}

func (t *Templates) data(inq *domain.Inquiry) templateData {
	created := inq.CreatedAt.UTC()
	return templateData{
		Inquiry:       inq,
		Business:      t.brand,
		TypeLabel:     inq.TypeLabel(),
		PhoneDial:     strings.ReplaceAll(inq.Phone, " ", ""),
		ReceivedUTC:   created.Format(time.RFC3339),
		ReceivedLocal: created.In(ist).Format(localTimeLayout),
		ReplySubject:  fmt.Sprintf("Re: Your Inquiry - %s", t.brand.Name),
	}
}

func (t *Templates) render(name, subject string, data templateData) (Rendered, error) {
	var text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	if err := t.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}
	return Rendered{
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
