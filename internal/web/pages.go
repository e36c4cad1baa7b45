// Package web renders the themed HTML pages shown at every terminal state of
// the linking flow.
//
// The core computes an outcome classification; this package only turns a
// [Page] description into HTML. Raw provider errors never reach a template.
package web

import (
	"fmt"
	"html/template"
	"net/http"
	"time"
)

const (
	// Default palette for pages that do not override their colors.
	defaultHeaderColor  = "#8be9fd"
	defaultMessageColor = "#50fa7b"

	// Seconds before a success page bounces the user back to Patreon.
	redirectDelaySeconds = 10
)

const pageTemplate = `<html>
<head>
  <meta charset="utf-8">
  {{if .RedirectTo}}<meta http-equiv="refresh" content="{{.RedirectDelay}};url={{.RedirectTo}}">{{end}}
  <title>{{.Title}}</title>
  <style>
    body { background: #181818; color: #f8f8f2; font-family: 'Fira Mono', 'Consolas', 'Menlo', monospace; margin: 0; padding: 2em; }
    .message-header { color: {{.HeaderColor}}; text-align: center; }
    .message-body { margin: 0 auto; color: {{.MessageColor}}; text-align: center; }
    .redirect-message { color: #ff79c6; font-size: 0.9em; text-align: center; }
    .footer { margin-top: 2em; color: #6272a4; font-size: 0.95em; text-align: center; }
    .footer a { color: #8be9fd; text-decoration: underline; }
  </style>
</head>
<body>
  <h2 class="message-header">{{.Header}}</h2>
  <div class="message-body">{{.Message}}</div>
  {{if .RedirectMessage}}<br/><div class="redirect-message">{{.RedirectMessage}}</div>{{end}}
  <div class="footer">
    &copy; {{.Year}} patronlink
  </div>
</body>
</html>
`

// Page describes one terminal page of the linking flow.
//
// Message and RedirectMessage are [template.HTML] because several pages embed
// links; callers must only pass trusted, service-generated markup.
type Page struct {
	Title           string
	Header          string
	HeaderColor     string
	Message         template.HTML
	MessageColor    string
	Status          int
	RedirectTo      string
	RedirectMessage template.HTML
}

// pageData is the template payload: a Page plus derived fields.
type pageData struct {
	Page
	Year          int
	RedirectDelay int
}

// Pages renders themed HTML pages.
type Pages struct {
	tmpl *template.Template
}

// NewPages parses the embedded page template.
func NewPages() (*Pages, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &Pages{tmpl: tmpl}, nil
}

// Render writes the page with its status code. Colors fall back to the
// default palette when unset.
func (p *Pages) Render(w http.ResponseWriter, page Page) error {
	if page.HeaderColor == "" {
		page.HeaderColor = defaultHeaderColor
	}
	if page.MessageColor == "" {
		page.MessageColor = defaultMessageColor
	}
	if page.Status == 0 {
		page.Status = http.StatusOK
	}

	data := pageData{
		Page:          page,
		Year:          time.Now().Year(),
		RedirectDelay: redirectDelaySeconds,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(page.Status)
	return p.tmpl.Execute(w, data)
}
