// internal/service/email/templates.go
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
	texttemplate "text/template"
)

const (
	TemplateProspectCreated       = "prospect.created"
	TemplatePurchaseCompleted     = "purchase.completed"
	TemplateSubscriptionCancelled = "subscription.cancelled"
)

const layout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<title>Gitwallet</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f6f8fa; padding: 30px; }
		.container { max-width: 600px; margin: auto; background: #fff; border-radius: 10px; overflow: hidden; }
		.header { background: #24292f; color: white; text-align: center; padding: 20px; font-size: 22px; font-weight: bold; }
		.body { padding: 25px; color: #333; line-height: 1.6; }
		.footer { background: #f1f1f1; color: #555; text-align: center; padding: 15px; font-size: 13px; }
		a.button { display: inline-block; background: #24292f; color: white; padding: 10px 20px; border-radius: 5px; text-decoration: none; }
	</style>
</head>
<body>
<div class="container">
	<div class="header">Gitwallet</div>
	<div class="body">{{template "content" .}}</div>
	<div class="footer"><p>You receive this because you sell on Gitwallet.</p></div>
</div>
</body>
</html>`

type entry struct {
	subject *texttemplate.Template
	body    *template.Template
}

// Registry holds the named notification templates. Subjects are plain text
// templates, bodies are HTML templates, both over the same variables.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]entry
}

func NewRegistry() *Registry {
	r := &Registry{templates: map[string]entry{}}

	r.MustRegister(TemplateProspectCreated,
		`New lead for {{.TierName}}: {{.ProspectName}}`,
		`<p><strong>{{.ProspectName}}</strong>{{if .Company}} from {{.Company}}{{end}} is interested in <strong>{{.TierName}}</strong>.</p>
<p>Email: {{.ProspectEmail}}</p>
{{if .Context}}<p>{{.Context}}</p>{{end}}
{{if .DashboardURL}}<p><a class="button" href="{{.DashboardURL}}">Review prospect</a></p>{{end}}`)

	r.MustRegister(TemplatePurchaseCompleted,
		`New {{.Kind}} for {{.TierName}}`,
		`<p>A buyer purchased <strong>{{.TierName}}</strong> for {{.Price}}.</p>
{{if .DashboardURL}}<p><a class="button" href="{{.DashboardURL}}">Open dashboard</a></p>{{end}}`)

	r.MustRegister(TemplateSubscriptionCancelled,
		`Subscription to {{.TierName}} cancelled`,
		`<p>A subscription to <strong>{{.TierName}}</strong> was cancelled.</p>
<p>{{.StatusLabel}}</p>`)

	return r
}

// Register parses and stores a template pair.
func (r *Registry) Register(name, subject, body string) error {
	subj, err := texttemplate.New(name + ".subject").Option("missingkey=zero").Parse(subject)
	if err != nil {
		return fmt.Errorf("parse subject %s: %w", name, err)
	}

	page, err := template.New(name).Option("missingkey=zero").Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout %s: %w", name, err)
	}
	if _, err := page.New("content").Parse(body); err != nil {
		return fmt.Errorf("parse body %s: %w", name, err)
	}

	r.mu.Lock()
	r.templates[name] = entry{subject: subj, body: page}
	r.mu.Unlock()
	return nil
}

func (r *Registry) MustRegister(name, subject, body string) {
	if err := r.Register(name, subject, body); err != nil {
		panic(err)
	}
}

// Render produces the subject and HTML body of a named template.
func (r *Registry) Render(name string, vars map[string]any) (string, string, error) {
	r.mu.RLock()
	e, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	var subj, body bytes.Buffer
	if err := e.subject.Execute(&subj, vars); err != nil {
		return "", "", fmt.Errorf("render subject %s: %w", name, err)
	}
	if err := e.body.Execute(&body, vars); err != nil {
		return "", "", fmt.Errorf("render body %s: %w", name, err)
	}

	return subj.String(), body.String(), nil
}
