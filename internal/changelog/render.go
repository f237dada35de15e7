package changelog

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// Meta carries the run metadata surrounding the dataset: project and
// tag names plus the configured base URLs used to build links.
type Meta struct {
	ProjectName string
	PreviousTag string
	LatestTag   string
	Release     string
	// RemoteURL is the origin remote of the workspace, available to
	// custom templates.
	RemoteURL string

	JiraBaseURL string
	GitlabHost  string
	GitlabUser  string
}

// TicketURL returns the tracker browse URL for a ticket key.
func (m Meta) TicketURL(key string) string {
	if m.JiraBaseURL == "" {
		return key
	}
	return strings.TrimSuffix(m.JiraBaseURL, "/") + "/browse/" + key
}

// ProjectURL returns the code-host project page URL.
func (m Meta) ProjectURL() string {
	if m.GitlabHost == "" {
		return ""
	}
	host := strings.TrimSuffix(m.GitlabHost, "/")
	if m.GitlabUser != "" {
		return host + "/" + m.GitlabUser + "/" + m.ProjectName
	}
	return host + "/" + m.ProjectName
}

// CompareURL returns the code-host compare URL between the previous and
// latest tags, or empty when either tag or the host is unknown.
func (m Meta) CompareURL() string {
	if m.ProjectURL() == "" || m.PreviousTag == "" || m.LatestTag == "" {
		return ""
	}
	return fmt.Sprintf("%s/compare/%s...%s", m.ProjectURL(), m.PreviousTag, m.LatestTag)
}

// TagURL returns the code-host page URL for a tag.
func (m Meta) TagURL(tag string) string {
	if m.ProjectURL() == "" || tag == "" {
		return ""
	}
	return m.ProjectURL() + "/tags/" + tag
}

// templateData is the root object a changelog template executes against.
type templateData struct {
	Data *Dataset
	Meta Meta
}

// DefaultTemplate renders the dataset as markdown: release header,
// compare link, one section per non-empty session, merge requests, and
// the committer roll-up.
const DefaultTemplate = `{{- if .Meta.Release}}# Release {{.Meta.Release}}

{{end -}}
{{- if .Meta.CompareURL}}#### [Full Changelog]({{.Meta.CompareURL}})

{{end -}}
{{- range $type := .Data.SessionTypes}}
{{- $session := index $.Data.Sessions $type}}
{{- if $session}}
{{$type}}
{{range $session}}* [{{.Key}}]({{$.Meta.TicketURL .Key}}) - {{.Summary}}
{{end}}
{{- end}}
{{- end}}
{{- if not .Data.Tickets.All}}
~ None ~
{{end}}
{{- if .Data.MergeRequests}}
##### MR's

{{range .Data.MergeRequests}}* [#{{.ID}}]({{.WebURL}}) - {{.Title}}
{{end}}
{{- end}}
{{- if .Data.Committers}}
##### Committers: {{len .Data.Committers}}

{{range .Data.Committers}}* {{.Name}} (@{{.Username}})
{{end}}
{{- end}}`

// Render executes a changelog template against the dataset and run
// metadata. An empty tmpl selects DefaultTemplate.
func Render(w io.Writer, ds *Dataset, meta Meta, tmpl string) error {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}

	t, err := template.New("changelog").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parsing changelog template: %w", err)
	}

	if err := t.Execute(w, templateData{Data: ds, Meta: meta}); err != nil {
		return fmt.Errorf("rendering changelog: %w", err)
	}
	return nil
}
