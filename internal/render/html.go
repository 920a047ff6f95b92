package render

import (
	"html/template"
	"io"
)

var sectionTemplate = template.Must(template.New("sections").Parse(`
{{- range . -}}
<section class="detail-section">
<h4>{{ .Title }}</h4>
<dl>
{{- range .Fields }}
<dt>{{ .Label }}{{ if .Required }} *{{ end }}</dt>
<dd{{ if and .Required .Missing }} class="missing-required"{{ end }}>
{{- if .Link }}<a href="{{ .Value }}" target="_blank" rel="noopener noreferrer">{{ .Value }}</a>{{ else }}{{ .Value }}{{ end -}}
</dd>
{{- end }}
</dl>
</section>
{{ end -}}
`))

// HTML writes the sections as an escaped HTML fragment.
func HTML(w io.Writer, sections ...Section) error {
	return sectionTemplate.Execute(w, sections)
}
