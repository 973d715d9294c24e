package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// Pair is one key/value row of a region.
type Pair struct {
	Key   string
	Value string
}

// regionTemplates holds the "stats" and "event" fragments. Whitespace is
// trimmed so the fragment contains only the region's elements.
var regionTemplates = template.Must(template.New("regions").Parse(`
{{- define "stats" -}}
	{{- if .Failed -}}
		<code>{{ .Error }}</code>
	{{- else -}}
		{{- range .Pairs -}}
			<p><strong>{{ .Key }}:</strong> {{ .Value }}</p>
		{{- end -}}
	{{- end -}}
{{- end -}}

{{- define "event" -}}
	<h5>Event {{ .Index }}</h5>
	{{- if .Failed -}}
		<code>{{ .Error }}</code>
	{{- else -}}
		{{- range .Pairs -}}
			<p class="field"><span>{{ .Key }}</span><span>{{ .Value }}</span></p>
		{{- end -}}
	{{- end -}}
{{- end -}}
`))

type fragmentData struct {
	Index  int
	Pairs  []Pair
	Failed bool
	Error  string
}

// Stats renders the stats region: one paragraph per pair reading "key: value".
func Stats(pairs []Pair) (string, error) {
	return execute("stats", fragmentData{Pairs: pairs})
}

// StatsError renders the stats region as a single code block holding msg.
func StatsError(msg string) (string, error) {
	return execute("stats", fragmentData{Failed: true, Error: msg})
}

// Event renders an event region: the "Event <index>" heading followed by one
// label/value block per pair.
func Event(index int, pairs []Pair) (string, error) {
	return execute("event", fragmentData{Index: index, Pairs: pairs})
}

// EventError renders an event region as the heading followed by a single code
// block holding msg.
func EventError(index int, msg string) (string, error) {
	return execute("event", fragmentData{Index: index, Failed: true, Error: msg})
}

func execute(name string, data fragmentData) (string, error) {
	var buf bytes.Buffer
	if err := regionTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s fragment: %w", name, err)
	}
	return buf.String(), nil
}
