package handlers

import (
	"bytes"
	"html/template"

	"github.com/trowebvideo/backend/internal/embed"
)

var fragmentTemplate = template.Must(template.New("fragment").Parse(`<div class="trowebvideo_block" data-block-id="{{.BlockID}}" data-status="{{.Status}}" data-provider-host="{{.ProviderHost}}" data-watched-url="{{.WatchedURL}}">
{{- if .Markup}}
  <div class="trowebvideo-embed">{{.Markup}}</div>
{{- else}}
  <p class="trowebvideo-message">{{.Message}}</p>
{{- end}}
</div>
`))

type fragmentData struct {
	BlockID      string
	Status       string
	ProviderHost string
	WatchedURL   string
	Markup       template.HTML
	Message      string
}

// renderFragment builds the student view for a block. Provider markup is
// emitted verbatim; every other value is escaped.
func renderFragment(blockID string, result embed.Result) ([]byte, error) {
	data := fragmentData{
		BlockID:      blockID,
		Status:       result.Status.String(),
		ProviderHost: result.ProviderHost,
		WatchedURL:   "/api/v1/blocks/" + blockID + "/watched",
		Message:      result.Message(),
	}
	if result.Status == embed.StatusEmbedded {
		data.Markup = template.HTML(result.Markup)
	}

	var buf bytes.Buffer
	if err := fragmentTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
