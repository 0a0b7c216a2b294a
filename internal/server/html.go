package server

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/confidant-ai/confidant/internal/chat"
)

var transcriptMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

const transcriptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
h1 { font-size: 1.4rem; border-bottom: 1px solid #d0d7de; padding-bottom: 0.5rem; }
.message { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 8px; }
.message.user { background: #ddf4ff; }
.message.assistant { background: #f6f8fa; }
.role { font-size: 0.75rem; text-transform: uppercase; color: #57606a; margin-bottom: 0.25rem; }
pre { background: #f6f8fa; padding: 0.75rem; overflow-x: auto; border-radius: 6px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}
<div class="message {{.Role}}">
<div class="role">{{.Role}}</div>
{{.Body}}
</div>
{{end}}
</body>
</html>
`

type transcriptMessage struct {
	Role string
	Body template.HTML
}

type transcriptPage struct {
	Title    string
	Messages []transcriptMessage
}

// renderTranscript renders a chat's messages as a standalone HTML page,
// with each message body treated as markdown.
func renderTranscript(c *chat.Chat, messages []chat.Message) ([]byte, error) {
	tmpl, err := template.New("transcript").Parse(transcriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing transcript template: %w", err)
	}

	page := transcriptPage{Title: c.Title}
	if page.Title == "" {
		page.Title = chat.DefaultTitle
	}

	for _, m := range messages {
		var body bytes.Buffer
		if err := transcriptMarkdown.Convert([]byte(m.Content), &body); err != nil {
			return nil, fmt.Errorf("rendering message %s: %w", m.ID, err)
		}
		page.Messages = append(page.Messages, transcriptMessage{
			Role: m.Role,
			Body: template.HTML(body.String()),
		})
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, page); err != nil {
		return nil, fmt.Errorf("executing transcript template: %w", err)
	}
	return out.Bytes(), nil
}
