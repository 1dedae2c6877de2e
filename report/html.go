// ABOUTME: Converts the Markdown run report to a standalone HTML page using goldmark.
// ABOUTME: GFM tables are enabled; raw HTML in run data is never passed through.
package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/saicharanallam/sigmachain/pipeline"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Workflow {{.ID}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.35rem 0.6rem; text-align: left; vertical-align: top; }
th { background: #f4f4f4; }
code { background: #f4f4f4; padding: 0 0.2rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders run as a complete HTML document.
func HTML(run *pipeline.WorkflowRun) ([]byte, error) {
	md, err := Markdown(run)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := markdownRenderer.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	err = pageTemplate.Execute(&page, struct {
		ID   string
		Body template.HTML
	}{ID: run.ID, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return page.Bytes(), nil
}
