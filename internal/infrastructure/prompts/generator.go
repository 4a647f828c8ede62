package prompts

import (
	"bytes"
	"text/template"
	"time"
)

type SystemPromptData struct {
	Date    string
	Actions string
}

// GenerateSystemPrompt renders the system prompt template with the registered
// action descriptions. The action text comes straight from the registry, so
// the prompt always matches the decision schema the model is held to.
func GenerateSystemPrompt(actionDescriptions string, now time.Time) (string, error) {
	data := SystemPromptData{
		Date:    now.Format("2006-01-02 15:04"),
		Actions: actionDescriptions,
	}

	tmpl, err := template.New("system").Parse(DefaultSystemPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
