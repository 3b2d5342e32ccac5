package prompts

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// ForceAnswerSuffix is appended to the system prompt on the last tool turn.
const ForceAnswerSuffix = "\n\n**IMPORTANT: You have reached the maximum number of knowledge base searches. You MUST answer now using the results you already have, do not call any more tools.**"

// PersonaData parameterizes the fixed persona instruction.
type PersonaData struct {
	AgentName      string
	CatalogSize    int
	CatalogSources string
}

// RenderPersonaPrompt renders the persona system prompt using embedded Go templates
func RenderPersonaPrompt(data PersonaData) (string, error) {
	if data.AgentName == "" {
		data.AgentName = "a Solutions Architect Agent"
	}

	return renderTemplate("templates/persona_system.md", data)
}

// RenderKnowledgeContext renders the system prompt with knowledge base results
// inlined. It is used when the model cannot call the search tool itself.
func RenderKnowledgeContext(systemPrompt, documents string) (string, error) {
	data := struct {
		SystemPrompt string
		Documents    string
	}{
		SystemPrompt: systemPrompt,
		Documents:    documents,
	}

	return renderTemplate("templates/knowledge_context.md", data)
}

func renderTemplate(name string, data any) (string, error) {
	content, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
