package certificate

import (
	"bytes"
	"fmt"
	"html/template"
)

// RenderData is what a design's HTML template may reference.
type RenderData struct {
	ParticipantName   string
	ProgramName       string
	CertificateNumber string
	IssueDate         string
	LogoURL           string
	SignatureURL      string
}

// Render substitutes participant and program details into the design markup.
func Render(design *Design, data RenderData) (string, error) {
	tpl, err := template.New(design.ID).Parse(design.HTML)
	if err != nil {
		return "", fmt.Errorf("parse design %s: %w", design.ID, err)
	}
	if data.LogoURL == "" {
		data.LogoURL = design.LogoURL
	}
	if data.SignatureURL == "" {
		data.SignatureURL = design.SignatureURL
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render design %s: %w", design.ID, err)
	}
	return buf.String(), nil
}
