package email

import (
	"bytes"
	"embed"
	"html/template"
	texttpl "text/template"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	TemplateTwoFactor = "two_factor_code"
	TemplateReset     = "reset_password"
)

type TwoFactorVars struct {
	FirstName string
	Code      string
	TTL       string
}

type ResetVars struct {
	UserEmail string
	Link      string
	TTL       string
}

type Templates struct {
	html *template.Template
	text *texttpl.Template
}

// LoadTemplates parsea los templates embebidos en el binario.
func LoadTemplates() (*Templates, error) {
	h, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	t, err := texttpl.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, err
	}
	return &Templates{html: h, text: t}, nil
}

// Render devuelve (html, text) para el template name.
func (t *Templates) Render(name string, vars any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := t.html.ExecuteTemplate(&hb, name+".html", vars); err != nil {
		return "", "", err
	}
	if err := t.text.ExecuteTemplate(&tb, name+".txt", vars); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
