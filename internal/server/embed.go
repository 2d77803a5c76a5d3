package server

import (
	"embed"
	"html/template"
)

//go:embed templates/error.html
var templateFS embed.FS

// errorPage はエラーレスポンスのHTMLテンプレート
var errorPage = template.Must(template.ParseFS(templateFS, "templates/error.html"))
