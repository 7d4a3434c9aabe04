package rest

import (
	"bytes"
	"html/template"
	"net/http"
	"os"

	"github.com/dfryer1193/micropub/blog/application"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const StaticPrefix = "/static"

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

// HomeHandler renders the README as the endpoint's homepage and serves static assets.
type HomeHandler struct {
	renderer   application.PageRenderer
	readmePath string
	staticDir  string
}

func NewHomeHandler(renderer application.PageRenderer, readmePath string, staticDir string) *HomeHandler {
	return &HomeHandler{
		renderer:   renderer,
		readmePath: readmePath,
		staticDir:  staticDir,
	}
}

func (h *HomeHandler) RegisterRoutes(router gin.IRouter) {
	if h.readmePath != "" {
		router.GET("/", h.Home)
		router.HEAD("/", h.Home)
	}
	if h.staticDir != "" {
		router.Static(StaticPrefix, h.staticDir)
	}
}

// Home renders the README on every request.
func (h *HomeHandler) Home(c *gin.Context) {
	markdown, err := os.ReadFile(h.readmePath)
	if err != nil {
		log.Error().Err(err).Str("path", h.readmePath).Msg("Failed to read README")
		c.String(http.StatusNotFound, "Not found")
		return
	}

	page, err := h.renderer.Render(markdown)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render README")
		c.String(http.StatusInternalServerError, "Failed to render page")
		return
	}

	var buf bytes.Buffer
	err = homeTemplate.Execute(&buf, struct {
		Title       string
		Description string
		Body        template.HTML
	}{
		Title:       page.Title,
		Description: page.Description,
		Body:        template.HTML(page.HTML),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute homepage template")
		c.String(http.StatusInternalServerError, "Failed to render page")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
