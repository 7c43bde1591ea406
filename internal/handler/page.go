package handler

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const indexTemplate = "index.html"

//go:embed templates/index.html
var templateFS embed.FS

// LoadTemplates 解析页面模板
func LoadTemplates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/"+indexTemplate))
}

// Page 渲染首页表单
type Page struct {
	platforms []string
	maxSizeMB int
}

// NewPage 创建页面渲染器
func NewPage(platforms []string, maxSizeMB int) *Page {
	return &Page{platforms: platforms, maxSizeMB: maxSizeMB}
}

// Index 首页
func (p *Page) Index(c *gin.Context) {
	p.render(c, http.StatusOK, "", "")
}

// Reject 以错误信息重新渲染首页
func (p *Page) Reject(c *gin.Context, status int, message string) {
	p.render(c, status, message, "")
}

func (p *Page) render(c *gin.Context, status int, message, rawURL string) {
	c.HTML(status, indexTemplate, gin.H{
		"Error":     message,
		"URL":       rawURL,
		"Platforms": p.platforms,
		"MaxSizeMB": p.maxSizeMB,
	})
}
