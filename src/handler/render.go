package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageLogin     = "login.html"
	pageJournal   = "journal.html"
	pageSetEquity = "set_equity.html"
	pageDashboard = "dashboard.html"
	pageError     = "error.html"
)

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05")
	},
	"inc": func(i int) int { return i + 1 },
}

var pages = mustParsePages(pageLogin, pageJournal, pageSetEquity, pageDashboard, pageError)

func mustParsePages(names ...string) map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(names))
	for _, name := range names {
		parsed[name] = template.Must(
			template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name),
		)
	}
	return parsed
}

// base is embedded by every page model; the layout reads these fields.
type base struct {
	Title string
	User  *model.User
	Error string
}

// render executes the page into a buffer first so a template failure still yields a clean 500.
func render(w http.ResponseWriter, status int, name string, data interface{}) {
	tmpl, ok := pages[name]
	if !ok {
		logger.WithField("page", name).Error("unknown page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.WithError(err).WithField("page", name).Error("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.WithError(err).WithField("page", name).Error("failed to write page")
	}
}
