package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/myrjola/resqlink/internal/contexthelpers"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/ssr"
	"github.com/myrjola/resqlink/ui"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "marshal template value")
	}
	return string(b), nil
}

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to a file inside the ui/templates/pages folder. It has to define a template named "content".
func (app *application) pageTemplate(pageName string) (*template.Template, error) {
	files := []string{
		"templates/base.gohtml",
		"templates/partials.gohtml",
		fmt.Sprintf("templates/pages/%s.gohtml", pageName),
	}

	// We need to initialize the FuncMap before parsing the files. These will be overridden in the render function.
	t, err := template.New(pageName).Funcs(template.FuncMap{
		"nonce": func() string {
			panic("not implemented")
		},
		"csrf": func() string {
			panic("not implemented")
		},
		"formatTime": formatTime,
		"json":       toJSON,
	}).ParseFS(ui.Files, files...)
	if err != nil {
		return nil, errors.Wrap(err, "parse template files", slog.String("page", pageName))
	}
	return t, nil
}

// render executes the page template and expands its custom elements. htmx polling requests get only the page
// content so that it can be swapped into the already rendered page.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, file string, data any) {
	var (
		err error
		t   *template.Template
	)

	if t, err = app.pageTemplate(file); err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse template", slog.String("template", file)))
		return
	}

	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec, we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec, we trust the csrf since it's not provided by user.
		},
	})

	hx := app.htmx.NewHandler(w, r)
	partial := hx.IsHxRequest() && !hx.IsHxBoosted()
	name := "base"
	if partial {
		name = "content"
	}

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", file)))
		return
	}

	out := new(bytes.Buffer)
	if partial {
		err = ssr.ReplaceCustomElements(out, buf)
	} else {
		err = ssr.RenderPage(out, buf)
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "replace custom elements", slog.String("template", file)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", "HX-Request")
	w.WriteHeader(status)

	_, _ = out.WriteTo(w)
}
