package render

import (
	"fmt"
	"html/template"
	"io/fs"

	"github.com/gin-contrib/multitemplate"

	"grumblr/web"
)

// Page template names, as passed to handlers.Render.
var pageNames = []string{
	"auth/login.html",
	"auth/register.html",
	"stream/index.html",
	"profile/show.html",
	"error.html",
}

// Pages builds one template set per page: the layout, the cards, and the view.
func Pages() (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layouts, err := fs.Glob(web.FS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	cards, err := fs.Glob(web.FS, "templates/cards/*.html")
	if err != nil {
		return nil, err
	}

	for _, name := range pageNames {
		files := make([]string, 0, len(layouts)+len(cards)+1)
		files = append(files, layouts...)
		files = append(files, cards...)
		files = append(files, "templates/views/"+name)

		tmpl, err := template.New("base.html").Funcs(FuncMap()).ParseFS(web.FS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.Add(name, tmpl)
	}
	return r, nil
}
