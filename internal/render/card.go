// Package render turns messages and comments into the HTML fragments shared by
// the paging API and the live stream, and builds the page renderer.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"grumblr/internal/models"
	"grumblr/web"
)

type Renderer struct {
	cards *template.Template
}

func New() (*Renderer, error) {
	cards, err := template.New("cards").Funcs(FuncMap()).ParseFS(web.FS, "templates/cards/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse card templates: %w", err)
	}
	return &Renderer{cards: cards}, nil
}

// MessageCard renders msg; msg.User and msg.User.Profile must be loaded.
func (r *Renderer) MessageCard(msg *models.Message) (string, error) {
	return r.execute("message_card", msg)
}

// CommentCard renders comment; comment.User and its Profile must be loaded.
func (r *Renderer) CommentCard(comment *models.Comment) (string, error) {
	return r.execute("comment_card", comment)
}

func (r *Renderer) execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.cards.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
