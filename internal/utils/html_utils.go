package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTMLContent 给链接加上统一的样式和安全属性，并给 @username 加上主页链接
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		s.AddClass("grumble-link")
		s.SetAttr("rel", "nofollow noopener noreferrer")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if s.Find("a, code").Length() > 0 {
			return
		}
		html, err := s.Html()
		if err != nil || !strings.Contains(html, "@") {
			return
		}
		s.SetHtml(linkMentions(html))
	})

	// goquery renders full document tags if missing, we just want the body content
	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}

	return template.HTML(html)
}

// linkMentions turns @name tokens into profile links. Input is already escaped HTML.
func linkMentions(html string) string {
	words := strings.Split(html, " ")
	for i, w := range words {
		if len(w) < 2 || w[0] != '@' {
			continue
		}
		name := w[1:]
		trail := ""
		for len(name) > 0 && strings.ContainsRune(".,!?:;", rune(name[len(name)-1])) {
			trail = string(name[len(name)-1]) + trail
			name = name[:len(name)-1]
		}
		if !isUsername(name) {
			continue
		}
		words[i] = `<a class="mention" href="/profile/` + name + `">@` + name + `</a>` + trail
	}
	return strings.Join(words, " ")
}

func isUsername(s string) bool {
	if s == "" || len(s) > 30 {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '.' || r == '-' || r == '+' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
