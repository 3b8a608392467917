package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"grumblr/internal/models"
	"grumblr/internal/store"
	"grumblr/internal/utils"
)

const feedItems = 20

type SEOHandler struct {
	store   *store.Store
	siteURL string
	log     zerolog.Logger
}

func NewSEOHandler(st *store.Store, siteURL string, log zerolog.Logger) *SEOHandler {
	return &SEOHandler{store: st, siteURL: siteURL, log: log.With().Str("handler", "seo").Logger()}
}

// RobotsTxt 返回robots.txt内容
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := `User-agent: *
Allow: /profile/

# 禁止爬取登录注册页面和API
Disallow: /auth/
Disallow: /register
Disallow: /api/

Crawl-delay: 1
`
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// GlobalFeed 全站最新信息的 RSS 2.0 feed
func (h *SEOHandler) GlobalFeed(c *gin.Context) {
	messages, err := h.store.RecentMessages(c.Request.Context(), nil, feedItems)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load feed")
		c.Status(http.StatusInternalServerError)
		return
	}
	h.writeRSS(c, "grumblr", h.siteURL+"/", "Everything everyone is grumbling about.", h.siteURL+"/feed.xml", messages)
}

// ProfileFeed 单个用户的 RSS feed
func (h *SEOHandler) ProfileFeed(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.store.UserByUsername(ctx, c.Param("username"))
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err == nil {
		var messages []models.Message
		if messages, err = h.store.RecentMessages(ctx, []uint{user.ID}, feedItems); err == nil {
			profileURL := h.siteURL + "/profile/" + url.PathEscape(user.Username)
			h.writeRSS(c, "grumblr · @"+user.Username, profileURL, user.Profile.Signature, profileURL+"/feed.xml", messages)
			return
		}
	}
	h.log.Error().Err(err).Msg("Failed to load profile feed")
	c.Status(http.StatusInternalServerError)
}

func (h *SEOHandler) writeRSS(c *gin.Context, title, link, description, self string, messages []models.Message) {
	lastBuild := time.Now().UTC()
	if len(messages) > 0 {
		lastBuild = messages[0].CreatedAt.UTC()
	}

	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>` + escapeXML(title) + `</title>
    <link>` + escapeXML(link) + `</link>
    <description>` + escapeXML(description) + `</description>
    <language>en</language>
    <lastBuildDate>` + lastBuild.Format(time.RFC1123Z) + `</lastBuildDate>
    <atom:link href="` + escapeXML(self) + `" rel="self" type="application/rss+xml"/>
`

	for _, msg := range messages {
		author := msg.User.Username
		itemLink := fmt.Sprintf("%s/profile/%s#message-%d", h.siteURL, url.PathEscape(author), msg.ID)

		// 使用CDATA包装HTML内容
		rss += `    <item>
      <title>` + escapeXML("@"+author+": "+msg.Body) + `</title>
      <link>` + escapeXML(itemLink) + `</link>
      <description><![CDATA[` + string(utils.RenderMarkdown(msg.Body)) + `]]></description>
      <author>` + escapeXML(author) + `</author>
      <pubDate>` + msg.CreatedAt.UTC().Format(time.RFC1123Z) + `</pubDate>
      <guid isPermaLink="false">grumble-` + utils.UintToString(msg.ID) + `</guid>
    </item>
`
	}

	rss += `  </channel>
</rss>`

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

// escapeXML 转义XML特殊字符
func escapeXML(s string) string {
	return html.EscapeString(s)
}
