package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"grumblr/internal/feed"
	"grumblr/internal/middleware"
	"grumblr/internal/models"
	"grumblr/internal/realtime"
	"grumblr/internal/render"
	"grumblr/internal/store"
	"grumblr/internal/utils"
	"grumblr/internal/validation"
)

// StreamHandler serves the stream pages, the paging API and the write endpoints.
type StreamHandler struct {
	store    *store.Store
	feed     *feed.Service
	renderer *render.Renderer
	hub      realtime.Broadcaster
	pageSize int
	log      zerolog.Logger
}

func NewStreamHandler(st *store.Store, fs *feed.Service, renderer *render.Renderer, hub realtime.Broadcaster, pageSize int, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		store:    st,
		feed:     fs,
		renderer: renderer,
		hub:      hub,
		pageSize: pageSize,
		log:      log.With().Str("handler", "stream").Logger(),
	}
}

type cardJSON struct {
	ID     uint   `json:"id"`
	Author string `json:"author"`
	Date   string `json:"date"`
	HTML   string `json:"html"`
}

type messagesResponse struct {
	Messages    []cardJSON `json:"messages"`
	LastUpdated string     `json:"last_updated"`
	LastID      uint       `json:"last_id"`
}

type commentsResponse struct {
	MessageID   uint       `json:"message_id"`
	Comments    []cardJSON `json:"comments"`
	LastUpdated string     `json:"last_updated"`
	LastID      uint       `json:"last_id"`
}

// Global 全站信息流页面
func (h *StreamHandler) Global(c *gin.Context) {
	h.renderPage(c, "global", "Global stream")
}

// Following 关注的人的信息流页面
func (h *StreamHandler) Following(c *gin.Context) {
	h.renderPage(c, "follower", "Following")
}

func (h *StreamHandler) renderPage(c *gin.Context, view, title string) {
	user := middleware.CurrentUser(c)
	data := gin.H{"Title": title, "View": view, "PageSize": h.pageSize}

	counts, err := userCounts(c.Request.Context(), h.store, user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to count stream stats")
		RenderError(c, http.StatusInternalServerError, "Could not load the stream.")
		return
	}
	for k, v := range counts {
		data[k] = v
	}
	Render(c, http.StatusOK, "stream/index.html", data)
}

// userCounts 统计信息条数、关注数和粉丝数
func userCounts(ctx context.Context, st *store.Store, userID uint) (gin.H, error) {
	messages, err := st.CountMessages(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := st.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := st.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return gin.H{"MessageCount": messages, "FollowingCount": following, "FollowerCount": followers}, nil
}

// PostMessage validates, persists, renders and broadcasts one message.
// A rejected message never reaches the store or the hub.
func (h *StreamHandler) PostMessage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	form := validation.MessageForm{Message: c.PostForm("message")}
	form.Normalize()
	if err := validation.Struct(&form); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid message", validation.Fields(err))
		return
	}

	msg := models.Message{UserID: user.ID, Body: form.Message}
	if err := h.store.CreateMessage(c.Request.Context(), &msg); err != nil {
		apiError(c, h.log, err)
		return
	}
	msg.User = *user

	h.publish(realtime.EventMessage, msg.ID, 0, user.Username, func() (string, error) {
		return h.renderer.MessageCard(&msg)
	})
	h.log.Info().Uint("message_id", msg.ID).Str("author", user.Username).Msg("Message posted")
	c.Status(http.StatusOK)
}

// PostComment attaches a comment to an existing message and pushes it to listeners.
func (h *StreamHandler) PostComment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	messageID := utils.StringToUint(c.Param("msg_id"))
	if messageID == 0 {
		abortJSON(c, http.StatusNotFound, "not found", nil)
		return
	}

	form := validation.CommentForm{Content: c.PostForm("content")}
	form.Normalize()
	if err := validation.Struct(&form); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid comment", validation.Fields(err))
		return
	}

	comment := models.Comment{MessageID: messageID, UserID: user.ID, Content: form.Content}
	if err := h.store.CreateComment(c.Request.Context(), &comment); err != nil {
		apiError(c, h.log, err)
		return
	}
	comment.User = *user

	h.publish(realtime.EventComment, comment.ID, messageID, user.Username, func() (string, error) {
		return h.renderer.CommentCard(&comment)
	})
	c.Status(http.StatusOK)
}

// publish renders the card and broadcasts it once on the global stream.
// 写入已经成功，推送失败只记日志
func (h *StreamHandler) publish(kind string, id, messageID uint, author string, card func() (string, error)) {
	html, err := card()
	if err != nil {
		h.log.Error().Err(err).Str("type", kind).Uint("id", id).Msg("Failed to render card for broadcast")
		return
	}

	payload, err := realtime.Event{Type: kind, ID: id, Author: author, HTML: html, MessageID: messageID}.Encode()
	if err != nil {
		h.log.Error().Err(err).Str("type", kind).Uint("id", id).Msg("Failed to encode event")
		return
	}

	delivered := h.hub.Broadcast(realtime.GlobalStream, payload)
	h.log.Debug().Str("type", kind).Uint("id", id).Int("delivered", delivered).Msg("Event broadcast")
}

// GetMessages answers /api/get-messages[/:view[/:arg[/:from]]]?after_id=N.
// For the profile view arg is the username and from the cursor; otherwise arg is the cursor.
func (h *StreamHandler) GetMessages(c *gin.Context) {
	view, arg, from := c.Param("view"), c.Param("arg"), c.Param("from")

	var username, ts string
	if view == "profile" {
		username, ts = arg, from
	} else {
		if from != "" {
			abortJSON(c, http.StatusNotFound, "not found", nil)
			return
		}
		ts = arg
	}

	ctx := c.Request.Context()
	sel, err := h.feed.ResolveView(ctx, view, middleware.CurrentUser(c), username)
	if err != nil {
		apiError(c, h.log, err)
		return
	}

	page, err := h.feed.Messages(ctx, sel, feed.ParseCursor(ts, c.Query("after_id")), 0)
	if err != nil {
		apiError(c, h.log, err)
		return
	}

	resp := messagesResponse{
		Messages:    make([]cardJSON, 0, len(page.Messages)),
		LastUpdated: feed.FormatTime(page.Next.After),
		LastID:      page.Next.AfterID,
	}
	for i := range page.Messages {
		msg := &page.Messages[i]
		html, err := h.renderer.MessageCard(msg)
		if err != nil {
			apiError(c, h.log, err)
			return
		}
		resp.Messages = append(resp.Messages, cardJSON{
			ID:     msg.ID,
			Author: msg.User.Username,
			Date:   feed.FormatTime(msg.CreatedAt),
			HTML:   html,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetComments answers /api/get-comments/:msg_id[/:from]?after_id=N.
func (h *StreamHandler) GetComments(c *gin.Context) {
	messageID := utils.StringToUint(c.Param("msg_id"))
	if messageID == 0 {
		abortJSON(c, http.StatusNotFound, "not found", nil)
		return
	}

	page, err := h.feed.Comments(c.Request.Context(), messageID, feed.ParseCursor(c.Param("from"), c.Query("after_id")), 0)
	if err != nil {
		apiError(c, h.log, err)
		return
	}

	resp := commentsResponse{
		MessageID:   messageID,
		Comments:    make([]cardJSON, 0, len(page.Comments)),
		LastUpdated: feed.FormatTime(page.Next.After),
		LastID:      page.Next.AfterID,
	}
	for i := range page.Comments {
		comment := &page.Comments[i]
		html, err := h.renderer.CommentCard(comment)
		if err != nil {
			apiError(c, h.log, err)
			return
		}
		resp.Comments = append(resp.Comments, cardJSON{
			ID:     comment.ID,
			Author: comment.User.Username,
			Date:   feed.FormatTime(comment.CreatedAt),
			HTML:   html,
		})
	}
	c.JSON(http.StatusOK, resp)
}
