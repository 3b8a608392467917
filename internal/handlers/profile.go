package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"grumblr/internal/middleware"
	"grumblr/internal/models"
	"grumblr/internal/store"
	"grumblr/internal/utils"
	"grumblr/internal/validation"
)

type ProfileHandler struct {
	store    *store.Store
	pageSize int
	log      zerolog.Logger
}

func NewProfileHandler(st *store.Store, pageSize int, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		store:    st,
		pageSize: pageSize,
		log:      log.With().Str("handler", "profile").Logger(),
	}
}

// Show 用户主页，/profile/ 显示自己
func (h *ProfileHandler) Show(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	user := viewer
	if username := c.Param("username"); username != "" {
		found, err := h.store.UserByUsername(c.Request.Context(), username)
		if errors.Is(err, store.ErrNotFound) {
			RenderError(c, http.StatusNotFound, "No such user.")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Str("username", username).Msg("Failed to load profile")
			RenderError(c, http.StatusInternalServerError, "Could not load this profile.")
			return
		}
		user = found
	}
	if user == nil {
		c.Redirect(http.StatusFound, "/auth/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		return
	}

	h.renderProfile(c, http.StatusOK, user, nil)
}

func (h *ProfileHandler) renderProfile(c *gin.Context, code int, user *models.User, extra gin.H) {
	ctx := c.Request.Context()
	viewer := middleware.CurrentUser(c)

	data, err := userCounts(ctx, h.store, user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to count profile stats")
		RenderError(c, http.StatusInternalServerError, "Could not load this profile.")
		return
	}

	isSelf := viewer != nil && viewer.ID == user.ID
	isFollowing := false
	if viewer != nil && !isSelf {
		if isFollowing, err = h.store.IsFollowing(ctx, viewer.ID, user.ID); err != nil {
			h.log.Error().Err(err).Msg("Failed to check follow state")
		}
	}

	data["Title"] = user.Username
	data["User"] = user
	data["IsSelf"] = isSelf
	data["IsFollowing"] = isFollowing
	data["Avatars"] = utils.GetCommonEmojis()
	data["PageSize"] = h.pageSize
	for k, v := range extra {
		data[k] = v
	}
	Render(c, code, "profile/show.html", data)
}

// target loads the user named in the URL, writing the error page when it can't
func (h *ProfileHandler) target(c *gin.Context) (*models.User, bool) {
	user, err := h.store.UserByUsername(c.Request.Context(), c.Param("username"))
	if errors.Is(err, store.ErrNotFound) {
		RenderError(c, http.StatusNotFound, "No such user.")
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load user")
		RenderError(c, http.StatusInternalServerError, "Something went wrong.")
		return nil, false
	}
	return user, true
}

func (h *ProfileHandler) Follow(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	user, ok := h.target(c)
	if !ok {
		return
	}

	err := h.store.Follow(c.Request.Context(), viewer.ID, user.ID)
	if errors.Is(err, store.ErrSelfFollow) {
		RenderError(c, http.StatusBadRequest, "You can't follow yourself.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to follow")
		RenderError(c, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	h.log.Info().Str("follower", viewer.Username).Str("followee", user.Username).Msg("Followed")
	c.Redirect(http.StatusFound, "/profile/"+url.PathEscape(user.Username))
}

func (h *ProfileHandler) Unfollow(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	user, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.store.Unfollow(c.Request.Context(), viewer.ID, user.ID); err != nil {
		h.log.Error().Err(err).Msg("Failed to unfollow")
		RenderError(c, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+url.PathEscape(user.Username))
}

// Edit 只更新用户填写了的字段
func (h *ProfileHandler) Edit(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var form validation.ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderProfile(c, http.StatusBadRequest, user, gin.H{
			"Error":  "Some fields are invalid.",
			"Fields": validation.Fields(err),
		})
		return
	}

	userFields := map[string]interface{}{}
	setIf(userFields, "first_name", form.FirstName)
	setIf(userFields, "last_name", form.LastName)
	setIf(userFields, "email", form.Email)

	profileFields := map[string]interface{}{}
	setIf(profileFields, "signature", form.Signature)
	setIf(profileFields, "gender", form.Gender)
	setIf(profileFields, "hometown", form.Hometown)
	setIf(profileFields, "hobby", form.Hobby)
	setIf(profileFields, "bio", form.Bio)
	setIf(profileFields, "avatar", form.Avatar)
	if form.Age != nil {
		profileFields["age"] = *form.Age
	}

	if err := h.store.UpdateUser(c.Request.Context(), user.ID, userFields, profileFields); err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to update profile")
		RenderError(c, http.StatusInternalServerError, "Could not save your profile.")
		return
	}
	c.Redirect(http.StatusFound, "/profile/")
}

func setIf(m map[string]interface{}, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var form validation.PasswordForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderProfile(c, http.StatusBadRequest, user, gin.H{
			"Error":  "Passwords must match and be at least 6 characters.",
			"Fields": validation.Fields(err),
		})
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err == nil {
		err = h.store.SetPassword(c.Request.Context(), user.ID, hash)
	}
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to change password")
		RenderError(c, http.StatusInternalServerError, "Could not change your password.")
		return
	}

	h.log.Info().Uint("user_id", user.ID).Msg("Password changed")
	c.Redirect(http.StatusFound, "/profile/")
}
