package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"grumblr/internal/middleware"
	"grumblr/internal/models"
	"grumblr/internal/store"
	"grumblr/internal/utils"
	"grumblr/internal/validation"
)

const captchaSessionKey = "captcha_answer"

// Mailer sends account e-mails
type Mailer interface {
	SendVerificationEmail(email, username, link string)
}

// Captcha produces a question and its answer
type Captcha interface {
	GenerateMathProblem() (string, int)
}

type AuthHandler struct {
	store   *store.Store
	mailer  Mailer
	captcha Captcha
	siteURL string
	log     zerolog.Logger

	// nil unless Google login is configured
	google         *oauth2.Config
	googleUserInfo string
}

func NewAuthHandler(st *store.Store, mailer Mailer, captcha Captcha, siteURL string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:   st,
		mailer:  mailer,
		captcha: captcha,
		siteURL: siteURL,
		log:     log.With().Str("handler", "auth").Logger(),
	}
}

// renderRegister 每次渲染注册页都换一道新题
func (h *AuthHandler) renderRegister(c *gin.Context, code int, form validation.RegisterForm, data gin.H) {
	question, answer := h.captcha.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(captchaSessionKey, answer)
	_ = session.Save()

	if data == nil {
		data = gin.H{}
	}
	data["Title"] = "Sign up"
	data["Captcha"] = question
	data["Form"] = form
	Render(c, code, "auth/register.html", data)
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.renderRegister(c, http.StatusOK, validation.RegisterForm{}, nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form validation.RegisterForm
	bindErr := c.ShouldBind(&form)
	form.Password, form.PasswordConfirm = "", ""

	session := sessions.Default(c)
	expected, ok := session.Get(captchaSessionKey).(int)
	session.Delete(captchaSessionKey)
	if !ok || utils.StringToInt(c.PostForm("captcha")) != expected {
		h.renderRegister(c, http.StatusBadRequest, form, gin.H{"Error": "Wrong answer to the captcha question."})
		return
	}

	if bindErr != nil {
		h.renderRegister(c, http.StatusBadRequest, form, gin.H{"Fields": validation.Fields(bindErr)})
		return
	}

	user, token, err := h.createUser(c, &form, c.PostForm("password"))
	if errors.Is(err, store.ErrDuplicate) {
		h.renderRegister(c, http.StatusConflict, form, gin.H{
			"Fields": map[string]string{"username": "A user with that username already exists."},
		})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("username", form.Username).Msg("Failed to create user")
		h.renderRegister(c, http.StatusInternalServerError, form, gin.H{"Error": "Could not create your account, please try again."})
		return
	}

	_ = session.Save()
	h.mailer.SendVerificationEmail(user.Email, user.Username, h.verifyLink(user.Username, token))
	h.log.Info().Str("username", user.Username).Msg("User registered")

	h.loginPage(c, http.StatusOK, gin.H{
		"Username": user.Username,
		"Success":  "Almost there! Check your inbox for the verification link.",
	})
}

// createUser 创建未激活用户及默认资料
func (h *AuthHandler) createUser(c *gin.Context, form *validation.RegisterForm, password string) (*models.User, string, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	token, err := utils.GenerateToken(16)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Username:    form.Username,
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Email:       form.Email,
		Password:    hash,
		VerifyToken: token,
		Profile:     models.DefaultProfile(utils.GetRandomEmoji()),
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (h *AuthHandler) verifyLink(username, token string) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("token", token)
	return h.siteURL + "/auth/user_verify?" + q.Encode()
}

// Verify activates the account named in the e-mailed link
func (h *AuthHandler) Verify(c *gin.Context) {
	user, err := h.store.ActivateUser(c.Request.Context(), c.Query("username"), c.Query("token"))
	switch {
	case errors.Is(err, store.ErrInvalidToken), errors.Is(err, store.ErrNotFound):
		RenderError(c, http.StatusBadRequest, "This verification link is invalid.")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to activate user")
		RenderError(c, http.StatusInternalServerError, "Could not activate your account.")
		return
	}

	h.log.Info().Str("username", user.Username).Msg("User activated")
	h.loginPage(c, http.StatusOK, gin.H{
		"Username": user.Username,
		"Success":  "Your account is active. Log in to start grumbling.",
	})
}

func (h *AuthHandler) loginPage(c *gin.Context, code int, data gin.H) {
	data["Title"] = "Log in"
	data["Google"] = h.google != nil
	Render(c, code, "auth/login.html", data)
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.loginPage(c, http.StatusOK, gin.H{"Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form validation.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.loginPage(c, http.StatusBadRequest, gin.H{"Error": "Enter your username and password.", "Next": form.Next})
		return
	}

	user, err := h.store.UserByUsername(c.Request.Context(), form.Username)
	if err != nil || !utils.CheckPasswordHash(form.Password, user.Password) {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Msg("Failed to load user")
		}
		h.loginPage(c, http.StatusUnauthorized, gin.H{
			"Error": "Invalid username or password.", "Username": form.Username, "Next": form.Next,
		})
		return
	}

	// 未激活账号不能登录
	if !user.IsActive {
		h.loginPage(c, http.StatusForbidden, gin.H{
			"Error": "Please verify your e-mail address before logging in.", "Username": form.Username,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		RenderError(c, http.StatusInternalServerError, "Could not log you in.")
		return
	}

	c.Redirect(http.StatusFound, safeNext(form.Next))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusFound, "/auth/login")
}
