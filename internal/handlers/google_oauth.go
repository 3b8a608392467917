package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"grumblr/internal/config"
	"grumblr/internal/middleware"
	"grumblr/internal/models"
	"grumblr/internal/store"
	"grumblr/internal/utils"
)

const (
	oauthStateKey       = "oauth_state"
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	maxUsernameAttempts = 5
)

var usernameStrip = regexp.MustCompile(`[^A-Za-z0-9_.+-]`)

// GoogleUserInfo Google 用户信息结构
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// EnableGoogle turns on "Log in with Google"
func (h *AuthHandler) EnableGoogle(cfg config.GoogleConfig) {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	h.google = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  h.siteURL + "/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: endpoint,
	}
	h.googleUserInfo = googleUserInfoURL
	if cfg.UserInfoURL != "" {
		h.googleUserInfo = cfg.UserInfoURL
	}
}

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GoogleLogin 发起 Google OAuth 登录
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		RenderError(c, http.StatusNotFound, "Google login is not enabled.")
		return
	}

	state, err := generateStateToken()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate oauth state")
		RenderError(c, http.StatusInternalServerError, "Could not start Google login.")
		return
	}

	// 将 state 存储到 session 中,用于验证回调
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	_ = session.Save()

	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

// GoogleCallback 处理 Google OAuth 回调
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		RenderError(c, http.StatusNotFound, "Google login is not enabled.")
		return
	}

	session := sessions.Default(c)
	savedState, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)

	if savedState == "" || c.Query("state") != savedState {
		h.loginPage(c, http.StatusBadRequest, gin.H{"Error": "Google login expired, please try again."})
		return
	}
	code := c.Query("code")
	if code == "" {
		h.loginPage(c, http.StatusBadRequest, gin.H{"Error": "Google did not return an authorization code."})
		return
	}

	ctx := c.Request.Context()
	token, err := h.google.Exchange(ctx, code)
	if err != nil {
		h.log.Warn().Err(err).Msg("Google token exchange failed")
		h.loginPage(c, http.StatusBadGateway, gin.H{"Error": "Could not reach Google, please try again."})
		return
	}

	info, err := h.getGoogleUserInfo(ctx, token)
	if err != nil {
		h.log.Warn().Err(err).Msg("Google userinfo failed")
		h.loginPage(c, http.StatusBadGateway, gin.H{"Error": "Could not reach Google, please try again."})
		return
	}
	if !info.VerifiedEmail {
		h.loginPage(c, http.StatusBadRequest, gin.H{"Error": "Your Google e-mail address is not verified."})
		return
	}

	user, err := h.googleUser(ctx, info)
	if err != nil {
		h.log.Error().Err(err).Str("email", info.Email).Msg("Google login failed")
		h.loginPage(c, http.StatusInternalServerError, gin.H{"Error": "Could not log you in with Google."})
		return
	}

	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		RenderError(c, http.StatusInternalServerError, "Could not log you in.")
		return
	}
	h.log.Info().Str("username", user.Username).Msg("Google login")
	c.Redirect(http.StatusFound, "/")
}

// googleUser 查找已绑定或同邮箱的已激活用户，否则自动注册
// 未激活的同邮箱账号不会被绑定，避免被抢注的账号借 Google 登录激活
func (h *AuthHandler) googleUser(ctx context.Context, info *GoogleUserInfo) (*models.User, error) {
	user, err := h.store.UserByGoogle(ctx, info.ID, info.Email)
	if err == nil {
		if user.GoogleID != info.ID {
			if err := h.store.LinkGoogle(ctx, user.ID, info.ID); err != nil {
				return nil, err
			}
			user.GoogleID = info.ID
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// 随机密码，之后可在个人主页修改
	secret, err := utils.GenerateToken(16)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(secret)
	if err != nil {
		return nil, err
	}

	base := googleUsername(info)
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 0 {
			suffix, err := utils.GenerateToken(2)
			if err != nil {
				return nil, err
			}
			username = truncate(base, 30-len(suffix)) + suffix
		}

		user = &models.User{
			Username:  username,
			FirstName: truncate(info.GivenName, 30),
			LastName:  truncate(info.FamilyName, 30),
			Email:     info.Email,
			Password:  hash,
			IsActive:  true,
			GoogleID:  info.ID,
			Profile:   models.DefaultProfile(utils.GetRandomEmoji()),
		}
		err = h.store.CreateUser(ctx, user)
		if !errors.Is(err, store.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// googleUsername derives a valid username from the e-mail local part
func googleUsername(info *GoogleUserInfo) string {
	local, _, _ := strings.Cut(info.Email, "@")
	name := usernameStrip.ReplaceAllString(local, "")
	if name == "" {
		name = "grumbler"
	}
	return truncate(name, 30)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// getGoogleUserInfo 获取 Google 用户信息
func (h *AuthHandler) getGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := h.google.Client(ctx, token).Get(h.googleUserInfo)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
