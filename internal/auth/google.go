package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	userinfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookieName = "oauth_state"
	stateCookieTTL  = 600
)

// Handler serves the Google OAuth flow: redirect out, exchange the callback
// code, upsert the user and hand back a signed session token.
type Handler struct {
	oauth    *oauth2.Config
	users    *Store
	secret   string
	tokenTTL time.Duration
	logger   *slog.Logger
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func NewHandler(cfg GoogleConfig, users *Store, secret string, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// GoogleLogin redirects the browser to Google's consent screen.
func (h *Handler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie(stateCookieName, state, stateCookieTTL, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// GoogleCallback exchanges the authorization code, fetches the Google
// profile and signs a session token for the upserted user.
func (h *Handler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "invalid oauth state"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, "/auth/google")
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "authentication failed"})
		return
	}

	profile, err := h.fetchProfile(c, token)
	if err != nil {
		h.logger.Error("google profile fetch failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "authentication failed"})
		return
	}

	user, err := h.users.UpsertByGoogleID(c.Request.Context(), profile.ID, profile.Name, profile.Email)
	if err != nil {
		h.logger.Error("user upsert failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "authentication failed"})
		return
	}

	session, err := SignToken(h.secret, user.ID, h.tokenTTL)
	if err != nil {
		h.logger.Error("session token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "authentication failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  session,
		"data":   gin.H{"user": user},
	})
}

// GetMe returns the authenticated user injected by Protect.
func (h *Handler) GetMe(c *gin.Context) {
	user, ok := c.Get(ContextUserKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "you are not logged in, please log in to get access"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"user": user},
	})
}

type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) fetchProfile(c *gin.Context, token *oauth2.Token) (googleProfile, error) {
	client := h.oauth.Client(c.Request.Context(), token)
	resp, err := client.Get(userinfoURL)
	if err != nil {
		return googleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return profile, nil
}
