package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"maestro.app/gateway/core/config"
)

const spotifyScope = "user-read-playback-state user-modify-playback-state user-read-currently-playing " +
	"user-read-recently-played user-top-read playlist-read-private playlist-read-collaborative"

// SpotifyHandler is a thin relay to the Spotify accounts and web APIs.
// No tokens are stored server-side; the client holds its own tokens and
// passes them per request.
type SpotifyHandler struct {
	cfg    config.SpotifyConfig
	client *http.Client
}

func NewSpotifyHandler(cfg config.SpotifyConfig) *SpotifyHandler {
	return &SpotifyHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthURL returns the authorization URL the client should redirect to.
func (h *SpotifyHandler) AuthURL(c *gin.Context) {
	params := url.Values{
		"client_id":     {h.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {h.cfg.RedirectURI},
		"scope":         {spotifyScope},
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": h.cfg.AuthURL + "?" + params.Encode()})
}

type tokenRequest struct {
	Code string `json:"code" binding:"required"`
}

// Token exchanges an authorization code for access and refresh tokens.
func (h *SpotifyHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "code is required"})
		return
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {req.Code},
		"redirect_uri": {h.cfg.RedirectURI},
	}
	h.tokenCall(c, form)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *SpotifyHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "refresh_token is required"})
		return
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {req.RefreshToken},
	}
	h.tokenCall(c, form)
}

// Search passes a search query through to the Spotify web API using the
// caller's bearer token.
func (h *SpotifyHandler) Search(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "access token required"})
		return
	}

	params := url.Values{
		"q":    {c.Query("q")},
		"type": {c.DefaultQuery("type", "track")},
	}
	if limit := c.Query("limit"); limit != "" {
		params.Set("limit", limit)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet,
		h.cfg.APIURL+"/search?"+params.Encode(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	req.Header.Set("Authorization", auth)

	resp, err := h.client.Do(req)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "spotify search failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error", "message": err.Error()})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.Data(resp.StatusCode, "application/json", body)
}

func (h *SpotifyHandler) tokenCall(c *gin.Context, form url.Values) {
	ctx := c.Request.Context()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	basic := base64.StdEncoding.EncodeToString([]byte(h.cfg.ClientID + ":" + h.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "spotify token call failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error", "message": err.Error()})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "spotify token call rejected", "status", resp.StatusCode)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "token_error",
			"message": fmt.Sprintf("token request failed with status %d", resp.StatusCode),
		})
		return
	}

	var tokens map[string]any
	if err := json.Unmarshal(body, &tokens); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "message": "invalid token response"})
		return
	}
	tokens["success"] = true
	c.JSON(http.StatusOK, tokens)
}
