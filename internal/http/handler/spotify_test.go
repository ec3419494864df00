package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"maestro.app/gateway/core/config"
	"maestro.app/gateway/internal/http/handler"
)

var _ = Describe("SpotifyHandler", func() {
	var (
		router   *gin.Engine
		upstream *httptest.Server
		cfg      config.SpotifyConfig
	)

	mount := func() {
		h := handler.NewSpotifyHandler(cfg)
		router = gin.New()
		router.GET("/auth-url", h.AuthURL)
		router.POST("/token", h.Token)
		router.POST("/refresh", h.Refresh)
		router.GET("/search", h.Search)
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		cfg = config.SpotifyConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURI:  "http://localhost/callback",
			AuthURL:      "https://accounts.spotify.com/authorize",
		}
	})

	AfterEach(func() {
		if upstream != nil {
			upstream.Close()
			upstream = nil
		}
	})

	Describe("AuthURL", func() {
		It("builds the authorize URL from the configured client", func() {
			mount()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-url", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var payload struct {
				AuthURL string `json:"auth_url"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())

			parsed, err := url.Parse(payload.AuthURL)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Query().Get("client_id")).To(Equal("client-id"))
			Expect(parsed.Query().Get("response_type")).To(Equal("code"))
			Expect(parsed.Query().Get("redirect_uri")).To(Equal("http://localhost/callback"))
			Expect(parsed.Query().Get("scope")).NotTo(BeEmpty())
		})
	})

	Describe("Token", func() {
		It("exchanges the code using basic auth and marks success", func() {
			var gotGrant, gotCode string
			var gotUser, gotPass string
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, gotPass, _ = r.BasicAuth()
				Expect(r.ParseForm()).To(Succeed())
				gotGrant = r.PostFormValue("grant_type")
				gotCode = r.PostFormValue("code")
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token": "at", "refresh_token": "rt", "expires_in": 3600}`))
			}))
			cfg.TokenURL = upstream.URL
			mount()

			body, _ := json.Marshal(gin.H{"code": "auth-code"})
			req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotUser).To(Equal("client-id"))
			Expect(gotPass).To(Equal("client-secret"))
			Expect(gotGrant).To(Equal("authorization_code"))
			Expect(gotCode).To(Equal("auth-code"))

			var tokens map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(Succeed())
			Expect(tokens["access_token"]).To(Equal("at"))
			Expect(tokens["success"]).To(Equal(true))
		})

		It("requires a code", func() {
			mount()

			req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader([]byte(`{}`)))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps upstream rejections to token_error", func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error": "invalid_grant"}`))
			}))
			cfg.TokenURL = upstream.URL
			mount()

			body, _ := json.Marshal(gin.H{"code": "expired"})
			req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("token_error"))
		})
	})

	Describe("Refresh", func() {
		It("sends the refresh grant", func() {
			var gotGrant string
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.ParseForm()).To(Succeed())
				gotGrant = r.PostFormValue("grant_type")
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token": "new-at", "expires_in": 3600}`))
			}))
			cfg.TokenURL = upstream.URL
			mount()

			body, _ := json.Marshal(gin.H{"refresh_token": "rt"})
			req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotGrant).To(Equal("refresh_token"))
		})
	})

	Describe("Search", func() {
		It("rejects requests without a bearer token", func() {
			mount()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=miles", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("relays the query with the caller's token", func() {
			var gotAuth, gotQuery, gotType string
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotQuery = r.URL.Query().Get("q")
				gotType = r.URL.Query().Get("type")
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"tracks": {"items": []}}`))
			}))
			cfg.APIURL = upstream.URL
			mount()

			req := httptest.NewRequest(http.MethodGet, "/search?q=miles+davis", nil)
			req.Header.Set("Authorization", "Bearer user-token")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotAuth).To(Equal("Bearer user-token"))
			Expect(gotQuery).To(Equal("miles davis"))
			Expect(gotType).To(Equal("track"))
			Expect(rec.Body.String()).To(ContainSubstring("tracks"))
		})
	})
})
