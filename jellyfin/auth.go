// Request identity and sign-in.
//
// Token transport per the Emby/Jellyfin auth schemes:
// https://gist.github.com/nielsvanvelzen/ea047d9028f676185832e51ffaf12a6f
package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finchmedia/finch-server/database/model"
)

type contextKey int

const identityKey contextKey = iota

// identity is what the middleware attaches to authenticated requests.
type identity struct {
	user  *model.User
	token *model.AccessToken
}

// identify resolves the request's token, if any, and attaches the user.
// Requests without a (valid) token pass through anonymously; each
// endpoint decides whether that is acceptable.
func (s *Service) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		at, err := s.db.GetAccessToken(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.db.GetUserByID(r.Context(), at.UserID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		at.LastUsed = time.Now()
		s.db.UpsertAccessToken(r.Context(), *at)

		ctx := context.WithValue(r.Context(), identityKey, &identity{user: user, token: at})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user, or nil.
func currentUser(r *http.Request) *model.User {
	if id, ok := r.Context().Value(identityKey).(*identity); ok {
		return id.user
	}
	return nil
}

// mustUser returns the authenticated user or writes a 401.
func mustUser(w http.ResponseWriter, r *http.Request) *model.User {
	u := currentUser(r)
	if u == nil {
		unauthorized(w)
	}
	return u
}

var reAuthToken = regexp.MustCompile(`[Tt]oken="([^"]+)"`)

// extractToken pulls the access token out of any of the transports
// clients use: the two authorization headers' Token field, the two
// plain token headers, or a query parameter.
func extractToken(r *http.Request) string {
	for _, header := range []string{"Authorization", "X-Emby-Authorization"} {
		if v := r.Header.Get(header); v != "" {
			if m := reAuthToken.FindStringSubmatch(v); m != nil {
				return m[1]
			}
		}
	}
	for _, header := range []string{"X-Emby-Token", "X-MediaBrowser-Token"} {
		if v := r.Header.Get(header); v != "" {
			return v
		}
	}
	q := r.URL.Query()
	for _, param := range []string{"apiKey", "api_key"} {
		if v := q.Get(param); v != "" {
			return v
		}
	}
	return ""
}

// authScheme is the parsed MediaBrowser authorization header.
type authScheme struct {
	client     string
	device     string
	deviceID   string
	version    string
}

var reSchemeField = regexp.MustCompile(`(\w+)="([^"]*)"`)

func parseAuthScheme(r *http.Request) authScheme {
	var a authScheme
	header := r.Header.Get("Authorization")
	if header == "" {
		header = r.Header.Get("X-Emby-Authorization")
	}
	for _, m := range reSchemeField.FindAllStringSubmatch(header, -1) {
		switch strings.ToLower(m[1]) {
		case "client":
			a.client = m[2]
		case "device":
			a.device = m[2]
		case "deviceid":
			a.deviceID = m[2]
		case "version":
			a.version = m[2]
		}
	}
	return a
}

// POST /Users/AuthenticateByName
func (s *Service) authenticateByNameHandler(w http.ResponseWriter, r *http.Request) {
	var req JFAuthenticateByNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.Username == "" {
		badRequest(w, "username required")
		return
	}
	username := strings.ToLower(req.Username)

	user, err := s.db.GetUser(r.Context(), username)
	switch {
	case err == nil:
		if err := checkPassword(user.Password, req.Pw); err != nil {
			unauthorized(w)
			return
		}
	case errors.Is(err, model.ErrNotFound) && s.autoRegister:
		user, err = s.registerUser(r.Context(), username)
		if err != nil {
			internalError(w)
			return
		}
	default:
		unauthorized(w)
		return
	}

	token, err := s.issueToken(r, user)
	if err != nil {
		internalError(w)
		return
	}
	serveJSON(w, s.authResult(r.Context(), user, token))
}

// POST /Users/AuthenticateWithQuickConnect
func (s *Service) authenticateQuickConnectHandler(w http.ResponseWriter, r *http.Request) {
	var req JFAuthenticateQuickConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	qc, err := s.db.GetQuickConnectBySecret(r.Context(), req.Secret)
	if err != nil || !qc.Authorized || qc.UserID == "" {
		unauthorized(w)
		return
	}
	user, err := s.db.GetUserByID(r.Context(), qc.UserID)
	if err != nil {
		unauthorized(w)
		return
	}
	s.db.DeleteQuickConnect(r.Context(), req.Secret)

	token, err := s.issueToken(r, user)
	if err != nil {
		internalError(w)
		return
	}
	serveJSON(w, s.authResult(r.Context(), user, token))
}

// registerUser creates an account with an empty password.
func (s *Service) registerUser(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{
		ID:       uuid.NewString(),
		Username: username,
		Created:  time.Now(),
	}
	if err := s.db.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("auto-registered user %q", username)
	return user, nil
}

// issueToken mints a fresh session token for the client.
func (s *Service) issueToken(r *http.Request, user *model.User) (*model.AccessToken, error) {
	scheme := parseAuthScheme(r)
	token := &model.AccessToken{
		Token:      uuid.NewString(),
		UserID:     user.ID,
		DeviceID:   scheme.deviceID,
		DeviceName: scheme.device,
		AppName:    scheme.client,
		AppVersion: scheme.version,
		Created:    time.Now(),
		LastUsed:   time.Now(),
	}
	if err := s.db.UpsertAccessToken(r.Context(), *token); err != nil {
		return nil, err
	}

	user.LastSeen = time.Now()
	if err := s.db.UpsertUser(r.Context(), user); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *Service) authResult(ctx context.Context, user *model.User, token *model.AccessToken) JFAuthenticateResult {
	return JFAuthenticateResult{
		User:        s.makeUser(user),
		AccessToken: token.Token,
		ServerID:    s.serverID,
		SessionInfo: JFSessionInfo{
			ID:         token.Token,
			UserID:     user.ID,
			UserName:   user.Username,
			DeviceID:   token.DeviceID,
			DeviceName: token.DeviceName,
			Client:     token.AppName,
		},
	}
}

// checkPassword verifies a login attempt. Accounts with an empty stored
// hash (auto-registered) accept any password.
func checkPassword(hash, password string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.ErrInvalidPassword
	}
	return nil
}

// hashPassword prepares a password for storage.
func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}
