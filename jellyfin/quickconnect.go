// Quick connect: sign in on a limited device by approving a short code
// from an already authenticated session.
package jellyfin

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"time"

	"github.com/finchmedia/finch-server/database/model"
	"github.com/finchmedia/finch-server/idhash"
)

// GET /QuickConnect/Enabled
func (s *Service) quickConnectEnabledHandler(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, true)
}

// newQuickConnectCode returns a six digit confirmation code.
func newQuickConnectCode() string {
	code := make([]byte, 6)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		code[i] = byte('0' + n.Int64())
	}
	return string(code)
}

// POST /QuickConnect/Initiate
func (s *Service) quickConnectInitiateHandler(w http.ResponseWriter, r *http.Request) {
	scheme := parseAuthScheme(r)
	qc := model.QuickConnect{
		Secret:   idhash.NewRandomID(),
		Code:     newQuickConnectCode(),
		DeviceID: scheme.deviceID,
		Created:  time.Now(),
	}
	if err := s.db.UpsertQuickConnect(r.Context(), qc); err != nil {
		internalError(w)
		return
	}
	serveJSON(w, JFQuickConnectResult{
		Secret:    qc.Secret,
		Code:      qc.Code,
		DeviceID:  qc.DeviceID,
		DateAdded: qc.Created,
	})
}

// GET /QuickConnect/Connect?secret=...
//
// Polled by the initiating device until someone authorizes its code.
func (s *Service) quickConnectConnectHandler(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		badRequest(w, "secret required")
		return
	}
	qc, err := s.db.GetQuickConnectBySecret(r.Context(), secret)
	if err != nil {
		notFound(w)
		return
	}
	serveJSON(w, JFQuickConnectResult{
		Authenticated: qc.Authorized,
		Secret:        qc.Secret,
		Code:          qc.Code,
		DeviceID:      qc.DeviceID,
		DateAdded:     qc.Created,
	})
}

// POST /QuickConnect/Authorize?code=...
//
// An authenticated user approves the code shown on the other device.
func (s *Service) quickConnectAuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		badRequest(w, "code required")
		return
	}
	qc, err := s.db.GetQuickConnectByCode(r.Context(), code)
	if err != nil {
		notFound(w)
		return
	}
	qc.UserID = user.ID
	qc.Authorized = true
	if err := s.db.UpsertQuickConnect(r.Context(), *qc); err != nil {
		internalError(w)
		return
	}
	serveJSON(w, true)
}
