package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	// VisitorCookieName names the signed cookie that identifies a browser.
	VisitorCookieName = "fz_visitor"
	visitorMaxAge     = 365 * 24 * time.Hour
)

// VisitorCookies issues and verifies the visitor cookie. The cookie only
// selects which session store serves a browser; the backend's own cookie
// remains the credential.
type VisitorCookies struct {
	codec  *securecookie.SecureCookie
	Domain string
	Secure bool
}

// NewVisitorCookies builds the codec. An empty hashKey generates a random
// one, which invalidates every visitor cookie on restart.
func NewVisitorCookies(hashKey, blockKey []byte, domain string, secure bool) (*VisitorCookies, error) {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, errors.New("generate visitor hash key")
		}
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(visitorMaxAge / time.Second))
	return &VisitorCookies{codec: codec, Domain: domain, Secure: secure}, nil
}

// Read returns the verified visitor id, if the request carries one.
func (v *VisitorCookies) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(VisitorCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	var id string
	if err := v.codec.Decode(VisitorCookieName, c.Value, &id); err != nil {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Issue mints a new visitor id and sets its cookie.
func (v *VisitorCookies) Issue(w http.ResponseWriter, r *http.Request) (string, error) {
	id := uuid.NewString()
	encoded, err := v.codec.Encode(VisitorCookieName, id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   v.Domain,
		MaxAge:   int(visitorMaxAge / time.Second),
		HttpOnly: true,
		Secure:   v.Secure || isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

// Visitor attaches the visitor id to the request, issuing one on first visit.
func Visitor(v *VisitorCookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := v.Read(r)
			if !ok {
				var err error
				if id, err = v.Issue(w, r); err != nil {
					WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "visitor_cookie", Err: err})
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), id)))
		})
	}
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
