package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
)

const maxRequestBody = 64 << 10

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// authErrorBody is the JSON shape of a failed auth call.
type authErrorBody struct {
	Error   domainauth.ErrorKind `json:"error"`
	Message string               `json:"message"`
	Field   string               `json:"field,omitempty"`
}

// WriteAuthError maps a session store failure to a status and a localized message.
func WriteAuthError(w http.ResponseWriter, r *http.Request, err error) {
	body := authErrorBody{
		Error:   domainauth.KindOf(err),
		Message: domainauth.Localize(err, requestLang(r)),
	}
	var ae *domainauth.Error
	if errors.As(err, &ae) {
		body.Field = ae.Field
	}
	WriteJSON(w, AuthErrorStatus(body.Error), body)
}

// AuthErrorStatus is the gateway status for an auth failure kind.
func AuthErrorStatus(kind domainauth.ErrorKind) int {
	switch kind {
	case domainauth.KindValidation:
		return http.StatusBadRequest
	case domainauth.KindInvalidCredentials, domainauth.KindUnauthenticated:
		return http.StatusUnauthorized
	case domainauth.KindAccountDisabled:
		return http.StatusForbidden
	case domainauth.KindUserNotFound:
		return http.StatusNotFound
	case domainauth.KindLoginInProgress, domainauth.KindCanceled:
		return http.StatusConflict
	case domainauth.KindRateLimited:
		return http.StatusTooManyRequests
	case domainauth.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func requestLang(r *http.Request) domainauth.Lang {
	if q := r.URL.Query().Get("lang"); q != "" {
		return domainauth.ParseLang(q)
	}
	return domainauth.ParseLang(r.Header.Get("Accept-Language"))
}
