package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyIdentity is returned when a payload carries no usable user id.
var ErrEmptyIdentity = errors.New("identity record has no id")

// wireIdentity mirrors the backend user record. Role may arrive under
// "role" or "roleId", as a number or a string.
type wireIdentity struct {
	ID                 any     `json:"id"`
	Name               *string `json:"name"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Role               any     `json:"role"`
	RoleID             any     `json:"roleId"`
	Type               *string `json:"type"`
	CustomerID         any     `json:"customerId"`
	ForcePasswordReset bool    `json:"forcePasswordReset"`
}

// DecodeIdentity is the single place backend user records become Identity
// values. roleId wins over role when both are usable.
func DecodeIdentity(data []byte) (Identity, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var w wireIdentity
	if err := dec.Decode(&w); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return w.normalize()
}

// IdentityFromMap normalizes an already-decoded JSON object.
func IdentityFromMap(m map[string]any) (Identity, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return Identity{}, fmt.Errorf("encode identity: %w", err)
	}
	return DecodeIdentity(raw)
}

func (w wireIdentity) normalize() (Identity, error) {
	id := coerceInt(w.ID)
	if id <= 0 {
		return Identity{}, ErrEmptyIdentity
	}

	role := CoerceRoleID(w.RoleID)
	if role == RoleNone {
		role = CoerceRoleID(w.Role)
	}

	return Identity{
		ID:                 id,
		Name:               deref(w.Name),
		Email:              deref(w.Email),
		Phone:              deref(w.Phone),
		RoleID:             role,
		Type:               strings.TrimSpace(deref(w.Type)),
		CustomerID:         coerceInt(w.CustomerID),
		ForcePasswordReset: w.ForcePasswordReset,
	}, nil
}

// MarshalJSON writes the role under both names so older readers keep working.
func (i Identity) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":     i.ID,
		"name":   i.Name,
		"email":  i.Email,
		"role":   int(i.RoleID),
		"roleId": int(i.RoleID),
	}
	if i.Phone != "" {
		out["phone"] = i.Phone
	}
	if i.Type != "" {
		out["type"] = i.Type
	}
	if i.CustomerID != 0 {
		out["customerId"] = i.CustomerID
	}
	if i.ForcePasswordReset {
		out["forcePasswordReset"] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON applies the same normalization as DecodeIdentity.
func (i *Identity) UnmarshalJSON(data []byte) error {
	id, err := DecodeIdentity(data)
	if err != nil {
		return err
	}
	*i = id
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func coerceInt(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
	case int64:
		return t
	case int:
		return int64(t)
	}
	return 0
}
