package auth

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RoleID is the numeric role designator stored on backend user records.
type RoleID int

// RoleNone is what unusable role values coerce to. It belongs to no role set.
const RoleNone RoleID = 0

// Current role ids.
const (
	RoleAdmin      RoleID = 1
	RoleStaff      RoleID = 2
	RoleTechnician RoleID = 3
	RoleCustomer   RoleID = 8
)

// Legacy role ids from the schema before roles were renumbered.
// These stay supported indefinitely; retiring an id means adding its
// replacement, never removing it.
const (
	RoleTechnicianLegacy RoleID = 4
	RoleCustomerLegacy   RoleID = 6
)

var (
	customerRoleIDs   = []RoleID{RoleCustomer, RoleCustomerLegacy}
	technicianRoleIDs = []RoleID{RoleTechnician, RoleTechnicianLegacy}
)

// CustomerRoleIDs returns every role id that denotes a customer.
func CustomerRoleIDs() []RoleID { return append([]RoleID(nil), customerRoleIDs...) }

// TechnicianRoleIDs returns every role id that denotes a technician.
func TechnicianRoleIDs() []RoleID { return append([]RoleID(nil), technicianRoleIDs...) }

// CoerceRoleID converts a loosely typed role value (number, numeric string,
// json.Number) into a RoleID. Anything else yields RoleNone.
func CoerceRoleID(v any) RoleID {
	switch t := v.(type) {
	case nil:
		return RoleNone
	case RoleID:
		return t
	case int:
		return RoleID(t)
	case int32:
		return RoleID(t)
	case int64:
		return roleFromFloat(float64(t))
	case uint:
		return roleFromFloat(float64(t))
	case uint32:
		return RoleID(t)
	case uint64:
		return roleFromFloat(float64(t))
	case float32:
		return roleFromFloat(float64(t))
	case float64:
		return roleFromFloat(t)
	case json.Number:
		return roleFromString(t.String())
	case string:
		return roleFromString(t)
	default:
		return RoleNone
	}
}

func roleFromString(s string) RoleID {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoleNone
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return RoleID(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return RoleNone
	}
	return roleFromFloat(f)
}

func roleFromFloat(f float64) RoleID {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return RoleNone
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return RoleNone
	}
	return RoleID(int(f))
}

func memberOf(set []RoleID, id RoleID) bool {
	if id == RoleNone {
		return false
	}
	for _, r := range set {
		if r == id {
			return true
		}
	}
	return false
}

// IsCustomerRole reports whether v coerces to a current or legacy customer role id.
func IsCustomerRole(v any) bool {
	return memberOf(customerRoleIDs, CoerceRoleID(v))
}

// IsTechnicianRole reports whether v coerces to a current or legacy technician role id.
func IsTechnicianRole(v any) bool {
	return memberOf(technicianRoleIDs, CoerceRoleID(v))
}

// IsCustomer reports whether the identity is a customer by either signal:
// the type sentinel or the numeric role. Both are always OR'ed.
func IsCustomer(id Identity) bool {
	return strings.EqualFold(strings.TrimSpace(id.Type), TypeCustomer) || IsCustomerRole(id.RoleID)
}

// Classify maps an identity onto its audience. The customer check runs first
// so a type sentinel wins over a contradicting numeric role.
func Classify(id Identity) Audience {
	switch {
	case IsCustomer(id):
		return AudienceCustomer
	case IsTechnicianRole(id.RoleID):
		return AudienceTechnician
	default:
		return AudienceStaff
	}
}
