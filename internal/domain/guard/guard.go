// Package guard decides, for every navigation, whether a page renders,
// which layout wraps it, or where the visitor is redirected instead.
// Decisions are recomputed on each call; nothing is cached.
package guard

import (
	"net/url"
	"strings"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
)

// Kind is the outcome of a guard evaluation.
type Kind string

const (
	// KindPending means the session has not been confirmed yet; show a neutral loading state.
	KindPending Kind = "pending"
	// KindRedirectLogin means there is no valid session.
	KindRedirectLogin Kind = "redirect_login"
	// KindRedirectHome means the session is valid but belongs to another audience.
	KindRedirectHome Kind = "redirect_home"
	// KindRender means the page may be shown.
	KindRender Kind = "render"
	// KindPublic means the path is not protected.
	KindPublic Kind = "public"
)

// Layout is the page chrome wrapped around rendered content.
type Layout string

const (
	LayoutStaff      Layout = "staff"
	LayoutTechnician Layout = "technician"
	LayoutCustomer   Layout = "customer"
)

// Home routes per audience.
const (
	HomeStaff      = "/"
	HomeTechnician = "/tech/dashboard"
	HomeCustomer   = "/customer/dashboard"
)

// Login routes.
const (
	LoginStaff    = "/login"
	LoginCustomer = "/customer/login"
)

// Area is a portion of the route tree with its own login page and audience rules.
type Area struct {
	Name   string
	Prefix string
	// Aliases are further prefixes owned by the area.
	Aliases   []string
	LoginPath string
	Allowed   []domainauth.Audience
	// ForceLayout, when set, overrides the audience-derived layout.
	ForceLayout Layout
}

func (a Area) allows(aud domainauth.Audience) bool {
	for _, x := range a.Allowed {
		if x == aud {
			return true
		}
	}
	return false
}

func (a Area) matches(path string) bool {
	if a.Prefix == "" || a.Prefix == "/" {
		return true
	}
	if underPrefix(path, a.Prefix) {
		return true
	}
	for _, alias := range a.Aliases {
		if underPrefix(path, alias) {
			return true
		}
	}
	return false
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Input is everything a decision depends on.
type Input struct {
	State domainauth.State
	// Path is the requested path; a query string, if any, is preserved in login redirects.
	Path string
}

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Kind     Kind
	Area     string
	Location string
	Layout   Layout
	Audience domainauth.Audience
}

// Policy holds the ordered area table and the public path list.
// The first matching area wins, so the default area goes last.
type Policy struct {
	Areas        []Area
	PublicPaths  []string
	PublicPrefix []string
}

// DefaultPolicy returns the FixZone route tree.
func DefaultPolicy() Policy {
	return Policy{
		Areas: []Area{
			{
				Name:        "customer",
				Prefix:      "/customer",
				LoginPath:   LoginCustomer,
				Allowed:     []domainauth.Audience{domainauth.AudienceCustomer, domainauth.AudienceStaff},
				ForceLayout: LayoutCustomer,
			},
			{
				Name:      "technician",
				Prefix:    "/tech",
				Aliases:   []string{"/technician"},
				LoginPath: LoginStaff,
				Allowed:   []domainauth.Audience{domainauth.AudienceTechnician, domainauth.AudienceStaff},
			},
			{
				Name:      "staff",
				Prefix:    "/",
				LoginPath: LoginStaff,
				Allowed:   []domainauth.Audience{domainauth.AudienceStaff, domainauth.AudienceTechnician},
			},
		},
		PublicPaths:  []string{LoginStaff, LoginCustomer, "/healthz", "/favicon.ico"},
		PublicPrefix: []string{"/track/", "/static/", "/api/auth/", "/auth/"},
	}
}

// IsPublic reports whether path bypasses the guard.
func (p Policy) IsPublic(path string) bool {
	for _, pp := range p.PublicPaths {
		if path == pp {
			return true
		}
	}
	for _, pre := range p.PublicPrefix {
		if strings.HasPrefix(path, pre) {
			return true
		}
	}
	return false
}

// AreaFor returns the area owning path.
func (p Policy) AreaFor(path string) (Area, bool) {
	for _, a := range p.Areas {
		if a.matches(path) {
			return a, true
		}
	}
	return Area{}, false
}

// Decide evaluates one navigation attempt.
func (p Policy) Decide(in Input) Decision {
	path, query := splitPath(in.Path)
	if p.IsPublic(path) {
		return Decision{Kind: KindPublic}
	}

	area, ok := p.AreaFor(path)
	if !ok {
		area = Area{Name: "staff", LoginPath: LoginStaff, Allowed: []domainauth.Audience{domainauth.AudienceStaff}}
	}

	if !in.State.Resolved {
		return Decision{Kind: KindPending, Area: area.Name}
	}

	aud, authed := in.State.Audience()
	if !authed {
		return Decision{
			Kind:     KindRedirectLogin,
			Area:     area.Name,
			Location: loginLocation(area.LoginPath, path, query),
		}
	}

	if !area.allows(aud) {
		return Decision{
			Kind:     KindRedirectHome,
			Area:     area.Name,
			Location: HomeFor(aud),
			Audience: aud,
		}
	}

	layout := area.ForceLayout
	if layout == "" {
		layout = LayoutFor(aud)
	}
	return Decision{Kind: KindRender, Area: area.Name, Layout: layout, Audience: aud}
}

// HomeFor returns the landing route of an audience.
func HomeFor(aud domainauth.Audience) string {
	switch aud {
	case domainauth.AudienceTechnician:
		return HomeTechnician
	case domainauth.AudienceCustomer:
		return HomeCustomer
	default:
		return HomeStaff
	}
}

// LayoutFor returns the layout an audience sees outside forced areas.
func LayoutFor(aud domainauth.Audience) Layout {
	switch aud {
	case domainauth.AudienceTechnician:
		return LayoutTechnician
	case domainauth.AudienceCustomer:
		return LayoutCustomer
	default:
		return LayoutStaff
	}
}

// HomeForState is the post-login destination for a state; unauthenticated
// states go to the staff login.
func HomeForState(s domainauth.State) string {
	aud, ok := s.Audience()
	if !ok {
		return LoginStaff
	}
	return HomeFor(aud)
}

func splitPath(raw string) (string, string) {
	if raw == "" {
		return "/", ""
	}
	path, query, _ := strings.Cut(raw, "?")
	if path == "" {
		path = "/"
	}
	return path, query
}

func loginLocation(loginPath, path, query string) string {
	target := path
	if query != "" {
		target += "?" + query
	}
	if target == "/" || target == loginPath {
		return loginPath
	}
	v := url.Values{}
	v.Set("redirect_uri", target)
	return loginPath + "?" + v.Encode()
}
