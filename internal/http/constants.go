package httpx

import domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"

// Template names.
const (
	TemplateLayout = "layout"
	TemplateLogin  = "login"
)

// Area names used by login pages and forms.
const (
	AreaStaff    = "staff"
	AreaCustomer = "customer"
)

// PageText is the chrome copy shared by the shell and login templates.
type PageText struct {
	AppTitle      string
	StaffLogin    string
	CustomerLogin string
	Identifier    string
	Password      string
	Submit        string
	StaffLink     string
	CustomerLink  string
	Logout        string
	Dashboard     string
	Repairs       string
	Customers     string
	Inventory     string
	Invoices      string
	Profile       string
}

var pageText = map[domainauth.Lang]PageText{
	domainauth.LangArabicEG: {
		AppTitle:      "فيكس زون",
		StaffLogin:    "تسجيل دخول الموظفين",
		CustomerLogin: "بوابة العملاء",
		Identifier:    "الإيميل أو الموبايل",
		Password:      "كلمة السر",
		Submit:        "دخول",
		StaffLink:     "دخول الموظفين",
		CustomerLink:  "أنا عميل",
		Logout:        "خروج",
		Dashboard:     "الرئيسية",
		Repairs:       "الصيانة",
		Customers:     "العملاء",
		Inventory:     "المخزن",
		Invoices:      "الفواتير",
		Profile:       "حسابي",
	},
	domainauth.LangEnglish: {
		AppTitle:      "FixZone",
		StaffLogin:    "Staff sign in",
		CustomerLogin: "Customer portal",
		Identifier:    "Email or phone",
		Password:      "Password",
		Submit:        "Sign in",
		StaffLink:     "Staff sign in",
		CustomerLink:  "I am a customer",
		Logout:        "Sign out",
		Dashboard:     "Dashboard",
		Repairs:       "Repairs",
		Customers:     "Customers",
		Inventory:     "Inventory",
		Invoices:      "Invoices",
		Profile:       "My account",
	},
}

func textFor(lang domainauth.Lang) PageText {
	if t, ok := pageText[lang]; ok {
		return t
	}
	return pageText[domainauth.LangArabicEG]
}
