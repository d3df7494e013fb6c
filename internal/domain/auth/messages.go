package auth

import (
	"errors"
	"strings"
)

// Lang selects the message table used by Localize.
type Lang string

const (
	LangArabicEG Lang = "ar-EG"
	LangEnglish  Lang = "en"
)

var kindMessages = map[Lang]map[ErrorKind]string{
	LangArabicEG: {
		KindValidation:         "لازم تدخل الإيميل أو الموبايل وكلمة السر",
		KindInvalidCredentials: "كلمة السر غلط",
		KindUserNotFound:       "مفيش يوزر بالبيانات دي",
		KindAccountDisabled:    "الحساب معطل. يرجى التواصل مع الإدارة",
		KindRateLimited:        "حاولت كتير خالص، استنى 15 دقيقة وحاول تاني",
		KindNetwork:            "مفيش نت، اتشيك على الاتصال",
		KindTimeout:            "السيرفر اتأخر في الرد، حاول تاني",
		KindServer:             "في مشكلة في السيرفر، حاول تاني",
		KindUnauthenticated:    "يجب تسجيل الدخول للوصول لهذه الصفحة",
		KindLoginInProgress:    "جاري تسجيل الدخول، استنى شوية",
		KindCanceled:           "الطلب اتلغى",
	},
	LangEnglish: {
		KindValidation:         "Please enter your email or phone and password",
		KindInvalidCredentials: "Incorrect password",
		KindUserNotFound:       "No user matches these details",
		KindAccountDisabled:    "This account is disabled. Please contact the administrator",
		KindRateLimited:        "Too many login attempts, wait 15 minutes and try again",
		KindNetwork:            "No connection, check your network",
		KindTimeout:            "The server took too long to answer, try again",
		KindServer:             "Something went wrong on the server, try again",
		KindUnauthenticated:    "You must sign in to view this page",
		KindLoginInProgress:    "Signing in, please wait",
		KindCanceled:           "The request was canceled",
	},
}

var fieldMessages = map[Lang]map[string]string{
	LangArabicEG: {
		"loginIdentifier." + ReasonRequired: "لازم تدخل الإيميل أو الموبايل",
		"loginIdentifier." + ReasonTooShort: "الإيميل أو الموبايل قصير أوي",
		"password." + ReasonRequired:        "لازم تدخل كلمة السر",
		"password." + ReasonTooShort:        "كلمة السر لازم تكون 8 أحرف على الأقل",
		"name." + ReasonRequired:            "الاسم مطلوب",
		"email." + ReasonInvalid:            "صيغة الإيميل مش صحيحة",
	},
	LangEnglish: {
		"loginIdentifier." + ReasonRequired: "Email or phone is required",
		"loginIdentifier." + ReasonTooShort: "Email or phone is too short",
		"password." + ReasonRequired:        "Password is required",
		"password." + ReasonTooShort:        "Password must be at least 8 characters",
		"name." + ReasonRequired:            "Name is required",
		"email." + ReasonInvalid:            "Invalid email format",
	},
}

var unexpectedMessage = map[Lang]string{
	LangArabicEG: "حصل خطأ مش متوقع",
	LangEnglish:  "An unexpected error occurred",
}

// ParseLang picks a supported language from an Accept-Language style value.
// Arabic is the default.
func ParseLang(v string) Lang {
	v = strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(v, "en") {
		return LangEnglish
	}
	return LangArabicEG
}

// Localize returns the user-facing text for err. Unrecognized failures fall
// back to the raw backend message so new backend errors stay readable.
func Localize(err error, lang Lang) string {
	if err == nil {
		return ""
	}
	if _, ok := kindMessages[lang]; !ok {
		lang = LangArabicEG
	}

	var ae *Error
	if !errors.As(err, &ae) {
		return unexpectedMessage[lang]
	}

	if ae.Kind == KindValidation && ae.Field != "" {
		if msg, ok := fieldMessages[lang][ae.Field+"."+ae.Reason]; ok {
			return msg
		}
	}
	if msg, ok := kindMessages[lang][ae.Kind]; ok {
		return msg
	}
	if strings.TrimSpace(ae.Message) != "" {
		return ae.Message
	}
	return unexpectedMessage[lang]
}
