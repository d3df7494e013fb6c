package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
)

// Classify returns a normalized error class suitable for tagging metrics and logs.
// Auth failures are tagged by kind; anything else by its innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var ae *domainauth.Error
	if goerrors.As(err, &ae) {
		return "auth_" + string(ae.Kind)
	}
	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
