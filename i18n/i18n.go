// Package i18n holds the message catalog served by the API (English and
// Spanish) plus helpers to carry the negotiated language in a context.
package i18n

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default is used when no supported language is requested.
const Default = "en"

type ctxKey struct{}

var catalog = map[string]map[string]string{
	"en": {
		"required":          "Required",
		"too_long":          "Too long",
		"too_short":         "Too short",
		"must_be_positive":  "Must be greater than zero",
		"invalid_amount":    "Invalid amount",
		"invalid_date":      "Invalid date",
		"invalid_email":     "Invalid email address",
		"invalid_role":      "Invalid role",
		"not_resident":      "The selected user is not a resident",
		"not_found":         "Does not exist",
		"due_before_issue":  "Due date cannot precede the issue date",
		"password_mismatch": "Passwords do not match",
		"password_wrong":    "Current password is incorrect",
		"already_taken":     "Already taken",
		"malformed_body":    "Malformed request body",

		"age_now":          "just now",
		"age_minute_one":   "%d minute ago",
		"age_minute_other": "%d minutes ago",
		"age_hour_one":     "%d hour ago",
		"age_hour_other":   "%d hours ago",
		"age_day_one":      "%d day ago",
		"age_day_other":    "%d days ago",
	},
	"es": {
		"required":          "Obligatorio",
		"too_long":          "Demasiado largo",
		"too_short":         "Demasiado corto",
		"must_be_positive":  "Debe ser mayor que cero",
		"invalid_amount":    "Monto inválido",
		"invalid_date":      "Fecha inválida",
		"invalid_email":     "Correo electrónico inválido",
		"invalid_role":      "Rol inválido",
		"not_resident":      "El usuario seleccionado no es un residente",
		"not_found":         "No existe",
		"due_before_issue":  "La fecha de vencimiento no puede ser anterior a la de emisión",
		"password_mismatch": "Las contraseñas no coinciden",
		"password_wrong":    "La contraseña actual es incorrecta",
		"already_taken":     "Ya está en uso",
		"malformed_body":    "Cuerpo de la solicitud inválido",

		"age_now":          "justo ahora",
		"age_minute_one":   "hace %d minuto",
		"age_minute_other": "hace %d minutos",
		"age_hour_one":     "hace %d hora",
		"age_hour_other":   "hace %d horas",
		"age_day_one":      "hace %d día",
		"age_day_other":    "hace %d días",
	},
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// T translates code into lang. Unknown languages use the default catalog;
// unknown codes are returned unchanged.
func T(lang, code string) string {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalog[Default][code]; ok {
		return s
	}
	return code
}

// Plural picks the "_one" or "_other" form of key and formats n into it.
func Plural(lang, key string, n int) string {
	form := "_other"
	if n == 1 {
		form = "_one"
	}
	return fmt.Sprintf(T(lang, key+form), n)
}

// DetectLanguage returns the first supported language of an
// Accept-Language header, or Default.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if Supported(base) {
			return base
		}
	}
	return Default
}

// WithLang stores the negotiated language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFrom returns the language stored in ctx, or Default.
func LangFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return Default
}

// RelativeAge renders how long ago created was, as seen at now.
// Anything 30 days or older is shown as an absolute dd/mm/yyyy date.
func RelativeAge(lang string, created, now time.Time) string {
	d := now.Sub(created)
	switch {
	case d < time.Minute:
		return T(lang, "age_now")
	case d < time.Hour:
		return Plural(lang, "age_minute", int(d/time.Minute))
	case d < 24*time.Hour:
		return Plural(lang, "age_hour", int(d/time.Hour))
	case d < 30*24*time.Hour:
		return Plural(lang, "age_day", int(d/(24*time.Hour)))
	default:
		return created.Format("02/01/2006")
	}
}
