package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// Middleware picks the best loaded language for the request's
// Accept-Language header and injects its localizer into the context.
// Requests without a usable header get lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	fallback := NewLocalizer(lang)
	supported := Languages()
	matcher := language.NewMatcher(supported)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := fallback
			chosen := lang
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				tags, _, err := language.ParseAcceptLanguage(accept)
				if err == nil && len(tags) > 0 {
					_, idx, conf := matcher.Match(tags...)
					if conf != language.No {
						chosen = supported[idx].String()
						loc = NewLocalizer(chosen)
					}
				}
			}
			w.Header().Set("Content-Language", chosen)
			ctx := WithLocalizer(r.Context(), loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
