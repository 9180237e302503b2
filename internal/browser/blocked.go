package browser

import "strings"

// Challenge hints the site renders instead of content when it decides
// the visitor is automated. The Portuguese strings cover the
// marketplace's interstitials; the generic markers cover the usual
// third-party challenge widgets.
var blockHints = []string{
	"verifique que você não é um robô",
	"não somos um robô",
	"acesso temporariamente bloqueado",
	"verificação de segurança",
	"captcha",
	"g-recaptcha",
	"h-captcha",
	"cf-turnstile",
}

// looksBlocked scans rendered page HTML for anti-automation challenge
// markers.
func looksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, hint := range blockHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
