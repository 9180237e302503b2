package browser

import "math/rand/v2"

// Agent and locale pools rotated per session so consecutive runs don't
// present identical fingerprints on top of the stealth patches.
var (
	agentPool = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	}
	localePool = []string{"pt-BR", "pt-PT", "es-AR", "en-US"}
)

// browserProfile is the identity one session presents: user agent,
// accept language, and a viewport that never repeats exactly.
type browserProfile struct {
	agent  string
	locale string
	width  int
	height int
}

func pickProfile() browserProfile {
	return browserProfile{
		agent:  agentPool[rand.IntN(len(agentPool))],
		locale: localePool[rand.IntN(len(localePool))],
		width:  1200 + rand.IntN(401),
		height: 700 + rand.IntN(251),
	}
}
