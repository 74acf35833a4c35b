package demoserver

import (
	"fmt"
	"net/http"
	"strings"
)

// Mode is the behaviour a demo page currently shows.
type Mode string

const (
	ModeHealthy  Mode = "healthy"
	ModeDegraded Mode = "degraded" // 503 with an error page
	ModeSlow     Mode = "slow"     // healthy content after SlowDelay
	ModeOutage   Mode = "outage"   // 500 with an empty body
	ModeShrunk   Mode = "shrunk"   // 200 with most of the content gone
)

var modes = []Mode{ModeHealthy, ModeDegraded, ModeSlow, ModeOutage, ModeShrunk}

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, bool) {
	for _, m := range modes {
		if string(m) == strings.ToLower(strings.TrimSpace(s)) {
			return m, true
		}
	}
	return "", false
}

// page is what one path renders in one mode.
type page struct {
	status      int
	contentType string
	body        string
}

// pageDef renders a path for any mode.
type pageDef struct {
	Path        string
	Description string
	render      func(Mode) page
}

func allPages() []pageDef {
	return []pageDef{
		{Path: "/", Description: "Public landing page", render: renderHome},
		{Path: "/status", Description: "Human-readable status page", render: renderStatus},
		{Path: "/api/health", Description: "Machine-readable health check", render: renderHealth},
	}
}

var components = []string{"API", "Dashboard", "Webhooks", "Scheduler", "Search", "Billing"}

func htmlPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body>
%s
</body>
</html>
`, title, body)
}

func renderHome(m Mode) page {
	switch m {
	case ModeDegraded:
		return page{http.StatusServiceUnavailable, "text/html", htmlPage("Unavailable",
			"  <h1>503 Service Unavailable</h1>\n  <p>The server is temporarily unable to handle the request.</p>")}
	case ModeOutage:
		return page{http.StatusInternalServerError, "text/html", ""}
	case ModeShrunk:
		return page{http.StatusOK, "text/html", htmlPage("Acme Cloud", "  <h1>Acme Cloud</h1>")}
	}

	var b strings.Builder
	b.WriteString("  <h1>Acme Cloud</h1>\n  <p>Deploy, observe and scale.</p>\n  <ul>\n")
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "    <li>Feature %d: managed infrastructure capability number %d.</li>\n", i, i)
	}
	b.WriteString("  </ul>\n  <footer>All systems operational.</footer>")
	return page{http.StatusOK, "text/html", htmlPage("Acme Cloud", b.String())}
}

func renderStatus(m Mode) page {
	switch m {
	case ModeOutage:
		return page{http.StatusInternalServerError, "text/html", ""}
	case ModeShrunk:
		return page{http.StatusOK, "text/html", htmlPage("Status", "  <p>Status unknown.</p>")}
	}

	status := "operational"
	code := http.StatusOK
	if m == ModeDegraded {
		status = "degraded: error rate elevated"
		code = http.StatusServiceUnavailable
	}
	var b strings.Builder
	b.WriteString("  <h1>System Status</h1>\n  <table>\n")
	for _, c := range components {
		fmt.Fprintf(&b, "    <tr><td>%s</td><td>%s</td></tr>\n", c, status)
	}
	b.WriteString("  </table>")
	return page{code, "text/html", htmlPage("System Status", b.String())}
}

func renderHealth(m Mode) page {
	switch m {
	case ModeDegraded:
		return page{http.StatusServiceUnavailable, "application/json",
			`{"status":"error","checks":{"database":"failed","cache":"ok"}}`}
	case ModeOutage:
		return page{http.StatusInternalServerError, "application/json", ""}
	case ModeShrunk:
		return page{http.StatusOK, "application/json", `{}`}
	}
	return page{http.StatusOK, "application/json",
		`{"status":"ok","checks":{"database":"ok","cache":"ok","queue":"ok"}}`}
}
