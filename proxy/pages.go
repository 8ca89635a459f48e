package proxy

import (
	"bytes"
	"net/http"
	"strings"
	"text/template"

	"github.com/adblockgo/adblock/rules"

	"github.com/AdguardTeam/gomitmproxy/proxyutil"

	"github.com/AdguardTeam/golibs/log"
)

// blockedPageCode is served instead of the requests blocked by a filtering rule
const blockedPageCode = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8"/>
    <title>Blocked: {{.Hostname}}</title>
</head>
<body>
    <h1>Access to {{.Hostname}} is blocked</h1>
    <p>Blocked by the filtering rule: <code>{{.RuleText}}</code></p>
</body>
</html>
`

var blockedPageTmpl = template.Must(template.New("blockedPage").Parse(blockedPageCode))

type blockedPageParameters struct {
	Hostname string
	RuleText string
}

// buildBlockedPage builds blocked page content
func buildBlockedPage(session *Session, f *rules.NetworkFilter) string {
	params := blockedPageParameters{
		Hostname: session.Request.Hostname,
		RuleText: f.Text(),
	}

	var data bytes.Buffer
	if err := blockedPageTmpl.Execute(&data, params); err != nil {
		log.Error("error building blocking page code: %v", err)
		return ""
	}

	return data.String()
}

// newBlockedResponse creates an HTTP response for blocked request
func newBlockedResponse(session *Session, f *rules.NetworkFilter) *http.Response {
	html := buildBlockedPage(session, f)
	body := strings.NewReader(html)
	res := proxyutil.NewResponse(http.StatusInternalServerError, body, session.HTTPRequest)
	res.Close = true
	res.Header.Set("Content-Type", "text/html; charset=utf-8")
	return res
}
