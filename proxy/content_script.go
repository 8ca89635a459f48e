package proxy

import (
	"bytes"
	"io"
	"net/http"
	"text/template"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
	"github.com/adblockgo/adblock"
)

// This code is to be injected in the page
const contentScriptCode = `
<script src="//{{.InjectionHostname}}/content-script.js?hostname={{.Hostname}}&ts={{.Timestamp}}"></script>
`

var contentScriptURLTmpl = template.Must(template.New("contentScriptCode").Parse(contentScriptCode))

// contentScriptJS is the content script served from the injections host.
// It hides the matching elements, removes inline scripts matching the
// blocking patterns, and appends the injected scripts to the page.
const contentScriptJS = `(function () {
    "use strict";

    var hide = [{{range $i, $s := .Selectors}}{{if $i}},{{end}}{{printf "%q" $s}}{{end}}];
    var block = [{{range $i, $s := .Result.ScriptsBlock}}{{if $i}},{{end}}{{printf "%q" $s}}{{end}}];
    var inject = [{{range $i, $s := .Result.ScriptsInject}}{{if $i}},{{end}}{{printf "%q" $s}}{{end}}];

    if (hide.length > 0) {
        var style = document.createElement("style");
        style.textContent = hide.join(", ") + " { display: none !important; }";
        (document.head || document.documentElement).appendChild(style);
    }

    if (block.length > 0) {
        var patterns = block.map(function (p) { return new RegExp(p); });
        new MutationObserver(function (mutations) {
            mutations.forEach(function (m) {
                Array.prototype.forEach.call(m.addedNodes, function (node) {
                    if (node.tagName !== "SCRIPT") {
                        return;
                    }
                    var text = node.textContent;
                    if (patterns.some(function (p) { return p.test(text); })) {
                        node.textContent = "";
                        node.remove();
                    }
                });
            });
        }).observe(document.documentElement, { childList: true, subtree: true });
    }

    inject.forEach(function (src) {
        var el = document.createElement("script");
        el.src = src;
        (document.head || document.documentElement).appendChild(el);
    });
})();
`

var contentScriptTmpl = template.Must(template.New("contentScript").Parse(contentScriptJS))

type contentScriptURLParameters struct {
	Hostname          string
	InjectionHostname string
	Timestamp         int64 // just to avoid caching
}

type contentScriptParameters struct {
	Selectors []string               // all element hiding selectors, generic and specific
	Result    adblock.CosmeticResult // cosmetic result
}

// buildInjectionCode creates HTML code for the content script injection
func (s *Server) buildInjectionCode(session *Session) string {
	params := contentScriptURLParameters{
		Hostname:          session.Request.Hostname,
		InjectionHostname: s.InjectionHost,
		Timestamp:         s.createdAt.Unix(),
	}
	var data bytes.Buffer
	if err := contentScriptURLTmpl.Execute(&data, params); err != nil {
		log.Error("error building injection code: %v", err)
		return ""
	}

	return data.String()
}

// buildContentScriptCode executes the content script code template
func (s *Server) buildContentScriptCode(result adblock.CosmeticResult) string {
	params := contentScriptParameters{
		Selectors: append(
			append([]string{}, result.ElementHiding.Generic...),
			result.ElementHiding.Specific...,
		),
		Result: result,
	}

	var data bytes.Buffer
	if err := contentScriptTmpl.Execute(&data, params); err != nil {
		log.Error("error building content script code: %v", err)
		return ""
	}

	return data.String()
}

// buildContentScript builds the content script content
func (s *Server) buildContentScript(session *Session) *http.Response {
	r := session.HTTPRequest
	if r.Method != http.MethodGet {
		return newNotFoundResponse(r)
	}

	hostname := getQueryParameter(r, "hostname")
	ts := int64(getQueryParameterUint64(r, "ts"))

	if hostname == "" || ts == 0 {
		return newNotFoundResponse(r)
	}

	if ts == s.createdAt.Unix() && r.Header.Get("If-Modified-Since") != "" {
		// Simply return a 304 Not-Modified response
		res := proxyutil.NewResponse(http.StatusNotModified, nil, r)
		res.Header.Set("Content-Type", "text/javascript; charset=utf-8")

		// re-enable the cache
		enableCache(res)
		return res
	}

	cosmeticResult := s.engine.GetCosmeticResult(hostname)
	bodyBytes := []byte(s.buildContentScriptCode(cosmeticResult))
	contentLen := len(bodyBytes)

	var bodyReader io.Reader

	if s.CompressContentScript {
		b, err := compressGzip(bodyBytes)
		if err != nil {
			log.Error("failed to compress content script: %v", err)
			return proxyutil.NewErrorResponse(r, err)
		}
		contentLen = b.Len()
		bodyReader = io.NopCloser(b)
	} else {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	res := proxyutil.NewResponse(http.StatusOK, bodyReader, r)
	res.Header.Set("Content-Type", "text/javascript; charset=utf-8")
	res.ContentLength = int64(contentLen)

	if s.CompressContentScript {
		res.Header.Set("Content-Encoding", "gzip")
	}

	// make the browser cache the response
	enableCache(res)
	return res
}
