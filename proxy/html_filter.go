package proxy

import (
	"bytes"
	"io"
	"strings"
)

const headTag = "<head"

// filterHTML replaces the original response with the one where the
// content script injection code is added to the document head
func (s *Server) filterHTML(session *Session) error {
	r := session.HTTPResponse

	body, err := session.decodeBody()
	defer r.Body.Close()

	if err != nil {
		return err
	}

	injection := s.buildInjectionCode(session)
	idx := findHeadInjectionIndex(body)
	body = body[:idx] + injection + body[idx:]

	modifiedBody, err := session.encodeBody(body)
	if err != nil {
		return err
	}

	r.Body = io.NopCloser(bytes.NewReader(modifiedBody))
	r.ContentLength = int64(len(modifiedBody))
	return nil
}

// findHeadInjectionIndex returns the position in the document where the
// injection code should be inserted. This is the first position after the
// opening <head> tag or the very beginning of the document when there is
// no head element.
func findHeadInjectionIndex(body string) int {
	lower := strings.ToLower(body)
	idx := strings.Index(lower, headTag)
	if idx == -1 {
		return 0
	}

	// Make sure this is a <head> tag and not, say, a <header>.
	next := idx + len(headTag)
	if next >= len(lower) || (lower[next] != '>' && lower[next] != ' ' && lower[next] != '\t' && lower[next] != '\n') {
		return 0
	}

	end := strings.IndexByte(lower[idx:], '>')
	if end == -1 {
		return 0
	}

	return idx + end + 1
}
