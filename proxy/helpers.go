package proxy

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeBody reads the whole response body and decodes it to a string
// using the charset from the Content-Type header. UTF-8 is assumed when
// the charset is unknown or not specified.
func (s *Session) decodeBody() (string, error) {
	if cm := sessionCharmap(s.Charset); cm != nil {
		r := transform.NewReader(s.HTTPResponse.Body, cm.NewDecoder())
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	b, err := io.ReadAll(s.HTTPResponse.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeBody encodes the modified body back using the response charset
func (s *Session) encodeBody(body string) ([]byte, error) {
	if cm := sessionCharmap(s.Charset); cm != nil {
		return cm.NewEncoder().Bytes([]byte(body))
	}

	return []byte(body), nil
}

// sessionCharmap returns the character map for the legacy single-byte
// charsets we can transcode, nil otherwise.
func sessionCharmap(charset string) *charmap.Charmap {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1251":
		return charmap.Windows1251
	case "windows-1252":
		return charmap.Windows1252
	default:
		return nil
	}
}
