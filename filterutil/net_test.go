package filterutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProbablyIP(t *testing.T) {
	testCases := []struct {
		s    string
		want bool
	}{{
		s:    "127.0.0.1",
		want: true,
	}, {
		s:    "2001:0db8:0000:0000:0000:8a2e:0370:7334",
		want: true,
	}, {
		s:    "[2001:db8::8a2e:370:7334]",
		want: true,
	}, {
		s:    "random string",
		want: false,
	}, {
		s:    "example.org",
		want: false,
	}, {
		s:    "",
		want: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.s, func(t *testing.T) {
			assert.Equal(t, tc.want, IsProbablyIP(tc.s))
		})
	}
}
