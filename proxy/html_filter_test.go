package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindHeadInjectionIndex(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want int
	}{{
		name: "head",
		body: "<html><head><title>t</title></head></html>",
		want: len("<html><head>"),
	}, {
		name: "head_with_attrs",
		body: `<html><HEAD lang="en"><title>t</title></HEAD></html>`,
		want: len(`<html><HEAD lang="en">`),
	}, {
		name: "header_is_not_head",
		body: "<html><header>nav</header></html>",
		want: 0,
	}, {
		name: "no_head",
		body: "<html><body></body></html>",
		want: 0,
	}, {
		name: "empty",
		body: "",
		want: 0,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, findHeadInjectionIndex(tc.body))
		})
	}
}
