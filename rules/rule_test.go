package rules_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/adblockgo/adblock/rules"
	"github.com/stretchr/testify/assert"
)

// testFilterListID is a test filter list ID.
const testFilterListID = 1

func TestNewRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in         string
		name       string
		wantErrMsg string
		wantNil    bool
	}{{
		in:         "",
		name:       "empty",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         " ",
		name:       "space",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "! comment",
		name:       "comment",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "#",
		name:       "comment_hash",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "# comment",
		name:       "comment_hash_space",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "##banner",
		name:       "element_hiding",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "example.org#@#banner",
		name:       "element_unhiding",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "||example.test^",
		name:       "network",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "@@||example.test^$third-party",
		name:       "network_whitelist",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:   "||",
		name: "too_wide",
		wantErrMsg: "the rule is too wide, add domain restrictions " +
			"or make it more specific",
		wantNil: true,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewRule(tc.in, testFilterListID)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)

			if tc.wantNil {
				assert.Nil(t, r)
			} else {
				assert.NotNil(t, r)
				assert.Equal(t, testFilterListID, r.GetFilterListID())
				assert.Equal(t, tc.in, r.Text())
			}
		})
	}
}

func FuzzNewRule(f *testing.F) {
	for _, seed := range []string{
		"",
		" ",
		"\n",
		"!",
		"#",
		"# comment",
		"##banner",
		"example.org#@#.ad",
		"||example.org^",
		"/regex/",
		"@@||example.org^$third-party",
		"||example.org^$domain=example.com|~sub.example.com,script",
		"example.com##script:inject(foo.js)",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		assert.NotPanics(t, func() {
			_, _ = rules.NewRule(in, testFilterListID)
		})
	})
}
