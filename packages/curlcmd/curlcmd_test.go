package curlcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleGet(t *testing.T) {
	parsed, err := Parse(`curl https://api.example.com/users`)
	require.NoError(t, err)

	assert.Equal(t, "curl", parsed.Program)
	assert.Equal(t, "GET", parsed.Method)
	assert.Equal(t, "https://api.example.com/users", parsed.URL)
	assert.Equal(t, "api.example.com", parsed.Host())
}

func TestParse_BrowserCapture(t *testing.T) {
	cmd := `curl "https://intranet.corp:8443/app/save?x=1" -H "Accept: */*" -H "Content-Type: application/x-www-form-urlencoded" --data-raw "name=a&note=\"hi\"" --compressed -k`

	parsed, err := Parse(cmd)
	require.NoError(t, err)

	assert.Equal(t, "POST", parsed.Method)
	assert.Equal(t, "https://intranet.corp:8443/app/save?x=1", parsed.URL)
	assert.Equal(t, "intranet.corp", parsed.Host())
	assert.Equal(t, "*/*", parsed.Headers["Accept"])
	assert.Equal(t, "application/x-www-form-urlencoded", parsed.Headers["Content-Type"])
	assert.Equal(t, `name=a&note="hi"`, parsed.Body)
	assert.True(t, parsed.Compressed)
	assert.True(t, parsed.Insecure)
}

func TestParse_ExplicitMethodKept(t *testing.T) {
	parsed, err := Parse(`curl -X put https://x/items/1 -d 'a=1' -d 'b=2'`)
	require.NoError(t, err)
	assert.Equal(t, "PUT", parsed.Method)
	assert.Equal(t, "a=1&b=2", parsed.Body)
}

func TestParse_SkipsCookieJarFlags(t *testing.T) {
	parsed, err := Parse(`curl -b "/d/cookies.txt" -c "/d/cookies.txt" --include "https://x/a" -L -u bob:pw`)
	require.NoError(t, err)
	assert.Equal(t, "https://x/a", parsed.URL)
	assert.True(t, parsed.FollowRedirects)
	assert.Equal(t, "bob:pw", parsed.User)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
	}{
		{"empty", ""},
		{"no url", "curl -H 'A: b'"},
		{"missing header value", "curl https://x -H"},
		{"not curl", "wget https://x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.cmd)
			assert.Error(t, err)
		})
	}
}

func TestParse_ProgramPath(t *testing.T) {
	parsed, err := Parse(`/usr/bin/curl https://x`)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/curl", parsed.Program)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", `a b  c`, []string{"a", "b", "c"}},
		{"double quotes", `a "b c" d`, []string{"a", "b c", "d"}},
		{"single quotes literal", `'a\"b $x'`, []string{`a\"b $x`}},
		{"escaped quote in double", `"a\"b"`, []string{`a"b`}},
		{"escaped dollar", `"\$5"`, []string{`$5`}},
		{"backslash kept before ordinary char", `"C:\tmp"`, []string{`C:\tmp`}},
		{"empty quoted argument", `a "" b`, []string{"a", "", "b"}},
		{"ansi-c quoting", `--data-raw $'{"a":1}'`, []string{"--data-raw", `{"a":1}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := "curl 'https://x/api' \\\n  -H 'Accept: */*' \\\n  --data-raw 'a=1'\n"
	assert.Equal(t, `curl 'https://x/api' -H 'Accept: */*' --data-raw 'a=1'`, Normalize(raw))

	cmdExe := "curl ^\"https://x/api^\" ^\n  -H ^\"Accept: */*^\"\n"
	assert.Equal(t, `curl ^"https://x/api^" -H ^"Accept: */*^"`, Normalize(cmdExe))

	assert.Equal(t, `curl x`, Normalize("# copied\n\ncurl x"))
}

func TestSplitCommands(t *testing.T) {
	raw := "curl 'https://x/a' \\\n  -H 'Accept: */*' ;\n" +
		"curl 'https://x/b' \\\n  --data-raw 'q=1' ;\n" +
		"\n# last one\n" +
		"/usr/bin/curl https://x/c\n"

	assert.Equal(t, []string{
		`curl 'https://x/a' -H 'Accept: */*'`,
		`curl 'https://x/b' --data-raw 'q=1'`,
		`/usr/bin/curl https://x/c`,
	}, SplitCommands(raw))

	// a continuation line starting with "curl" stays in the same command
	raw = "curl https://x/d \\\n  curlish-flag\n"
	assert.Equal(t, []string{`curl https://x/d curlish-flag`}, SplitCommands(raw))

	assert.Empty(t, SplitCommands("\n# nothing\n"))
}

func TestDefaultName(t *testing.T) {
	tests := []struct {
		method, url, want string
	}{
		{"POST", "https://x/api/users", "post_api_users"},
		{"GET", "https://x/", "get_root"},
		{"GET", "https://x", "get_root"},
		{"DELETE", "https://x/api/user-items/7?force=1", "delete_api_user_items_7"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultName(&Command{Method: tt.method, URL: tt.url}))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "get_user_list", SanitizeName("Get User--List!"))
	assert.Equal(t, "a_b", SanitizeName("__a__b__"))
}
