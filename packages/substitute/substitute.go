// Package substitute fills caller data into a sanitized request template.
package substitute

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/panasenco/WebAutomation/packages/sanitize"
)

const (
	// UsernameKey and PasswordKey carry the alternate-auth credentials in the data map.
	UsernameKey = "username"
	PasswordKey = "password"
)

var bodyFlagRe = regexp.MustCompile(`(?:^|\s)(?:--data(?:-raw|-binary|-ascii)?|-d)\s+["']`)

// Fill rewrites the request body of template with data and optionally swaps
// in alternate (NTLM) authentication. Keys absent from the body are ignored.
func Fill(template string, data map[string]string, useAltAuth bool) string {
	command := FillBody(template, data)
	if useAltAuth {
		command = WithAltAuth(command, data[UsernameKey], data[PasswordKey])
	}
	return command
}

// FillBody replaces the values of body fields named in data with their
// percent-encoded replacements. Only the first data argument is rewritten.
func FillBody(template string, data map[string]string) string {
	start, end, ok := BodySpan(template)
	if !ok || len(data) == 0 {
		return template
	}

	body := ReplaceFields(template[start:end], data)
	return template[:start] + body + template[end:]
}

// BodySpan locates the contents of the first quoted data argument. A
// single-quoted body ends at the next single quote; a double-quoted one at the
// next unescaped double quote.
func BodySpan(command string) (start, end int, ok bool) {
	loc := bodyFlagRe.FindStringIndex(command)
	if loc == nil {
		return 0, 0, false
	}
	start = loc[1]

	if command[start-1] == '\'' {
		if i := strings.IndexByte(command[start:], '\''); i >= 0 {
			return start, start + i, true
		}
		return start, len(command), true
	}

	for i := start; i < len(command); i++ {
		switch command[i] {
		case '\\':
			i++
		case '"':
			return start, i, true
		}
	}
	// Unterminated: treat the rest of the command as the body.
	return start, len(command), true
}

// ReplaceFields rewrites every "key=value" field of an urlencoded body whose
// key appears in data. Field order and untouched fields are preserved.
func ReplaceFields(body string, data map[string]string) string {
	if body == "" {
		return body
	}

	fields := strings.Split(body, "&")
	for i, field := range fields {
		name, _, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		value, ok := data[name]
		if !ok {
			if decoded, err := url.QueryUnescape(name); err == nil {
				value, ok = data[decoded]
			}
		}
		if ok {
			fields[i] = name + "=" + Encode(value)
		}
	}
	return strings.Join(fields, "&")
}

// Encode percent-encodes v for an urlencoded body, spaces as %20.
func Encode(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// WithAltAuth replaces the leading command token with the token followed by
// NTLM credential flags. The credentials appear in clear text on the command
// line; callers must already hold them.
func WithAltAuth(command, username, password string) string {
	trimmed := strings.TrimLeft(command, " \t")
	end := strings.IndexAny(trimmed, " \t")
	if end < 0 {
		end = len(trimmed)
	}
	token, rest := trimmed[:end], strings.TrimLeft(trimmed[end:], " \t")

	auth := "--ntlm --user " + sanitize.Quote(username+":"+password)
	if rest == "" {
		return token + " " + auth
	}
	return token + " " + auth + " " + rest
}

// Keys returns the field names of the first body argument in order of appearance.
func Keys(command string) []string {
	start, end, ok := BodySpan(command)
	if !ok {
		return nil
	}

	var keys []string
	seen := make(map[string]bool)
	for _, field := range strings.Split(command[start:end], "&") {
		name, _, found := strings.Cut(field, "=")
		if !found || seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, name)
	}
	return keys
}

// Unused returns the data keys that matched no body field, sorted.
func Unused(command string, data map[string]string) []string {
	present := make(map[string]bool)
	for _, k := range Keys(command) {
		present[k] = true
		if decoded, err := url.QueryUnescape(k); err == nil {
			present[decoded] = true
		}
	}

	var unused []string
	for k := range data {
		if k == UsernameKey || k == PasswordKey {
			continue
		}
		if !present[k] {
			unused = append(unused, k)
		}
	}
	sort.Strings(unused)
	return unused
}
