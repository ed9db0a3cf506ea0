package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
)

// CookieJarFile is the cookie jar file name inside the data directory.
const CookieJarFile = "cookies.txt"

// Stage is one named rewrite step. Every stage is total over its input.
type Stage struct {
	Name      string
	Transform func(string) string
}

// Pipeline applies its stages in order.
type Pipeline struct {
	stages []Stage
}

// New builds the standard pipeline for commands replayed from dataDir.
func New(dataDir string) *Pipeline {
	jar := CookieJarPath(dataDir)
	return &Pipeline{
		stages: []Stage{
			{Name: "strip-cookies", Transform: func(s string) string {
				return StripCookieArgs(StripCookieHeaders(s), jar)
			}},
			{Name: "strip-ntlm-authorization", Transform: StripNTLMAuthorization},
			{Name: "escape-embedded-quotes", Transform: EscapeEmbeddedQuotes},
			{Name: "escape-expansions", Transform: EscapeExpansions},
			{Name: "inject-cookie-jar", Transform: func(s string) string {
				return InjectCookieJar(s, jar)
			}},
		},
	}
}

// Stages returns the pipeline stages in application order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Apply runs every stage over command.
func (p *Pipeline) Apply(command string) string {
	for _, stage := range p.stages {
		command = stage.Transform(command)
	}
	return command
}

// Sanitize rewrites a captured command into its replayable form.
func Sanitize(command, dataDir string) string {
	return New(dataDir).Apply(command)
}

// CookieJarPath returns the cookie jar location for dataDir.
func CookieJarPath(dataDir string) string {
	return filepath.Join(dataDir, CookieJarFile)
}

// A header argument: -H or --header followed by a double-quoted (escapes
// honoured) or single-quoted value.
const headerArg = `\s*(?:-H|--header)\s*(?:"%[1]s(?:\\.|[^"\\])*"|'%[1]s[^']*')`

var (
	cookieHeaderRe = regexp.MustCompile(`(?i)` + strings.ReplaceAll(headerArg, "%[1]s", `cookie\s*:`))
	ntlmHeaderRe   = regexp.MustCompile(`(?i)` + strings.ReplaceAll(headerArg, "%[1]s", `authorization\s*:\s*ntlm\b`))

	// -b or --cookie and its value, double-quoted, single-quoted or bare.
	cookieArgRe = regexp.MustCompile(`\s+(?:-b\s*|--cookie\s+)("(?:\\.|[^"\\])*"|'[^']*'|[^\s"']+)`)
)

// StripCookieHeaders removes every Cookie header argument. Cookies are
// supplied by the cookie jar on replay.
func StripCookieHeaders(command string) string {
	return cookieHeaderRe.ReplaceAllString(command, "")
}

// StripCookieArgs removes -b/--cookie arguments carrying a cookie string
// ("name=value"). Arguments naming a file, including jar itself, are kept.
func StripCookieArgs(command, jar string) string {
	keep := Quote(jar)
	return cookieArgRe.ReplaceAllStringFunc(command, func(m string) string {
		value := cookieArgRe.FindStringSubmatch(m)[1]
		if value == keep || !strings.Contains(value, "=") {
			return m
		}
		return ""
	})
}

// StripNTLMAuthorization removes "Authorization: NTLM ..." header arguments.
// NTLM tokens are bound to the connection that negotiated them.
func StripNTLMAuthorization(command string) string {
	return ntlmHeaderRe.ReplaceAllString(command, "")
}

// EscapeEmbeddedQuotes backslash-escapes double quotes found inside a
// double-quoted argument. A quote closes the argument only when followed by
// the end of the command, or by whitespace and then anything but JSON
// punctuation (: , } ]); any other quote inside the argument is embedded.
// Quotes already escaped and single-quoted spans are untouched.
//
// Post: every double-quoted argument is valid POSIX shell syntax.
func EscapeEmbeddedQuotes(command string) string {
	var sb strings.Builder
	sb.Grow(len(command) + 8)

	const (
		outside = iota
		inDouble
		inSingle
	)
	state := outside

	for i := 0; i < len(command); i++ {
		c := command[i]
		switch state {
		case outside:
			switch c {
			case '\\':
				sb.WriteByte(c)
				if i+1 < len(command) {
					i++
					sb.WriteByte(command[i])
				}
				continue
			case '"':
				state = inDouble
			case '\'':
				state = inSingle
			}
			sb.WriteByte(c)

		case inSingle:
			if c == '\'' {
				state = outside
			}
			sb.WriteByte(c)

		case inDouble:
			switch c {
			case '\\':
				sb.WriteByte(c)
				if i+1 < len(command) {
					i++
					sb.WriteByte(command[i])
				}
			case '"':
				if closesArgument(command, i+1) {
					state = outside
					sb.WriteByte(c)
				} else {
					sb.WriteString(`\"`)
				}
			default:
				sb.WriteByte(c)
			}
		}
	}

	return sb.String()
}

// EscapeExpansions backslash-escapes unescaped $ and ` outside single quotes
// so the replayed command is never subject to shell interpolation.
//
// Pre: quotes are balanced (run after EscapeEmbeddedQuotes).
func EscapeExpansions(command string) string {
	var sb strings.Builder
	sb.Grow(len(command) + 8)

	inSingle, inDouble := false, false
	for i := 0; i < len(command); i++ {
		c := command[i]

		if inSingle {
			if c == '\'' {
				inSingle = false
			}
			sb.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			sb.WriteByte(c)
			if i+1 < len(command) {
				i++
				sb.WriteByte(command[i])
			}
		case '\'':
			if !inDouble {
				inSingle = true
			}
			sb.WriteByte(c)
		case '"':
			inDouble = !inDouble
			sb.WriteByte(c)
		case '$', '`':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

// ReplayFlags returns the flags injected after the command token: the cookie
// jar is read and written on every call and response headers are included in
// the output.
func ReplayFlags(jar string) string {
	q := Quote(jar)
	return "-b " + q + " -c " + q + " --include"
}

// InjectCookieJar inserts ReplayFlags right after the leading command token
// unless they are already there.
func InjectCookieJar(command, jar string) string {
	trimmed := strings.TrimLeft(command, " \t")
	if trimmed == "" {
		return command
	}

	end := strings.IndexAny(trimmed, " \t")
	if end < 0 {
		end = len(trimmed)
	}
	token, rest := trimmed[:end], strings.TrimLeft(trimmed[end:], " \t")

	flags := ReplayFlags(jar)
	if strings.HasPrefix(rest, flags) {
		return trimmed
	}
	if rest == "" {
		return token + " " + flags
	}
	return token + " " + flags + " " + rest
}

// Quote wraps s in double quotes, escaping the characters a POSIX shell
// still interprets inside them.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"', '$', '`':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// closesArgument reports whether a double quote ending just before rest
// terminates its argument.
func closesArgument(command string, rest int) bool {
	if rest == len(command) {
		return true
	}
	if !isSpace(command[rest]) {
		return false
	}
	for rest < len(command) && isSpace(command[rest]) {
		rest++
	}
	if rest == len(command) {
		return true
	}
	return !strings.ContainsRune(":,}]", rune(command[rest]))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
