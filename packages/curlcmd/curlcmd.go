// Package curlcmd parses captured curl commands ("Copy as cURL").
package curlcmd

import (
	"bufio"
	"fmt"
	neturl "net/url"
	"regexp"
	"strings"
)

// Command is the parsed form of a curl invocation.
type Command struct {
	Program         string
	Method          string
	URL             string
	Headers         map[string]string
	Body            string
	User            string
	Insecure        bool
	FollowRedirects bool
	Compressed      bool
}

// Host returns the host of the request URL, or "" when it has none.
func (c *Command) Host() string {
	u, err := neturl.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Normalize joins a multi-line pasted command into one line. Both shell ("\")
// and cmd.exe ("^") line continuations are understood; blank lines and
// # comments are dropped.
func Normalize(raw string) string {
	var sb strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			line = strings.TrimSpace(strings.TrimSuffix(line, "\\"))
		} else if strings.HasSuffix(line, "^") {
			line = strings.TrimSpace(strings.TrimSuffix(line, "^"))
		}

		if sb.Len() > 0 && line != "" {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
	}

	return sb.String()
}

// SplitCommands splits text holding several pasted commands, such as the
// browser's "Copy all as cURL", into normalized single-line commands. A new
// command starts at any line beginning with curl that does not continue the
// previous line. Trailing ";" and "&" separators are dropped.
func SplitCommands(raw string) []string {
	var commands []string
	var current strings.Builder
	continued := false

	flush := func() {
		if cmd := Normalize(current.String()); cmd != "" {
			commands = append(commands, cmd)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !continued {
			if fields := strings.Fields(line); len(fields) > 0 && strings.HasPrefix(baseName(fields[0]), "curl") {
				flush()
			}
		}
		continued = strings.HasSuffix(line, "\\") || strings.HasSuffix(line, "^")
		if !continued {
			line = strings.TrimSpace(strings.TrimRight(line, ";&"))
		}

		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return commands
}

// Parse parses a curl command string.
func Parse(curlCmd string) (*Command, error) {
	parsed := &Command{
		Method:  "GET",
		Headers: make(map[string]string),
	}

	tokens := Tokenize(strings.TrimSpace(curlCmd))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	parsed.Program = tokens[0]
	if !strings.HasPrefix(strings.ToLower(baseName(parsed.Program)), "curl") {
		return nil, fmt.Errorf("not a curl command: %s", parsed.Program)
	}
	explicitMethod := false

	tokens = tokens[1:]
	i := 0
	for i < len(tokens) {
		token := tokens[i]

		switch {
		case token == "-X" || token == "--request":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", token)
			}
			parsed.Method = strings.ToUpper(tokens[i+1])
			explicitMethod = true
			i += 2

		case token == "-H" || token == "--header":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", token)
			}
			key, value, found := strings.Cut(tokens[i+1], ":")
			if found {
				parsed.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
			i += 2

		case token == "-d" || token == "--data" || token == "--data-raw" || token == "--data-binary" || token == "--data-ascii":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", token)
			}
			if parsed.Body != "" {
				parsed.Body += "&"
			}
			parsed.Body += tokens[i+1]
			if !explicitMethod {
				parsed.Method = "POST"
			}
			i += 2

		case token == "-u" || token == "--user":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", token)
			}
			parsed.User = tokens[i+1]
			i += 2

		case token == "-A" || token == "--user-agent":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", token)
			}
			parsed.Headers["User-Agent"] = tokens[i+1]
			i += 2

		case token == "-e" || token == "--referer":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for %s", token)
			}
			parsed.Headers["Referer"] = tokens[i+1]
			i += 2

		case token == "-b" || token == "--cookie" || token == "-c" || token == "--cookie-jar":
			// Cookie state comes from the session cookie jar.
			i += 2

		case token == "-k" || token == "--insecure":
			parsed.Insecure = true
			i++

		case token == "-L" || token == "--location":
			parsed.FollowRedirects = true
			i++

		case token == "--compressed":
			parsed.Compressed = true
			i++

		case token == "--url":
			if i+1 < len(tokens) {
				parsed.URL = tokens[i+1]
			}
			i += 2

		case strings.HasPrefix(token, "-"):
			// Unknown flag: skip a following value unless it looks like a flag or URL.
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
				i += 2
			} else {
				i++
			}

		default:
			if parsed.URL == "" && isURL(token) {
				parsed.URL = token
			}
			i++
		}
	}

	if parsed.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	return parsed, nil
}

// Tokenize splits a command into arguments the way a POSIX shell would for
// plain quoting: single quotes, double quotes, backslash escapes and $'...'.
func Tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false
	started := false

	for i := 0; i < len(cmd); i++ {
		r := cmd[i]
		if escaped {
			current.WriteByte(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			switch {
			case inSingleQuote:
				current.WriteByte(r)
			case inDoubleQuote && (i+1 >= len(cmd) || !strings.ContainsRune("$`\"\\\n", rune(cmd[i+1]))):
				current.WriteByte(r)
			default:
				escaped = true
			}
		case '$':
			if !inSingleQuote && !inDoubleQuote && i+1 < len(cmd) && cmd[i+1] == '\'' {
				// $'...' quoting: treat like a single-quoted span.
				continue
			}
			current.WriteByte(r)
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
				started = true
			} else {
				current.WriteByte(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
				started = true
			} else {
				current.WriteByte(r)
			}
		case ' ', '\t', '\n', '\r':
			if inSingleQuote || inDoubleQuote {
				current.WriteByte(r)
			} else if current.Len() > 0 || started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteByte(r)
		}
	}

	if current.Len() > 0 || started {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// DefaultName generates an action name from the request method and URL path,
// e.g. "post_api_users".
func DefaultName(c *Command) string {
	path := "/"
	if u, err := neturl.Parse(c.URL); err == nil && u.Path != "" {
		path = u.Path
	}

	path = strings.Trim(path, "/")
	if path == "" {
		path = "root"
	}

	return SanitizeName(strings.ToLower(c.Method) + "_" + path)
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeName reduces name to letters, digits and single underscores.
func SanitizeName(name string) string {
	result := nonIdent.ReplaceAllString(name, "_")
	return strings.ToLower(strings.Trim(result, "_"))
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func baseName(program string) string {
	if i := strings.LastIndexAny(program, `/\`); i >= 0 {
		return program[i+1:]
	}
	return program
}
