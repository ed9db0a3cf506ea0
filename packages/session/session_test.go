package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/panasenco/WebAutomation/packages/history"
	"github.com/panasenco/WebAutomation/packages/registry"
	"github.com/panasenco/WebAutomation/packages/response"
	"github.com/panasenco/WebAutomation/packages/secrets"
	"github.com/panasenco/WebAutomation/packages/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	commands []string
	output   []string
	err      error
}

func (f *fakeExecutor) Execute(ctx context.Context, command string) ([]string, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fakePrompter struct {
	calls int
	sites []string
}

func (p *fakePrompter) Prompt(site string) (string, []byte, error) {
	p.calls++
	p.sites = append(p.sites, site)
	return "CORP\\alice", []byte("s3cret"), nil
}

type memoryHistory struct {
	entries []history.Entry
}

func (m *memoryHistory) Record(ctx context.Context, e history.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func okOutput() []string {
	return []string{"HTTP/1.1 200 OK", "Content-Type: application/json", "", `{"ok":true}`}
}

func TestInvoke_DryRunEndToEnd(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(t.TempDir(), WithExecutor(exec))

	_, err := s.Register("A", `curl "http://x" --data "k=1"`, false)
	require.NoError(t, err)

	res, err := s.Invoke(context.Background(), "A", map[string]string{"k": "2"}, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Nil(t, res.Response)
	assert.Contains(t, res.Command, "k=2")
	assert.NotContains(t, res.Command, "k=1")
	assert.Contains(t, res.Command, s.CookieJar())
	assert.Empty(t, exec.commands, "dry run must not execute")
}

func TestInvoke_ExecutesAndSplits(t *testing.T) {
	exec := &fakeExecutor{output: okOutput()}
	hist := &memoryHistory{}
	s := New(t.TempDir(), WithExecutor(exec), WithHistory(hist))

	_, err := s.Register("save", `curl "http://x/save" -H "Cookie: sid=old" --data "name=a&id=1"`, true)
	require.NoError(t, err)

	res, err := s.Invoke(context.Background(), "save", map[string]string{"name": "Ada L"}, Options{})
	require.NoError(t, err)

	require.Len(t, exec.commands, 1)
	sent := exec.commands[0]
	assert.Contains(t, sent, `--data "name=Ada%20L&id=1"`)
	assert.NotContains(t, sent, "sid=old")
	assert.True(t, strings.HasPrefix(sent, "curl -b "))

	require.NotNil(t, res.Response)
	assert.Equal(t, 200, res.Response.StatusCode)
	assert.Equal(t, []string{`{"ok":true}`}, res.Response.BodyLines)

	require.Len(t, hist.entries, 1)
	assert.Equal(t, "save", hist.entries[0].Action)
	assert.Equal(t, 200, hist.entries[0].StatusCode)
}

func TestInvoke_NotFound(t *testing.T) {
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{}))

	_, err := s.Invoke(context.Background(), "missing", nil, Options{})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.Pattern)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolve(t *testing.T) {
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{}))
	for _, name := range []string{"user_create", "user_delete", "user"} {
		_, err := s.Register(name, `curl "http://x/`+name+`"`, false)
		require.NoError(t, err)
	}

	t.Run("exact name wins over glob", func(t *testing.T) {
		name, _, err := s.Resolve("user")
		require.NoError(t, err)
		assert.Equal(t, "user", name)
	})

	t.Run("single glob match", func(t *testing.T) {
		name, cmd, err := s.Resolve("*create")
		require.NoError(t, err)
		assert.Equal(t, "user_create", name)
		assert.Contains(t, cmd, "http://x/user_create")
	})

	t.Run("ambiguous glob", func(t *testing.T) {
		_, _, err := s.Resolve("user_*")
		var amb *AmbiguousError
		require.True(t, errors.As(err, &amb))
		assert.Equal(t, []string{"user_create", "user_delete"}, amb.Matches)
	})
}

func TestInvoke_MalformedResponse(t *testing.T) {
	hist := &memoryHistory{}
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{output: []string{"no blank line"}}), WithHistory(hist))
	_, err := s.Register("a", `curl "http://x"`, false)
	require.NoError(t, err)

	_, err = s.Invoke(context.Background(), "a", nil, Options{})
	assert.ErrorIs(t, err, response.ErrMalformedResponse)
	require.Len(t, hist.entries, 1)
	assert.True(t, hist.entries[0].Failed())
}

func TestInvoke_TransportErrorPassesThrough(t *testing.T) {
	terr := &transport.Error{ExitCode: 6, Stderr: "could not resolve host"}
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{err: terr}))
	_, err := s.Register("a", `curl "http://x"`, false)
	require.NoError(t, err)

	_, err = s.Invoke(context.Background(), "a", nil, Options{})
	var got *transport.Error
	require.True(t, errors.As(err, &got))
	assert.Same(t, terr, got)
	assert.Contains(t, err.Error(), "invoking a")
}

func TestInvoke_AltAuthUsesCredentialCache(t *testing.T) {
	exec := &fakeExecutor{output: okOutput()}
	prompter := &fakePrompter{}
	s := New(t.TempDir(), WithExecutor(exec), WithPrompter(prompter))

	_, err := s.Register("report", `curl "https://intranet.corp/report" -H "Authorization: NTLM old" --data "q=1"`, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.Invoke(context.Background(), "report", map[string]string{"q": "2"}, Options{UseAltAuth: true})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, prompter.calls)
	assert.Equal(t, []string{"intranet.corp"}, prompter.sites)

	sent := exec.commands[1]
	assert.True(t, strings.HasPrefix(sent, `curl --ntlm --user "CORP\\alice:s3cret" -b `), sent)
	assert.NotContains(t, sent, "NTLM old")
	assert.Contains(t, sent, `--data "q=2"`)
}

func TestInvoke_AltAuthWithSuppliedCredentials(t *testing.T) {
	prompter := &fakePrompter{}
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{}), WithPrompter(prompter))
	_, err := s.Register("a", `curl "https://x/a"`, false)
	require.NoError(t, err)

	res, err := s.Invoke(context.Background(), "a",
		map[string]string{"username": "bob", "password": "pw"},
		Options{UseAltAuth: true, DryRun: true})
	require.NoError(t, err)

	assert.Zero(t, prompter.calls)
	assert.Contains(t, res.Command, `--ntlm --user "bob:pw"`)
}

func TestInvoke_AltAuthExplicitSite(t *testing.T) {
	prompter := &fakePrompter{}
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{}), WithPrompter(prompter))
	_, err := s.Register("a", `curl "https://x/a"`, false)
	require.NoError(t, err)

	_, err = s.Invoke(context.Background(), "a", nil, Options{UseAltAuth: true, DryRun: true, Site: "corp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"corp"}, prompter.sites)
}

func TestRegister_DefaultNameAndNormalize(t *testing.T) {
	s := New(t.TempDir())

	name, err := s.Register("", "curl 'https://x/api/users' \\\n  --data-raw 'a=1'", true)
	require.NoError(t, err)
	assert.Equal(t, "post_api_users", name)

	data, err := os.ReadFile(s.ActionsPath())
	require.NoError(t, err)
	assert.Equal(t, "post_api_users = curl 'https://x/api/users' --data-raw 'a=1'\n", string(data))

	_, err = s.Register("", "not a curl command", false)
	assert.Error(t, err)
}

func TestRegister_Conflict(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Register("a", `curl "http://x"`, true)
	require.NoError(t, err)

	_, err = s.Register("a", `curl "http://y"`, false)
	var conflict *registry.ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	prompter := &fakePrompter{}
	s := New(dir, WithExecutor(&fakeExecutor{}), WithPrompter(prompter))

	_, err := s.Register("temp", `curl "https://x/a"`, false)
	require.NoError(t, err)
	_, err = s.Credential("x")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.CookieJar(), []byte("jar"), 0644))

	require.NoError(t, s.Clear())

	_, err = os.Stat(filepath.Join(dir, "cookies.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Register("temp", `curl "https://x/b"`, false)
	assert.NoError(t, err, "cleared ephemeral name should be reusable")

	_, err = s.Credential("x")
	require.NoError(t, err)
	assert.Equal(t, 2, prompter.calls, "cleared credential should prompt again")
}

func TestTemplates(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Register("b", `curl "http://x/b"`, true)
	require.NoError(t, err)
	_, err = s.Register("a", `curl "http://x/a"`, false)
	require.NoError(t, err)

	templates, err := s.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "a", templates[0].Name)
	assert.Equal(t, registry.Ephemeral, templates[0].Origin)
	assert.Equal(t, registry.Durable, templates[1].Origin)
}

func TestWithActionsFile(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(t.TempDir(), "shared-actions.txt")
	s := New(dir, WithActionsFile(custom))
	assert.Equal(t, custom, s.ActionsPath())

	s = New(dir, WithActionsFile("mine.txt"))
	assert.Equal(t, filepath.Join(dir, "mine.txt"), s.ActionsPath())
}

func TestInvokeBatch(t *testing.T) {
	exec := &fakeExecutor{output: okOutput()}
	s := New(t.TempDir(), WithExecutor(exec))
	_, err := s.Register("a", `curl "http://x" --data "k=0"`, false)
	require.NoError(t, err)

	rows := []map[string]string{{"k": "1"}, {"k": "2"}, {"k": "3"}}
	results, err := s.InvokeBatch(context.Background(), "a", rows, BatchOptions{Rate: 1000})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Row)
		assert.NoError(t, r.Err)
	}
	assert.Contains(t, exec.commands[2], "k=3")
}

func TestInvokeBatch_StopsOnError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("boom")}
	s := New(t.TempDir(), WithExecutor(exec))
	_, err := s.Register("a", `curl "http://x"`, false)
	require.NoError(t, err)

	rows := []map[string]string{{}, {}, {}}

	results, err := s.InvokeBatch(context.Background(), "a", rows, BatchOptions{})
	assert.Error(t, err)
	assert.Len(t, results, 1)

	results, err = s.InvokeBatch(context.Background(), "a", rows, BatchOptions{ContinueOnError: true})
	assert.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestInvokeBatch_ContextCancelledWhileWaiting(t *testing.T) {
	s := New(t.TempDir(), WithExecutor(&fakeExecutor{output: okOutput()}))
	_, err := s.Register("a", `curl "http://x"`, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results, err := s.InvokeBatch(ctx, "a", []map[string]string{{}, {}, {}}, BatchOptions{Rate: 0.1})
	assert.Error(t, err)
	assert.Len(t, results, 1)
}

var _ secrets.Prompter = (*fakePrompter)(nil)
