package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "actions.txt"), opts...)
}

func TestRegister_Uniqueness(t *testing.T) {
	cases := []struct {
		name          string
		first, second bool
	}{
		{"ephemeral then ephemeral", false, false},
		{"ephemeral then durable", false, true},
		{"durable then ephemeral", true, false},
		{"durable then durable", true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRegistry(t)

			require.NoError(t, r.Register("login", "curl a", tc.first))
			err := r.Register("login", "curl b", tc.second)

			var conflict *ConflictError
			require.True(t, errors.As(err, &conflict), "expected ConflictError, got %v", err)
			assert.Equal(t, "login", conflict.Name)
			assert.Equal(t, "a command for login is already defined", err.Error())

			got, err := r.Lookup("login")
			require.NoError(t, err)
			assert.Equal(t, "curl a", got["login"])
		})
	}
}

func TestRegister_InvalidName(t *testing.T) {
	r := newTestRegistry(t)

	for _, name := range []string{"", "a=b", "#hidden", "two\nlines"} {
		err := r.Register(name, "curl x", false)
		var invalid *InvalidNameError
		assert.True(t, errors.As(err, &invalid), "name %q: got %v", name, err)
	}
}

func TestRegister_RejectsMultilineCommand(t *testing.T) {
	r := newTestRegistry(t)
	assert.Error(t, r.Register("a", "curl x\n-H y", true))
	assert.Error(t, r.Register("a", "   ", true))
}

func TestRegister_DurablePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions.txt")

	require.NoError(t, New(path).Register("report", `curl "https://x/report"`, true))

	// A fresh registry over the same file sees the template.
	got, err := New(path).Lookup("report")
	require.NoError(t, err)
	assert.Equal(t, `curl "https://x/report"`, got["report"])
}

func TestLookup_MergePrecedence(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, AppendDurable(r.DurablePath(), "shared", "curl durable"))

	// Bypass Register to model a store that predates the uniqueness check.
	r.ephemeral["shared"] = "curl ephemeral"

	got, err := r.Lookup("shared")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shared": "curl ephemeral"}, got)

	entries, err := r.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Ephemeral, entries[0].Origin)
}

func TestLookup_Patterns(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("user_create", "curl c", true))
	require.NoError(t, r.Register("user_delete", "curl d", false))
	require.NoError(t, r.Register("report", "curl r", false))
	require.NoError(t, r.Register("a*b", "curl star", false))

	tests := []struct {
		pattern string
		want    []string
	}{
		{"report", []string{"report"}},
		{"user_*", []string{"user_create", "user_delete"}},
		{"user_?reate", []string{"user_create"}},
		{"*", []string{"a*b", "report", "user_create", "user_delete"}},
		{"a*b", []string{"a*b"}},
		{"missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := r.Lookup(tt.pattern)
			require.NoError(t, err)

			var names []string
			for name := range got {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestLookup_SanitizesOnRead(t *testing.T) {
	calls := 0
	r := newTestRegistry(t, WithSanitizer(func(s string) string {
		calls++
		return strings.ToUpper(s)
	}))

	require.NoError(t, r.Register("a", "curl a", true))
	require.NoError(t, r.Register("b", "curl b", false))

	data, err := os.ReadFile(r.DurablePath())
	require.NoError(t, err)
	assert.Equal(t, "a = curl a\n", string(data), "stored command must be raw")

	got, err := r.Lookup("*")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "CURL A", "b": "CURL B"}, got)
	assert.Positive(t, calls)
}

func TestLookup_RereadsDurableStore(t *testing.T) {
	r := newTestRegistry(t)

	got, err := r.Lookup("later")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(r.DurablePath(), []byte("later = curl later\n"), 0644))

	got, err = r.Lookup("later")
	require.NoError(t, err)
	assert.Equal(t, "curl later", got["later"])
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(jar, []byte("# Netscape HTTP Cookie File\n"), 0644))

	r := New(filepath.Join(dir, "actions.txt"), WithCookieJar(jar))
	require.NoError(t, r.Register("temp", "curl t", false))
	require.NoError(t, r.Register("kept", "curl k", true))

	require.NoError(t, r.Clear())

	_, err := os.Stat(jar)
	assert.True(t, os.IsNotExist(err), "cookie jar should be removed")

	got, err := r.Lookup("*")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"kept": "curl k"}, got)

	// The ephemeral name is free again.
	require.NoError(t, r.Register("temp", "curl t2", false))

	// Clearing with no jar on disk is fine.
	require.NoError(t, r.Clear())
}

func TestEntries_Sorted(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("b", "curl b", true))
	require.NoError(t, r.Register("a", "curl a", false))
	require.NoError(t, r.Register("c", "curl c", false))

	entries, err := r.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, Ephemeral, entries[0].Origin)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, Durable, entries[1].Origin)
	assert.Equal(t, "c", entries[2].Name)
}
