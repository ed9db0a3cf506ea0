package secrets

import (
	"errors"
	"fmt"
)

// ErrPromptCancelled is returned by a Prompter when the user aborts entry.
var ErrPromptCancelled = errors.New("credential prompt cancelled")

// Credential is a username/secret pair cached for one site.
type Credential struct {
	Site     string
	Username string
	secret   []byte
}

// Password returns the secret as a string.
func (c *Credential) Password() string {
	return string(c.secret)
}

// wipe overwrites the secret bytes before the credential is dropped.
func (c *Credential) wipe() {
	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = nil
}

// Prompter asks the user for the credentials of a site.
type Prompter interface {
	Prompt(site string) (username string, secret []byte, err error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(site string) (string, []byte, error)

func (f PrompterFunc) Prompt(site string) (string, []byte, error) {
	return f(site)
}

// Store caches credentials per site for the lifetime of a session.
// Secrets are never written to disk.
type Store struct {
	prompter Prompter
	cache    map[string]*Credential
}

// NewStore creates a credential store backed by the given prompter.
func NewStore(p Prompter) *Store {
	return &Store{
		prompter: p,
		cache:    make(map[string]*Credential),
	}
}

// GetOrPrompt returns the cached credential for site, prompting on first use.
func (s *Store) GetOrPrompt(site string) (*Credential, error) {
	if cred, ok := s.cache[site]; ok {
		return cred, nil
	}
	if s.prompter == nil {
		return nil, fmt.Errorf("no credential cached for %s and no prompter configured", site)
	}

	username, secret, err := s.prompter.Prompt(site)
	if err != nil {
		return nil, fmt.Errorf("credentials for %s: %w", site, err)
	}

	cred := &Credential{
		Site:     site,
		Username: username,
		secret:   append([]byte(nil), secret...),
	}
	for i := range secret {
		secret[i] = 0
	}
	s.cache[site] = cred
	return cred, nil
}

// Has reports whether a credential is cached for site.
func (s *Store) Has(site string) bool {
	_, ok := s.cache[site]
	return ok
}

// Clear wipes every cached credential.
func (s *Store) Clear() {
	for site, cred := range s.cache {
		cred.wipe()
		delete(s.cache, site)
	}
}
