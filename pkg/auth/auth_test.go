package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetscapeCookies(t *testing.T) {
	content := `# Netscape HTTP Cookie File
# This is a generated file! Do not edit.

.instagram.com	TRUE	/	TRUE	0	sessionid	abc123def
.instagram.com	TRUE	/	TRUE	0	csrftoken	token456
mid midvalue`

	cookies := ParseNetscapeCookies(content)

	assert.Equal(t, "abc123def", cookies["sessionid"])
	assert.Equal(t, "token456", cookies["csrftoken"])
	assert.Len(t, cookies, 2, "two-field form needs two-space or tab separation")
}

func TestParseNetscapeCookiesSimpleForm(t *testing.T) {
	cookies := ParseNetscapeCookies("sessionid  simple_value\ncsrftoken  other")

	assert.Equal(t, "simple_value", cookies["sessionid"])
	assert.Equal(t, "other", cookies["csrftoken"])
}

func TestSessionFromCookies(t *testing.T) {
	session, err := SessionFromCookies(map[string]string{
		"sessionid": "sid",
		"csrftoken": "csrf",
	})
	require.NoError(t, err)
	assert.Equal(t, "sid", session.SessionID)
	assert.Equal(t, "csrf", session.CSRFToken)

	_, err = SessionFromCookies(map[string]string{"csrftoken": "only"})
	assert.Error(t, err)
}

func TestSessionCookieHeader(t *testing.T) {
	session := &Session{SessionID: "sid", CSRFToken: "csrf"}
	assert.Equal(t, "sessionid=sid; csrftoken=csrf", session.CookieHeader())

	partial := &Session{SessionID: "sid"}
	assert.Equal(t, "sessionid=sid", partial.CookieHeader())
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("IGVIDEODL_PASSPHRASE", "test-passphrase")

	dir := t.TempDir()
	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)

	account := &Account{
		Username:  "tester",
		SessionID: "secret_session",
		CSRFToken: "secret_csrf",
	}
	require.NoError(t, store.Store(account))

	loaded, err := store.Retrieve("tester")
	require.NoError(t, err)
	assert.Equal(t, "secret_session", loaded.SessionID)
	assert.Equal(t, "secret_csrf", loaded.CSRFToken)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, store.Delete("tester"))
	_, err = store.Retrieve("tester")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreFileIsOpaque(t *testing.T) {
	t.Setenv("IGVIDEODL_PASSPHRASE", "test-passphrase")

	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "tester", SessionID: "plaintext_session"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "plaintext_session")
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGVIDEODL_SESSION_ID", "env_sid")
	t.Setenv("IGVIDEODL_CSRF_TOKEN", "env_csrf")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", account.Username)
	assert.Equal(t, "env_sid", account.SessionID)

	assert.ErrorIs(t, store.Store(account), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("default"), ErrStoreUnavailable)
}

func TestAccountSession(t *testing.T) {
	account := &Account{
		Username:  "tester",
		SessionID: "sid",
		CSRFToken: "csrf",
		UserAgent: "agent",
	}

	session := account.Session()
	assert.Equal(t, "sid", session.SessionID)
	assert.Equal(t, "csrf", session.CSRFToken)
	assert.Equal(t, "agent", session.UserAgent)
}
