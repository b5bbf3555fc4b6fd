package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igvideodl"
	keyringPrefix  = "instagram_"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves credentials to the system keychain
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	key := keyringPrefix + account.Username
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	// Maintain the account index used by List
	index, _ := keyring.Get(keyringService, "account_index")
	names := indexToSet(index)
	names[account.Username] = true
	_ = keyring.Set(keyringService, "account_index", setToIndex(names))

	return nil
}

// Retrieve gets credentials from the system keychain
func (k *KeyringStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		return nil, ErrCredentialsNotFound
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

// List returns all accounts recorded in the keychain index
func (k *KeyringStore) List() ([]*Account, error) {
	index, err := keyring.Get(keyringService, "account_index")
	if err != nil {
		return []*Account{}, nil
	}

	var accounts []*Account
	for name := range indexToSet(index) {
		if account, err := k.Retrieve(name); err == nil {
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}

// Delete removes credentials from the system keychain
func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil {
		return ErrCredentialsNotFound
	}

	if index, err := keyring.Get(keyringService, "account_index"); err == nil {
		names := indexToSet(index)
		delete(names, username)
		_ = keyring.Set(keyringService, "account_index", setToIndex(names))
	}

	return nil
}

// Exists checks if credentials exist for a username
func (k *KeyringStore) Exists(username string) bool {
	account, err := k.Retrieve(username)
	return err == nil && account != nil
}

func indexToSet(index string) map[string]bool {
	names := make(map[string]bool)
	for _, name := range strings.Split(index, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names[name] = true
		}
	}
	return names
}

func setToIndex(names map[string]bool) string {
	var parts []string
	for name := range names {
		parts = append(parts, name)
	}
	return strings.Join(parts, ",")
}
