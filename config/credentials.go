package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/zalando/go-keyring"

	"lovebug/security"
)

// SecurityMethod defines the credential storage method
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecurityKeyring   SecurityMethod = "keyring"
	SecurityEncrypted SecurityMethod = "encrypted"
)

// Credential names.
const (
	CredentialAPIKey        = "api_key"
	CredentialSigningSecret = "signing_secret"
	CredentialSessionToken  = "session_token"
)

const keyringService = "lovebug"

// CredentialStore manages the API key and related secrets.
//
// plaintext and encrypted keep a credentials.toml in the data directory (the
// latter seals each value with LOVEBUG_ENCRYPTION_KEY); keyring delegates to
// the OS keychain and never touches disk.
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string
	passphrase  string
}

// NewCredentialStore creates a new credential store. An empty method means
// plaintext.
func NewCredentialStore(method SecurityMethod) (*CredentialStore, error) {
	if method == "" {
		method = SecurityPlainText
	}

	c := &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
	}

	switch method {
	case SecurityPlainText, SecurityKeyring:
	case SecurityEncrypted:
		c.passphrase = os.Getenv("LOVEBUG_ENCRYPTION_KEY")
		if c.passphrase == "" {
			return nil, fmt.Errorf("credential storage %q requires LOVEBUG_ENCRYPTION_KEY", method)
		}
	default:
		return nil, fmt.Errorf("unknown security method: %s", method)
	}

	return c, nil
}

// Load loads credentials from disk based on the configured security method
func (c *CredentialStore) Load(dataDir string) error {
	switch c.method {
	case SecurityKeyring:
		return nil

	case SecurityPlainText:
		creds, err := loadCredentialsFile(dataDir)
		if err != nil {
			return err
		}
		c.credentials = creds
		return nil

	case SecurityEncrypted:
		sealed, err := loadCredentialsFile(dataDir)
		if err != nil {
			return err
		}
		creds := make(map[string]string, len(sealed))
		for k, v := range sealed {
			plain, err := security.DecryptAPIKey(v, c.passphrase)
			if err != nil {
				return fmt.Errorf("failed to decrypt %s: %w", k, err)
			}
			creds[k] = plain
		}
		c.credentials = creds
		return nil

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Save saves credentials to disk based on the configured security method
func (c *CredentialStore) Save(dataDir string) error {
	switch c.method {
	case SecurityKeyring:
		return nil

	case SecurityPlainText:
		return saveCredentialsFile(dataDir, c.credentials)

	case SecurityEncrypted:
		sealed := make(map[string]string, len(c.credentials))
		for k, v := range c.credentials {
			enc, err := security.EncryptAPIKey(v, c.passphrase)
			if err != nil {
				return fmt.Errorf("failed to encrypt %s: %w", k, err)
			}
			sealed[k] = enc
		}
		return saveCredentialsFile(dataDir, sealed)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Get retrieves a credential, or "" when unset.
func (c *CredentialStore) Get(name string) string {
	if c.method == SecurityKeyring {
		v, err := keyring.Get(keyringService, name)
		if err != nil {
			if !errors.Is(err, keyring.ErrNotFound) && Debug {
				DebugLog.Printf("[Credentials] keyring lookup for %s failed: %v", name, err)
			}
			return ""
		}
		return v
	}
	return c.credentials[name]
}

// Set stores a credential. File-backed methods need a Save to persist.
func (c *CredentialStore) Set(name, value string) error {
	if c.method == SecurityKeyring {
		if err := keyring.Set(keyringService, name, value); err != nil {
			return fmt.Errorf("failed to write %s to keyring: %w", name, err)
		}
		return nil
	}
	c.credentials[name] = value
	return nil
}

// Delete removes a credential.
func (c *CredentialStore) Delete(name string) error {
	if c.method == SecurityKeyring {
		err := keyring.Delete(keyringService, name)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete %s from keyring: %w", name, err)
		}
		return nil
	}
	delete(c.credentials, name)
	return nil
}

// GetMethod returns the current security method
func (c *CredentialStore) GetMethod() SecurityMethod {
	return c.method
}

func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}

type credentialsFile struct {
	Credentials map[string]string `toml:"credentials"`
}

func loadCredentialsFile(dataDir string) (map[string]string, error) {
	path := credentialsPath(dataDir)
	if !FileExists(path) {
		return make(map[string]string), nil
	}

	var cf credentialsFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if cf.Credentials == nil {
		cf.Credentials = make(map[string]string)
	}
	return cf.Credentials, nil
}

// saveCredentialsFile writes with 0600 permissions (owner read/write only)
func saveCredentialsFile(dataDir string, creds map[string]string) error {
	if err := EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.OpenFile(credentialsPath(dataDir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(credentialsFile{Credentials: creds}); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}
