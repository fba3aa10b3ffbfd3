package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"

	"github.com/unbekanntes-pferd/dcadmin/internal/hostutil"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// ServiceName is the vault service every dcadmin secret is stored under.
const ServiceName = "dcadmin"

const (
	credentialsFile = "credentials.json"
	lockTimeout     = 2 * time.Second
)

// ErrSecretNotFound is returned by a Vault when no secret exists.
var ErrSecretNotFound = errors.New("secret not found")

// Vault is a secret store addressed by (service, account).
type Vault interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
	// String names the backend for status output.
	String() string
}

// VaultOptions configures OpenVault.
type VaultOptions struct {
	// NoKeyring forces the file fallback.
	NoKeyring bool
	// FallbackDir holds credentials.json when the system keyring is unavailable.
	FallbackDir string
	// Warn receives the plaintext fallback notice. Defaults to stderr.
	Warn io.Writer
}

// OpenVault returns the system keyring when it works, otherwise the file
// fallback. It fails only when neither can be used.
func OpenVault(opts VaultOptions) (Vault, error) {
	if opts.Warn == nil {
		opts.Warn = os.Stderr
	}
	if !opts.NoKeyring && probeKeyring() {
		return systemVault{}, nil
	}
	if opts.FallbackDir == "" {
		return nil, output.ErrCredentialStorage(errors.New("system keyring unavailable and no credentials directory configured"))
	}
	if err := os.MkdirAll(opts.FallbackDir, 0700); err != nil {
		return nil, output.ErrCredentialStorage(err)
	}
	v := &fileVault{dir: opts.FallbackDir}
	if !opts.NoKeyring {
		fmt.Fprintf(opts.Warn, "warning: system keyring unavailable, credentials stored in plaintext at %s\n", v.path())
	}
	return v, nil
}

func probeKeyring() bool {
	testAccount := ServiceName + "::probe"
	if err := keyring.Set(ServiceName, testAccount, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(ServiceName, testAccount) // Best-effort cleanup
	return true
}

// systemVault is the platform keychain (macOS Keychain, Secret Service, Windows Credential Manager).
type systemVault struct{}

func (systemVault) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (systemVault) Get(service, account string) (string, error) {
	s, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return s, err
}

func (systemVault) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrSecretNotFound
	}
	return err
}

func (systemVault) String() string {
	return "system keyring"
}

// fileVault keeps secrets in a 0600 JSON file, locked across processes.
type fileVault struct {
	dir string
}

func (v *fileVault) String() string {
	return "file " + v.path()
}

func (v *fileVault) path() string {
	return filepath.Join(v.dir, credentialsFile)
}

func fileKey(service, account string) string {
	return service + "::" + account
}

func (v *fileVault) Set(service, account, secret string) error {
	return v.update(func(all map[string]string) error {
		all[fileKey(service, account)] = secret
		return nil
	})
}

func (v *fileVault) Get(service, account string) (string, error) {
	unlock, err := v.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	all, err := v.loadUnsafe()
	if err != nil {
		return "", err
	}
	secret, ok := all[fileKey(service, account)]
	if !ok {
		return "", ErrSecretNotFound
	}
	return secret, nil
}

func (v *fileVault) Delete(service, account string) error {
	return v.update(func(all map[string]string) error {
		k := fileKey(service, account)
		if _, ok := all[k]; !ok {
			return ErrSecretNotFound
		}
		delete(all, k)
		return nil
	})
}

func (v *fileVault) update(fn func(map[string]string) error) error {
	unlock, err := v.lock()
	if err != nil {
		return err
	}
	defer unlock()

	all, err := v.loadUnsafe()
	if err != nil {
		return err
	}
	if err := fn(all); err != nil {
		return err
	}
	return v.saveUnsafe(all)
}

func (v *fileVault) lock() (func(), error) {
	if err := os.MkdirAll(v.dir, 0700); err != nil {
		return nil, err
	}
	fl := flock.New(v.path() + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock credentials file: %w", err)
	}
	if !locked {
		return nil, errors.New("lock credentials file: timed out")
	}
	return func() { _ = fl.Unlock() }, nil
}

// loadUnsafe reads the file. Caller must hold the lock.
func (v *fileVault) loadUnsafe() (map[string]string, error) {
	data, err := os.ReadFile(v.path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	all := make(map[string]string)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse %s: %w", v.path(), err)
	}
	return all, nil
}

// saveUnsafe writes the file atomically. Caller must hold the lock.
func (v *fileVault) saveUnsafe(all map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(v.dir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Windows: rename fails when the destination exists.
	destPath := v.path()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Entry is the stored refresh token of one server.
type Entry struct {
	vault   Vault
	service string
	account string
}

// OpenEntry addresses the secret for serverURL. The account is the URL
// without its scheme.
func OpenEntry(vault Vault, serverURL string) (*Entry, error) {
	if vault == nil {
		return nil, output.ErrCredentialStorage(errors.New("no credential vault available"))
	}
	account := hostutil.AccountName(serverURL)
	if account == "" {
		return nil, output.ErrCredentialStorage(fmt.Errorf("cannot derive account from %q", serverURL))
	}
	return &Entry{vault: vault, service: ServiceName, account: account}, nil
}

// Account returns the vault account name.
func (e *Entry) Account() string {
	return e.account
}

// Set stores or overwrites the secret.
func (e *Entry) Set(secret string) error {
	if err := e.vault.Set(e.service, e.account, secret); err != nil {
		return output.ErrCredentialStorage(err)
	}
	return nil
}

// Get returns the secret, or an invalid_account error when none is stored.
func (e *Entry) Get() (string, error) {
	secret, err := e.vault.Get(e.service, e.account)
	if err != nil {
		return "", output.ErrInvalidAccount(e.account, err)
	}
	return secret, nil
}

// Delete removes the secret. It fails with invalid_account when nothing is stored.
func (e *Entry) Delete() error {
	if _, err := e.Get(); err != nil {
		return err
	}
	if err := e.vault.Delete(e.service, e.account); err != nil {
		return output.ErrCredentialDeletion(err)
	}
	return nil
}

// Exists reports whether a secret is stored.
func (e *Entry) Exists() bool {
	_, err := e.Get()
	return err == nil
}
