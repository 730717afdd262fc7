package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const hostKeyComment = "syncstrd host key"

// LoadOrGenerateSigner returns the host key stored at path. A missing file is
// replaced by a fresh Ed25519 key written in OpenSSH format. An empty path
// yields an ephemeral key.
func LoadOrGenerateSigner(path string) (ssh.Signer, error) {
	if path == "" {
		return EphemeralSigner()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("sshserver: parse host key %q: %w", path, err)
		}
		return signer, nil
	case errors.Is(err, os.ErrNotExist):
		return createHostKey(path)
	default:
		return nil, fmt.Errorf("sshserver: read host key: %w", err)
	}
}

// EphemeralSigner returns a host key that only lives in memory.
func EphemeralSigner() (ssh.Signer, error) {
	key, err := newHostKey()
	if err != nil {
		return nil, err
	}
	return signerFor(key)
}

func newHostKey() (ed25519.PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sshserver: generate host key: %w", err)
	}
	return key, nil
}

func signerFor(key ed25519.PrivateKey) (ssh.Signer, error) {
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("sshserver: create signer: %w", err)
	}
	return signer, nil
}

// createHostKey writes the key to a temporary file in the target directory
// and renames it into place, so a crash never leaves a truncated key.
func createHostKey(path string) (ssh.Signer, error) {
	key, err := newHostKey()
	if err != nil {
		return nil, err
	}
	block, err := ssh.MarshalPrivateKey(key, hostKeyComment)
	if err != nil {
		return nil, fmt.Errorf("sshserver: encode host key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("sshserver: create host key dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".hostkey-*")
	if err != nil {
		return nil, fmt.Errorf("sshserver: write host key: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := pem.Encode(tmp, block); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sshserver: write host key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("sshserver: write host key: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("sshserver: install host key %q: %w", path, err)
	}
	return signerFor(key)
}
