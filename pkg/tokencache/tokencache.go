// Package tokencache persists the identity session between gateway restarts.
//
// The session blob is sealed with XChaCha20-Poly1305 before it touches disk,
// so a leaked cache file does not leak bearer tokens without the cache key.
// The key material comes from a key file or the STRIDE_CACHE_KEY environment
// variable; without either, an ephemeral key is generated and cached sessions
// do not survive a restart.
package tokencache

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoCache is returned by Load when no usable cached session exists. A
// missing, truncated or undecryptable cache file all map here; the caller
// starts signed out either way.
var ErrNoCache = errors.New("tokencache: no cached session")

// Cache seals and unseals a single blob at a fixed path.
type Cache struct {
	path string
	aead cipher.AEAD
}

// Open creates a cache at path using the given key material. The material is
// stretched to a 32-byte key with SHA-256, so any length is accepted.
func Open(path string, keyMaterial []byte) (*Cache, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("tokencache: empty key material")
	}

	key := sha256.Sum256(keyMaterial)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("tokencache: failed to create cipher: %w", err)
	}

	return &Cache{path: path, aead: aead}, nil
}

// KeyFromEnv resolves cache key material from, in order: the file at
// keyPath (when non-empty), the STRIDE_CACHE_KEY environment variable, or a
// freshly generated ephemeral key.
func KeyFromEnv(keyPath string) ([]byte, error) {
	if keyPath != "" {
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("tokencache: failed to read key file: %w", err)
		}
		return data, nil
	}

	if envKey := os.Getenv("STRIDE_CACHE_KEY"); envKey != "" {
		return []byte(envKey), nil
	}

	// Ephemeral fallback for development; cached sessions will not be
	// readable after a restart.
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("tokencache: failed to generate ephemeral key: %w", err)
	}
	return material, nil
}

// Save seals the blob and writes it atomically with 0600 permissions.
// Output format: [24-byte nonce][ciphertext][16-byte auth tag].
func (c *Cache) Save(data []byte) error {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("tokencache: failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, data, nil)

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("tokencache: failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("tokencache: failed to write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("tokencache: failed to replace cache: %w", err)
	}

	return nil
}

// Load reads and unseals the cached blob. Any unusable cache file yields
// ErrNoCache rather than a hard failure.
func (c *Cache) Load() ([]byte, error) {
	sealed, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCache
		}
		return nil, fmt.Errorf("tokencache: failed to read cache: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrNoCache
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	data, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Wrong key or tampered file; start signed out.
		return nil, ErrNoCache
	}

	return data, nil
}

// Clear removes the cache file. Missing files are not an error.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("tokencache: failed to remove cache: %w", err)
	}
	return nil
}
