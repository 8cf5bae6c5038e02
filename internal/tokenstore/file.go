package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
)

// Argon2id parameters for deriving the sealing key from the passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltLength   = 16
)

// File is a Store sealed on disk. The token map is encrypted as one blob
// with XChaCha20-Poly1305 under an argon2id-derived key, and rewritten
// atomically on every mutation.
type File struct {
	path       string
	passphrase []byte

	mu     sync.Mutex
	tokens map[string]string
	salt   []byte
}

// NewFile opens (or creates) the sealed token file at path.
func NewFile(path, passphrase string) (*File, error) {
	f := &File{
		path:       path,
		passphrase: []byte(passphrase),
		tokens:     make(map[string]string),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveToken stores a token for an address and persists the store.
func (f *File) SaveToken(_ context.Context, address, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens[Key(address)] = token
	return f.persist()
}

// LoadToken returns the token for an address, or "" when absent.
func (f *File) LoadToken(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[Key(address)], nil
}

// DeleteToken removes the token for an address and persists the store.
func (f *File) DeleteToken(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tokens[Key(address)]; !ok {
		return nil
	}
	delete(f.tokens, Key(address))
	return f.persist()
}

// Addresses lists every address with a stored token.
func (f *File) Addresses(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.tokens))
	for k := range f.tokens {
		if addr, ok := addressFromKey(k); ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.Storage("read token file", err)
	}

	if len(data) < saltLength+chacha20poly1305.NonceSizeX {
		return apperrors.Storage("read token file", fmt.Errorf("file too short (%d bytes)", len(data)))
	}

	salt := data[:saltLength]
	nonce := data[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := data[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(f.deriveKey(salt))
	if err != nil {
		return apperrors.Storage("init cipher", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return apperrors.Storage("decrypt token file", err)
	}

	tokens := make(map[string]string)
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return apperrors.Storage("parse token file", err)
	}

	f.tokens = tokens
	f.salt = append([]byte(nil), salt...)
	return nil
}

// persist seals the current map and replaces the file atomically.
// Caller must hold f.mu.
func (f *File) persist() error {
	plaintext, err := json.Marshal(f.tokens)
	if err != nil {
		return apperrors.Storage("encode tokens", err)
	}

	if f.salt == nil {
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return apperrors.Storage("generate salt", err)
		}
		f.salt = salt
	}

	aead, err := chacha20poly1305.NewX(f.deriveKey(f.salt))
	if err != nil {
		return apperrors.Storage("init cipher", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return apperrors.Storage("generate nonce", err)
	}

	sealed := make([]byte, 0, saltLength+len(nonce)+len(plaintext)+aead.Overhead())
	sealed = append(sealed, f.salt...)
	sealed = append(sealed, nonce...)
	sealed = aead.Seal(sealed, nonce, plaintext, nil)

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return apperrors.Storage("write token file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Storage("write token file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Storage("write token file", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return apperrors.Storage("write token file", err)
	}
	return nil
}

func (f *File) deriveKey(salt []byte) []byte {
	return argon2.IDKey(f.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
