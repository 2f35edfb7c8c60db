package keystore

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

// SecretSource supplies the authentication secret bound to warehouse sessions.
type SecretSource interface {
	Secret() (string, error)
}

// Static is a SecretSource backed by a fixed password.
type Static string

// Secret returns the configured password unchanged.
func (s Static) Secret() (string, error) {
	return string(s), nil
}

// FileStore derives the warehouse authentication secret from a PEM-encoded
// private key on disk. The key is re-read on every call so a rotated key file
// takes effect on the next session creation without a restart.
type FileStore struct {
	Path string
}

// NewFileStore creates a key-file backed secret source
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Secret loads the private key and derives the session secret from its
// PKCS#8 DER encoding.
func (f *FileStore) Secret() (string, error) {
	path := f.Path

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) && strings.HasSuffix(path, ".p8") {
		// Same key material is sometimes provisioned with a .pem extension
		path = strings.TrimSuffix(path, ".p8") + ".pem"
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read private key file %s: %w", path, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return "", fmt.Errorf("no PEM block found in %s", path)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to encode private key: %w", err)
	}

	sum := sha256.Sum256(der)
	secret := base64.RawStdEncoding.EncodeToString(sum[:])

	logger.Debug("derived warehouse secret from key file",
		zap.String("path", path),
	)

	return secret, nil
}
