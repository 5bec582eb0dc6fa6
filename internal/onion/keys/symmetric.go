package keys

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// SymmetricKeySize is the LayerKey length in bytes (AES-256).
const SymmetricKeySize = 32

// ivSeparator splits the encoded IV from the encoded ciphertext in an encrypted body.
const ivSeparator = ":"

// GenerateSymmetricKey generates a random AES-256 key.
func GenerateSymmetricKey() ([]byte, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "failed to generate symmetric key")
	}
	return key, nil
}

// ExportSymmetricKey returns the transport-safe form of a symmetric key.
func ExportSymmetricKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// ImportSymmetricKey parses an exported symmetric key, rejecting anything that is not an AES-256 key.
func ImportSymmetricKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode symmetric key")
	}
	if err = CheckSymmetricKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// CheckSymmetricKey rejects keys that are not AES-256 keys.
func CheckSymmetricKey(key []byte) error {
	if len(key) != SymmetricKeySize {
		return errors.Errorf("invalid key length for AES-256: %d", len(key))
	}
	return nil
}

// EncryptCBC encrypts plaintext with AES-CBC under a fresh random IV.
// The result is base64(iv) + ":" + base64(ciphertext).
func EncryptCBC(key, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Wrap(err, "failed to create new cipher")
	}

	iv := make([]byte, aes.BlockSize)
	if _, err = io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Wrap(err, "failed to generate iv")
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)

	return base64.StdEncoding.EncodeToString(iv) + ivSeparator + base64.StdEncoding.EncodeToString(cipherText), nil
}

// DecryptCBC reverses EncryptCBC.
func DecryptCBC(key []byte, encrypted string) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create new cipher")
	}

	ivText, cipherTextText, found := strings.Cut(encrypted, ivSeparator)
	if !found {
		return nil, errors.New("missing iv separator")
	}
	iv, err := base64.StdEncoding.DecodeString(ivText)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode iv")
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.Errorf("invalid iv length: %d", len(iv))
	}
	cipherText, err := base64.StdEncoding.DecodeString(cipherTextText)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}
	if len(cipherText) == 0 || len(cipherText)%aes.BlockSize != 0 {
		return nil, errors.Errorf("ciphertext is not a multiple of the block size: %d", len(cipherText))
	}

	plainText := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainText, cipherText)
	return pkcs7Unpad(plainText, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
