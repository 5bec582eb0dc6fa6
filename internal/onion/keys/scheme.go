package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	RSAOAEPName   = "rsa-oaep-2048"
	SealedBoxName = "x25519-sealedbox"

	rsaModulusBits = 2048
)

// Scheme is the asymmetric primitive used to hand one LayerKey to one relay.
// Keys and ciphertexts are exchanged in their base64 text form.
type Scheme interface {
	Name() string
	// GenerateKeyPair returns the exported private and public keys.
	GenerateKeyPair() (privateKey string, publicKey string, err error)
	Encrypt(plaintext []byte, publicKey string) (string, error)
	Decrypt(ciphertext string, privateKey string) ([]byte, error)
	// HeaderLen is the encoded length of an encrypted LayerKey.
	HeaderLen() int
}

// SchemeByName resolves a configured scheme name.
func SchemeByName(name string) (Scheme, error) {
	switch name {
	case "", RSAOAEPName:
		return RSAOAEP{}, nil
	case SealedBoxName:
		return SealedBox{}, nil
	default:
		return nil, errors.Errorf("unknown asymmetric scheme %q", name)
	}
}

// RSAOAEP is RSA-2048 with OAEP/SHA-256. Public keys are base64 SPKI, private keys base64 PKCS#8.
type RSAOAEP struct{}

func (RSAOAEP) Name() string { return RSAOAEPName }

// HeaderLen is base64 of one 256 byte RSA block: 344 characters.
func (RSAOAEP) HeaderLen() int {
	return base64.StdEncoding.EncodedLen(rsaModulusBits / 8)
}

func (RSAOAEP) GenerateKeyPair() (string, string, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, rsaModulusBits)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate rsa key pair")
	}
	prvDER, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal private key")
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal public key")
	}
	return base64.StdEncoding.EncodeToString(prvDER), base64.StdEncoding.EncodeToString(pubDER), nil
}

func (RSAOAEP) Encrypt(plaintext []byte, publicKey string) (string, error) {
	pub, err := importRSAPublicKey(publicKey)
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", errors.Wrap(err, "rsa encryption failed")
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (RSAOAEP) Decrypt(ciphertext string, privateKey string) ([]byte, error) {
	prv, err := importRSAPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	ct, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode rsa ciphertext")
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, prv, ct, nil)
	if err != nil {
		return nil, errors.Wrap(err, "rsa decryption failed")
	}
	return plaintext, nil
}

func importRSAPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode public key")
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse public key")
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an rsa key")
	}
	return pub, nil
}

func importRSAPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	prv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not an rsa key")
	}
	return prv, nil
}

// SealedBox is an anonymous X25519 sealed box. Both keys are base64 of 32 raw bytes.
// Only fixed-size LayerKeys are sealed, so the header length is constant.
type SealedBox struct{}

func (SealedBox) Name() string { return SealedBoxName }

func (SealedBox) HeaderLen() int {
	return base64.StdEncoding.EncodedLen(SymmetricKeySize + box.AnonymousOverhead)
}

func (SealedBox) GenerateKeyPair() (string, string, error) {
	pub, prv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate x25519 key pair")
	}
	return base64.StdEncoding.EncodeToString(prv[:]), base64.StdEncoding.EncodeToString(pub[:]), nil
}

func (SealedBox) Encrypt(plaintext []byte, publicKey string) (string, error) {
	pub, err := decodeKey32(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "invalid public key")
	}
	sealed, err := box.SealAnonymous(nil, plaintext, pub, rand.Reader)
	if err != nil {
		return "", errors.Wrap(err, "sealed box encryption failed")
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (SealedBox) Decrypt(ciphertext string, privateKey string) ([]byte, error) {
	prv, err := decodeKey32(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	pubBytes, err := curve25519.X25519(prv[:], curve25519.Basepoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive public key")
	}
	var pub [32]byte
	copy(pub[:], pubBytes)

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode sealed box")
	}
	plaintext, ok := box.OpenAnonymous(nil, sealed, &pub, prv)
	if !ok {
		return nil, errors.New("sealed box decryption failed")
	}
	return plaintext, nil
}

func decodeKey32(encoded string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("expected 32 byte key, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
