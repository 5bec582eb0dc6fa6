package keys

import "github.com/pkg/errors"

// SealLayerKey encrypts an exported LayerKey to publicKey. The key travels as its raw bytes.
func SealLayerKey(scheme Scheme, exported string, publicKey string) (string, error) {
	key, err := ImportSymmetricKey(exported)
	if err != nil {
		return "", err
	}
	header, err := scheme.Encrypt(key, publicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to seal layer key")
	}
	return header, nil
}

// OpenLayerKey recovers the exported LayerKey sealed in header.
func OpenLayerKey(scheme Scheme, header string, privateKey string) (string, error) {
	key, err := scheme.Decrypt(header, privateKey)
	if err != nil {
		return "", err
	}
	return ExportSymmetricKey(key), nil
}
