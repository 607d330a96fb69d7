package domain

import "context"

// KMSKeeper abstracts the subset of gocloud.dev/secrets.Keeper used to wrap
// and unwrap the master key with an external KMS. *secrets.Keeper implements it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
