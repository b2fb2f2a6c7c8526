package misc

const (
	// ArgonTime Key derivation parameters (RFC 9106 second recommended set;
	// the derivation requests a double-length output so a single pass yields
	// both the encryption and the authentication subkey)
	ArgonTime    uint32 = 1
	ArgonMemory  uint32 = 64 * 1024
	ArgonThreads uint8  = 4
	ArgonKeyLen  uint32 = 32

	SaltSize = 16
	IVSize   = 16

	// MinSecretKeyLength is the shortest secret key the engine accepts.
	MinSecretKeyLength = 16

	// SecretKeyBytes is the number of random bytes behind a generated key
	// (base64 encoded on the wire).
	SecretKeyBytes = 32

	// MaxLogEntries caps the audit, rotation-history and encryption-tracking
	// documents; the oldest entries are discarded past this point.
	MaxLogEntries = 10000

	// KeyHashLength is the number of hex characters kept from a SHA-256
	// digest when recording key hashes in rotation history.
	KeyHashLength = 16

	// ExpiryThresholdDays is the window, in whole days before expiry, in
	// which a key is reported as expiring soon.
	ExpiryThresholdDays = 7

	// DefaultRotationDays is the key lifetime applied when the caller does
	// not choose one.
	DefaultRotationDays = 90

	FilePermissions = 0600 // user read + write
)
