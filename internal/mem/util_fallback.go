//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package mem

func lockMemoryPlatform() (ProtectionLevel, error) {
	// Can't prevent swapping on unsupported platforms; wiping still applies
	return ProtectionPartial, nil
}

func unlockMemoryPlatform() error {
	return nil
}
