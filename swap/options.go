package swap

// Config holds the engine configuration.
type Config struct {
	// Logger receives engine diagnostics (optional)
	Logger Logger

	// ProgressCallback is called as granules complete (optional)
	ProgressCallback ProgressCallback

	// MaxSectors bounds the number of sectors per slot. It also sizes
	// the trailer's progress table, so it must match the value the
	// slots were provisioned with.
	MaxSectors int

	// ValidatePrimary indicates the outer loader cryptographically
	// validates the primary slot. With validation available, an
	// inconsistent progress table is survivable: the engine continues
	// and a bad outcome is rejected by verification.
	ValidatePrimary bool

	// EncKeySize is the wrapped encryption key length in bytes. Zero
	// disables the trailer's key fields.
	EncKeySize uint32

	// ImageCount is the number of images managed by the bootloader.
	ImageCount int

	// ImageIndex is the image this engine instance operates on.
	ImageIndex uint8

	// AllowUnequalSlots relaxes the requirement that both slots have
	// the same total size. Used with compressed candidate images.
	AllowUnequalSlots bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		MaxSectors: 128,
		ImageCount: 1,
	}
}

// Option is a functional option for configuring the engine.
type Option func(*Config)

// WithLogger sets a logger for engine diagnostics.
//
// Example:
//
//	eng, err := swap.New(primary, secondary, scratch,
//	    swap.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback invoked as granules complete.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithMaxSectors sets the per-slot sector bound. Default is 128.
func WithMaxSectors(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxSectors = n
		}
	}
}

// WithValidatePrimary declares that the outer loader validates the
// primary slot after a swap. Default is false.
func WithValidatePrimary(validate bool) Option {
	return func(c *Config) {
		c.ValidatePrimary = validate
	}
}

// WithEncryption enables the trailer's wrapped-key fields, sized for
// keys of keySize bytes.
func WithEncryption(keySize uint32) Option {
	return func(c *Config) {
		c.EncKeySize = keySize
	}
}

// WithImageCount sets the number of images the surrounding bootloader
// manages. Default is 1.
func WithImageCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ImageCount = n
		}
	}
}

// WithImageIndex sets the image this engine instance operates on.
// Default is 0.
func WithImageIndex(idx uint8) Option {
	return func(c *Config) {
		c.ImageIndex = idx
	}
}

// WithUnequalSlots relaxes the equal-total-size geometry check, for
// configurations where the secondary slot holds a compressed image.
func WithUnequalSlots(allow bool) Option {
	return func(c *Config) {
		c.AllowUnequalSlots = allow
	}
}
