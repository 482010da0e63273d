package blob

// S3Config carries everything needed to reach the target bucket. Credentials
// resolve in order: static keys, named profile, then the SDK default chain.
type S3Config struct {
	BucketSpec  BucketSpec
	Region      string
	Profile     string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	MaxAttempts int
	MaxConns    int
}

const (
	// DefaultMaxAttempts is the per-upload retry budget for transient
	// store errors. Exhausting it dead-letters the upload.
	DefaultMaxAttempts = 5

	DefaultMaxConns = 100
)

func (c *S3Config) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *S3Config) maxConns() int {
	if c.MaxConns <= 0 {
		return DefaultMaxConns
	}
	return c.MaxConns
}
