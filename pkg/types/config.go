package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	BaseURL         string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Access links
	LinkExpiryHours uint `envconfig:"LINK_EXPIRY_HOURS" default:"336"` // 14 days

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Object storage for exported PDFs. "s3" or "supabase".
	StorageDriver     string `envconfig:"STORAGE_DRIVER" default:"s3"`
	S3BucketName      string `envconfig:"S3_BUCKET_NAME"`
	S3PublicBaseURL   string `envconfig:"S3_PUBLIC_BASE_URL"`
	SupabaseProjectID string `envconfig:"SUPABASE_PROJECT_ID"`
	SupabaseAPIKey    string `envconfig:"SUPABASE_API_KEY"`
	SupabaseBucket    string `envconfig:"SUPABASE_BUCKET" default:"need-analysis-pdfs"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
	CookieSecure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
}
