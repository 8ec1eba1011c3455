// Package config loads configuration for the ioevents binaries.
//
// Values come from defaults, then an optional YAML file named by
// IOEVENTS_CONFIG_FILE, then IOEVENTS_* environment variables.
//
// # Environment
//
// Credentials:
//
//	IOEVENTS_ORG_ID="12345@AdobeOrg"
//	IOEVENTS_API_KEY="..."
//	IOEVENTS_ACCESS_TOKEN="..."
//	IOEVENTS_CLIENT_ID="..."            # recipient client id for webhooks
//
// Service calls:
//
//	IOEVENTS_BASE_URL="https://api.adobe.io"
//	IOEVENTS_INGRESS_URL="https://eventsingress.adobe.io"
//	IOEVENTS_HTTP_TIMEOUT="30s"
//	IOEVENTS_HTTP_RETRIES="3"
//
// Journal:
//
//	IOEVENTS_JOURNAL_URL="https://events-va6.adobe.io/events/organizations/..."
//	IOEVENTS_JOURNAL_INTERVAL="5s"      # empty follows Retry-After
//	IOEVENTS_JOURNAL_CONSUMER_KEY="reg-1"
//
// Signatures and key cache:
//
//	IOEVENTS_SECURITY_DOMAIN="https://static.adobeioevents.com"
//	IOEVENTS_TRUSTED_KEY_HOSTS="keys.example.com"
//	IOEVENTS_KEY_CACHE_TYPE="redis"     # memory, redis
//	IOEVENTS_KEY_CACHE_REDIS_URL="redis://localhost:6379/0"
//
// Cursor storage:
//
//	IOEVENTS_STORAGE_TYPE="postgres"    # memory, filesystem, redis, postgres, sqlite, s3
//	IOEVENTS_STORAGE_DSN="postgres://localhost/ioevents"
//	IOEVENTS_S3_BUCKET="ioevents-cursors"
//
// Observability:
//
//	IOEVENTS_LOG_LEVEL="info"
//	IOEVENTS_LOG_FORMAT="json"
//	IOEVENTS_OTEL_ENABLED="true"
//	IOEVENTS_OTEL_ENDPOINT="otel-collector:4317"
//	IOEVENTS_OTEL_SAMPLE_RATIO="0.1"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.RequireCredentials(); err != nil {
//		log.Fatal(err)
//	}
package config
