// Package configs loads process configuration from the environment.
//
// Every recognized variable is prefixed CONSTRUCTUM_. The server and the
// in-cluster client read the same variables; each entry point validates
// the subset it requires and fails at startup otherwise.
package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnvPrefix is prepended to every configuration key.
const EnvPrefix = "CONSTRUCTUM_"

// DefaultNamespace is the cluster namespace all pipeline resources live
// in unless CONSTRUCTUM_NAMESPACE overrides it.
const DefaultNamespace = "constructum"

// DefaultRecoveryInterval is the cadence of the recovery loop.
const DefaultRecoveryInterval = 5 * time.Minute

// Config carries every recognized option. Optional values are pointers;
// required-ness depends on the entry point (see ForServer / ForClient).
type Config struct {
	SQLConnectionURL string

	S3Region    string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	RedisURL string

	// ContainerName is the image used for the client workload.
	ContainerName string

	// BuildCacheLocation is the workspace root for manifest fetches on
	// the server.
	BuildCacheLocation string

	// PipelineUUID is set on the client only: the pipeline this process
	// supervises.
	PipelineUUID *uuid.UUID

	// VaultServer is required only when a manifest uses secrets.
	VaultServer *string

	GitServerURL   *string
	GitServerToken *string

	// WebhookCallbackURL is the URL the git server posts push events to.
	WebhookCallbackURL *string

	Namespace string

	RecoveryInterval time.Duration
}

// Load reads every recognized CONSTRUCTUM_ variable without validating
// entry-point requirements.
func Load() (*Config, error) {
	c := &Config{
		SQLConnectionURL:   get("SQL_CONNECTION_URL"),
		S3Region:           get("S3_REGION"),
		S3Endpoint:         get("S3_ENDPOINT"),
		S3Bucket:           get("S3_BUCKET"),
		S3AccessKey:        get("S3_ACCESS_KEY"),
		S3SecretKey:        get("S3_SECRET_KEY"),
		RedisURL:           get("REDIS_URL"),
		ContainerName:      get("CONTAINER_NAME"),
		BuildCacheLocation: get("BUILD_CACHE_LOCATION"),
		VaultServer:        getOptional("VAULT_SERVER"),
		GitServerURL:       getOptional("GIT_SERVER_URL"),
		GitServerToken:     getOptional("GIT_SERVER_TOKEN"),
		WebhookCallbackURL: getOptional("WEBHOOK_CALLBACK_URL"),
		Namespace:          DefaultNamespace,
		RecoveryInterval:   DefaultRecoveryInterval,
	}

	if ns := get("NAMESPACE"); ns != "" {
		c.Namespace = ns
	}

	if raw := get("PIPELINE_UUID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%sPIPELINE_UUID is not a UUID: %w", EnvPrefix, err)
		}
		c.PipelineUUID = &id
	}

	if raw := get("RECOVERY_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%sRECOVERY_INTERVAL is not a duration: %w", EnvPrefix, err)
		}
		c.RecoveryInterval = d
	}

	return c, nil
}

// ForServer validates the section of c the admission server requires.
func (c *Config) ForServer() error {
	missing := c.missingCommon()
	if c.GitServerURL == nil || *c.GitServerURL == "" {
		missing = append(missing, "GIT_SERVER_URL")
	}
	if c.WebhookCallbackURL == nil || *c.WebhookCallbackURL == "" {
		missing = append(missing, "WEBHOOK_CALLBACK_URL")
	}
	if c.ContainerName == "" {
		missing = append(missing, "CONTAINER_NAME")
	}
	if c.BuildCacheLocation == "" {
		missing = append(missing, "BUILD_CACHE_LOCATION")
	}
	if c.PipelineUUID != nil {
		return fmt.Errorf("%sPIPELINE_UUID must not be set on the server", EnvPrefix)
	}
	return asMissingError(missing)
}

// ForClient validates the section of c the in-cluster client requires.
func (c *Config) ForClient() error {
	missing := c.missingCommon()
	if c.PipelineUUID == nil {
		missing = append(missing, "PIPELINE_UUID")
	}
	return asMissingError(missing)
}

func (c *Config) missingCommon() []string {
	missing := []string{}
	for _, kv := range []struct{ key, value string }{
		{"SQL_CONNECTION_URL", c.SQLConnectionURL},
		{"S3_REGION", c.S3Region},
		{"S3_ENDPOINT", c.S3Endpoint},
		{"S3_BUCKET", c.S3Bucket},
		{"REDIS_URL", c.RedisURL},
	} {
		if kv.value == "" {
			missing = append(missing, kv.key)
		}
	}
	return missing
}

func asMissingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	for i := range missing {
		missing[i] = EnvPrefix + missing[i]
	}
	return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
}

func get(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func getOptional(key string) *string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		return &v
	}
	return nil
}
