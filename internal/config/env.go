package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"docpilot/internal/spec"
)

// Environment variables for the golden-run object store mirror.
const (
	EnvS3Endpoint  = "DOCPILOT_S3_ENDPOINT"
	EnvS3AccessKey = "DOCPILOT_S3_ACCESS_KEY"
	EnvS3SecretKey = "DOCPILOT_S3_SECRET_KEY"
	EnvS3Bucket    = "DOCPILOT_S3_BUCKET"
	EnvS3Region    = "DOCPILOT_S3_REGION"
	EnvS3UseSSL    = "DOCPILOT_S3_USE_SSL"
)

// ObjectStoreEnv holds S3-compatible connection settings.
type ObjectStoreEnv struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// Validate reports the first missing connection setting.
func (cfg ObjectStoreEnv) Validate() error {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return fmt.Errorf("%s is required", EnvS3Endpoint)
	case strings.TrimSpace(cfg.AccessKey) == "":
		return fmt.Errorf("%s is required", EnvS3AccessKey)
	case strings.TrimSpace(cfg.SecretKey) == "":
		return fmt.Errorf("%s is required", EnvS3SecretKey)
	case strings.TrimSpace(cfg.Bucket) == "":
		return fmt.Errorf("%s or object_store.bucket is required", EnvS3Bucket)
	}
	return nil
}

// ObjectStoreFromEnv merges environment settings over the config file values.
func ObjectStoreFromEnv(cfg spec.ObjectStoreConfig) (ObjectStoreEnv, error) {
	useSSL, err := envBool(EnvS3UseSSL, true)
	if err != nil {
		return ObjectStoreEnv{}, err
	}
	out := ObjectStoreEnv{
		Endpoint:  envString(EnvS3Endpoint, ""),
		AccessKey: envString(EnvS3AccessKey, ""),
		SecretKey: envString(EnvS3SecretKey, ""),
		Bucket:    envString(EnvS3Bucket, cfg.Bucket),
		Region:    envString(EnvS3Region, ""),
		UseSSL:    useSSL,
		Prefix:    strings.Trim(cfg.Prefix, "/"),
	}
	return out, out.Validate()
}

func envString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", key, err)
		}
		return b, nil
	}
	return def, nil
}
