package s3

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigFromAWSFilesDefaultProfile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config", `
[default]
aws_access_key_id = config-key
aws_secret_access_key = config-secret
region = eu-west-1
endpoint_url = https://s3.gra.io.cloud.ovh.net
`)

	cfg, err := ConfigFromAWSFiles("data", AWSFileOptions{ConfigPath: configPath})
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.Bucket)
	assert.Equal(t, "config-key", cfg.AccessKeyID)
	assert.Equal(t, "config-secret", cfg.SecretAccessKey)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "https://s3.gra.io.cloud.ovh.net", cfg.Endpoint)
}

func TestConfigFromAWSFilesNamedProfile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config", `
[default]
region = us-east-1

[profile staging]
aws_access_key_id = staging-key
aws_secret_access_key = staging-secret
region = eu-central-1
`)

	cfg, err := ConfigFromAWSFiles("data", AWSFileOptions{
		Profile:    "staging",
		ConfigPath: configPath,
	})
	require.NoError(t, err)
	assert.Equal(t, "staging-key", cfg.AccessKeyID)
	assert.Equal(t, "eu-central-1", cfg.Region)
}

func TestConfigFromAWSFilesCredentialsPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config", `
[default]
aws_access_key_id = config-key
aws_secret_access_key = config-secret
region = us-west-2
`)
	credsPath := writeFile(t, dir, "credentials", `
[default]
aws_access_key_id = creds-key
aws_secret_access_key = creds-secret
`)

	cfg, err := ConfigFromAWSFiles("data", AWSFileOptions{
		ConfigPath:      configPath,
		CredentialsPath: credsPath,
	})
	require.NoError(t, err)
	assert.Equal(t, "creds-key", cfg.AccessKeyID, "credentials file wins over config file")
	assert.Equal(t, "creds-secret", cfg.SecretAccessKey)
	assert.Equal(t, "us-west-2", cfg.Region, "region still comes from the config file")
}

func TestConfigFromAWSFilesEnvironmentFallback(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "does-not-exist")

	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("AWS_DEFAULT_REGION", "ap-southeast-2")

	cfg, err := ConfigFromAWSFiles("data", AWSFileOptions{ConfigPath: configPath})
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AccessKeyID)
	assert.Equal(t, "env-secret", cfg.SecretAccessKey)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
}

func TestConfigFromAWSFilesMissingProfileFallsToEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config", `
[default]
region = us-east-1
`)

	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("AWS_DEFAULT_REGION", "")

	cfg, err := ConfigFromAWSFiles("data", AWSFileOptions{
		Profile:    "missing",
		ConfigPath: configPath,
	})
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AccessKeyID)
	assert.Empty(t, cfg.Region)
}
