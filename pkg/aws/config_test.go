package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAWSConfig_LocalStack(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_SNS_ENDPOINT", "")
	t.Setenv("AWS_DYNAMODB_ENDPOINT", "")
	t.Setenv("AWS_ENDPOINT", "http://localhost:4566")

	cfg, err := LoadAWSConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
	assert.Equal(t, "us-east-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestLoadAWSConfig_ExplicitKeys(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SNS_ENDPOINT", "")
	t.Setenv("AWS_DYNAMODB_ENDPOINT", "")
	t.Setenv("AWS_ENDPOINT", "")

	cfg, err := LoadAWSConfig(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg.BaseEndpoint)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}
