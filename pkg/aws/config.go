package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// LoadAWSConfig loads the default AWS config. When AWS_ENDPOINT (or one of the
// service specific AWS_SNS_ENDPOINT / AWS_DYNAMODB_ENDPOINT variables) is set,
// every client built from the returned config targets that URL, which is how
// the service talks to LocalStack in development.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	accessKey, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	switch {
	case accessKey != "" || secret != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secret, ""),
		))
	case endpointOverride() != "":
		// LocalStack accepts any key pair.
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint := endpointOverride(); endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}

func endpointOverride() string {
	for _, key := range []string{"AWS_SNS_ENDPOINT", "AWS_DYNAMODB_ENDPOINT", "AWS_ENDPOINT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
