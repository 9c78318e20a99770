package dynamodb

import (
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewClientFromConfig returns a DynamoDB client for cfg. A non-empty endpoint
// overrides the config's base endpoint for this client only, which lets the
// guest cart table live in LocalStack while other AWS calls go elsewhere.
func NewClientFromConfig(cfg sdkaws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
		}
	})
}
