// Package secrets resolves the trusted-client credential from AWS Secrets
// Manager when it is not configured inline.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/bytedance/sonic"
)

var ErrSecretNotFound = errors.New("secret not found")

// SecretsManagerAPI is the part of the Secrets Manager client we use.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// loadDefaultAWSConfig is a test seam.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewSecretsManagerClient builds a client from the default AWS credential chain.
func NewSecretsManagerClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// Resolver reads a secret string. Secret references have the form
// "<secret-id>" or "<secret-id>#<json-key>" when the secret is a JSON object.
type Resolver struct {
	client SecretsManagerAPI
}

func NewResolver(client SecretsManagerAPI) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	id, key, _ := strings.Cut(ref, "#")

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, id)
		}
		return "", fmt.Errorf("get secret %s: %w", id, err)
	}

	value := aws.ToString(out.SecretString)
	if value == "" && out.SecretBinary != nil {
		value = string(out.SecretBinary)
	}
	if key == "" {
		return value, nil
	}

	var fields map[string]string
	if err := sonic.UnmarshalString(value, &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", id, err)
	}
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s#%s", ErrSecretNotFound, id, key)
	}
	return v, nil
}
