package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/younsl/gazua/internal/config"
)

// Credential keys understood in a provider's credential block
const (
	CredAccessKeyID     = "aws_access_key_id"
	CredSecretAccessKey = "aws_secret_access_key"
	CredSessionToken    = "aws_session_token"
	CredProfile         = "profile"
	CredRegion          = "region"
)

// imdsTimeout bounds the region lookup against the instance metadata service
const imdsTimeout = 2 * time.Second

// LoadConfig builds an aws.Config from a provider's credential block
// Static keys take precedence over a named profile; anything missing falls
// back to the default credential chain. Without a region in the credential
// block or the environment, the region is read from instance metadata
func LoadConfig(ctx context.Context, cfg *config.ProviderConfig) (aws.Config, error) {
	opts, err := loadOptions(cfg.Credential)
	if err != nil {
		return aws.Config{}, fmt.Errorf("provider %s: %w", cfg.ID, err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config: %w", err)
	}

	if awsCfg.Region == "" {
		region, err := regionFromIMDS(ctx, imds.NewFromConfig(awsCfg))
		if err != nil {
			return aws.Config{}, fmt.Errorf("provider %s: no region configured: %w", cfg.ID, err)
		}
		awsCfg.Region = region
	}

	return awsCfg, nil
}

func loadOptions(credential map[string]string) ([]func(*awsconfig.LoadOptions) error, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if region := credential[CredRegion]; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	keyID, secret := credential[CredAccessKeyID], credential[CredSecretAccessKey]
	switch {
	case keyID != "" && secret != "":
		provider := credentials.NewStaticCredentialsProvider(keyID, secret, credential[CredSessionToken])
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	case keyID != "" || secret != "":
		return nil, fmt.Errorf("%s and %s must be set together", CredAccessKeyID, CredSecretAccessKey)
	case credential[CredProfile] != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(credential[CredProfile]))
	}

	return opts, nil
}

// regionGetter is the part of the IMDS client used for region discovery
type regionGetter interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

func regionFromIMDS(ctx context.Context, client regionGetter) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, imdsTimeout)
	defer cancel()

	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("error querying instance metadata region: %w", err)
	}
	if out.Region == "" {
		return "", fmt.Errorf("instance metadata returned an empty region")
	}
	return out.Region, nil
}
