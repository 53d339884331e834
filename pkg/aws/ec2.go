package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/gazua/internal/config"
)

// EC2Client lists EC2 instances using the credentials of each provider config
type EC2Client struct {
	loadConfig func(ctx context.Context, cfg *config.ProviderConfig) (aws.Config, error)
	newAPI     func(cfg aws.Config) ec2.DescribeInstancesAPIClient
}

// NewEC2Client creates a new EC2Client
func NewEC2Client() *EC2Client {
	return &EC2Client{
		loadConfig: LoadConfig,
		newAPI: func(cfg aws.Config) ec2.DescribeInstancesAPIClient {
			return ec2.NewFromConfig(cfg)
		},
	}
}

// DescribeInstances returns every reservation visible to the provider's credentials
func (c *EC2Client) DescribeInstances(ctx context.Context, cfg *config.ProviderConfig) ([]types.Reservation, error) {
	awsCfg, err := c.loadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return DescribeReservations(ctx, c.newAPI(awsCfg))
}

// DescribeReservations pages through DescribeInstances and collects all reservations
func DescribeReservations(ctx context.Context, api ec2.DescribeInstancesAPIClient) ([]types.Reservation, error) {
	var reservations []types.Reservation

	paginator := ec2.NewDescribeInstancesPaginator(api, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EC2 instances: %w", err)
		}
		reservations = append(reservations, page.Reservations...)
	}

	return reservations, nil
}
