package awsclient

/*
credential and instance helpers used when building the aws session:
an sts assume-role provider for cross account checks, and ec2 metadata
lookups for plugins running on the instance they check
*/

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/logger"
	"go.uber.org/zap"
)

const assumeRoleProviderName = "AssumeRoleCredentialsProvider"

// AssumeRoleCredentialsProvider retrieves temporary credentials for RoleArn
// and refreshes them once they expire.
type AssumeRoleCredentialsProvider struct {
	Client  stsiface.STSAPI
	RoleArn string

	assumeRoleCredentials *sts.Credentials
	now                   func() time.Time
}

func NewAssumeRoleCredentialsProvider(client stsiface.STSAPI, roleArn string) *AssumeRoleCredentialsProvider {
	return &AssumeRoleCredentialsProvider{
		Client:  client,
		RoleArn: roleArn,
		now:     time.Now,
	}
}

func (c *AssumeRoleCredentialsProvider) Retrieve() (credentials.Value, error) {
	roleInput := &sts.AssumeRoleInput{}
	roleInput.RoleArn = aws.String(c.RoleArn)
	roleInput.RoleSessionName = aws.String(fmt.Sprintf("sensu-aws@%v", c.now().Unix()))

	logger.Get().Debug("assuming role", zap.String("role_arn", c.RoleArn))
	roleOutput, err := c.Client.AssumeRole(roleInput)
	if err != nil {
		return credentials.Value{ProviderName: assumeRoleProviderName}, errors.Wrapf(err, "assume role %s", c.RoleArn)
	}
	if roleOutput == nil || roleOutput.Credentials == nil {
		return credentials.Value{ProviderName: assumeRoleProviderName}, errors.Errorf("assume role %s returned no credentials", c.RoleArn)
	}
	c.assumeRoleCredentials = roleOutput.Credentials

	return credentials.Value{
		AccessKeyID:     aws.StringValue(c.assumeRoleCredentials.AccessKeyId),
		SecretAccessKey: aws.StringValue(c.assumeRoleCredentials.SecretAccessKey),
		SessionToken:    aws.StringValue(c.assumeRoleCredentials.SessionToken),
		ProviderName:    assumeRoleProviderName,
	}, nil
}

func (c *AssumeRoleCredentialsProvider) IsExpired() bool {
	if c.assumeRoleCredentials == nil || c.assumeRoleCredentials.Expiration == nil {
		return true
	}
	return !c.assumeRoleCredentials.Expiration.After(c.now())
}

// Metadata is the part of the ec2metadata client used here.
type Metadata interface {
	Available() bool
	Region() (string, error)
	GetMetadata(path string) (string, error)
}

// InstanceRegion returns the region of the instance we run on, or fallback
// when the metadata endpoint cannot be reached.
func InstanceRegion(md Metadata, fallback string) string {
	if md == nil || !md.Available() {
		return fallback
	}
	region, err := md.Region()
	if err != nil || region == "" {
		logger.Get().Debug("metadata region lookup failed", zap.Error(err))
		return fallback
	}
	return region
}

func MyInstanceID(md Metadata) (string, error) {
	if md == nil || !md.Available() {
		return "", errors.New("ec2 instance metadata is not available")
	}
	id, err := md.GetMetadata("instance-id")
	if err != nil {
		return "", errors.Wrap(err, "read instance-id from metadata")
	}
	return id, nil
}
