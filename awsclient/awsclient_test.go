package awsclient

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stsClient struct {
	stsiface.STSAPI
	mock.Mock
}

func (s *stsClient) AssumeRole(input *sts.AssumeRoleInput) (*sts.AssumeRoleOutput, error) {
	args := s.Called(input)
	out, _ := args.Get(0).(*sts.AssumeRoleOutput)
	return out, args.Error(1)
}

func TestAssumeRoleCredentialsProvider(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	client := new(stsClient)
	client.On("AssumeRole", mock.MatchedBy(func(in *sts.AssumeRoleInput) bool {
		return aws.StringValue(in.RoleArn) == "arn:aws:iam::123:role/sensu" &&
			aws.StringValue(in.RoleSessionName) == "sensu-aws@1577836800"
	})).Return(&sts.AssumeRoleOutput{
		Credentials: &sts.Credentials{
			AccessKeyId:     aws.String("AKID"),
			SecretAccessKey: aws.String("SECRET"),
			SessionToken:    aws.String("TOKEN"),
			Expiration:      aws.Time(now.Add(time.Hour)),
		},
	}, nil)

	provider := NewAssumeRoleCredentialsProvider(client, "arn:aws:iam::123:role/sensu")
	provider.now = func() time.Time { return now }
	assert.True(t, provider.IsExpired())

	value, err := provider.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "AKID", value.AccessKeyID)
	assert.Equal(t, "SECRET", value.SecretAccessKey)
	assert.Equal(t, "TOKEN", value.SessionToken)
	assert.False(t, provider.IsExpired())

	provider.now = func() time.Time { return now.Add(2 * time.Hour) }
	assert.True(t, provider.IsExpired())
}

func TestAssumeRoleCredentialsProviderError(t *testing.T) {
	client := new(stsClient)
	client.On("AssumeRole", mock.Anything).Return(nil, errors.New("access denied"))

	provider := NewAssumeRoleCredentialsProvider(client, "arn:aws:iam::123:role/sensu")
	_, err := provider.Retrieve()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.True(t, provider.IsExpired())
}

type metadata struct {
	available bool
	region    string
	values    map[string]string
}

func (m metadata) Available() bool { return m.available }

func (m metadata) Region() (string, error) {
	if m.region == "" {
		return "", errors.New("no region")
	}
	return m.region, nil
}

func (m metadata) GetMetadata(path string) (string, error) {
	v, ok := m.values[path]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestInstanceRegion(t *testing.T) {
	assert.Equal(t, "us-east-1", InstanceRegion(nil, "us-east-1"))
	assert.Equal(t, "us-east-1", InstanceRegion(metadata{}, "us-east-1"))
	assert.Equal(t, "us-east-1", InstanceRegion(metadata{available: true}, "us-east-1"))
	assert.Equal(t, "eu-west-1", InstanceRegion(metadata{available: true, region: "eu-west-1"}, "us-east-1"))
}

func TestMyInstanceID(t *testing.T) {
	_, err := MyInstanceID(metadata{})
	assert.Error(t, err)

	id, err := MyInstanceID(metadata{available: true, values: map[string]string{"instance-id": "i-123"}})
	require.NoError(t, err)
	assert.Equal(t, "i-123", id)
}
