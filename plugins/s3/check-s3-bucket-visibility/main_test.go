package main

import (
	"bytes"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) ListBuckets(input *s3.ListBucketsInput) (*s3.ListBucketsOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*s3.ListBucketsOutput)
	return out, args.Error(1)
}

func (m *mockS3) GetBucketWebsite(input *s3.GetBucketWebsiteInput) (*s3.GetBucketWebsiteOutput, error) {
	args := m.Called(aws.StringValue(input.Bucket))
	out, _ := args.Get(0).(*s3.GetBucketWebsiteOutput)
	return out, args.Error(1)
}

func (m *mockS3) GetBucketPolicy(input *s3.GetBucketPolicyInput) (*s3.GetBucketPolicyOutput, error) {
	args := m.Called(aws.StringValue(input.Bucket))
	out, _ := args.Get(0).(*s3.GetBucketPolicyOutput)
	return out, args.Error(1)
}

const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":"*","Action":"s3:GetObject","Resource":"arn:aws:s3:::site/*"}]}`

const privatePolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::123456789012:root"},"Action":"s3:*","Resource":"arn:aws:s3:::data/*"}]}`

func TestPublicPolicy(t *testing.T) {
	assert.True(t, publicPolicy(publicReadPolicy))
	assert.True(t, publicPolicy(`{"Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]}}]}`))
	assert.False(t, publicPolicy(privatePolicy))
	assert.False(t, publicPolicy(`{"Statement":[{"Effect":"Deny","Principal":"*"}]}`))
	assert.False(t, publicPolicy("not json"))
}

func TestExclusions(t *testing.T) {
	ex, err := newExclusions([]string{"public-*"}, `^static\.`)
	require.NoError(t, err)
	assert.True(t, ex.match("public-assets"))
	assert.True(t, ex.match("static.example.com"))
	assert.False(t, ex.match("data"))

	_, err = newExclusions(nil, "(")
	assert.Error(t, err)
}

func TestCheckVisibility(t *testing.T) {
	noWebsite := awserr.New("NoSuchWebsiteConfiguration", "no website", nil)
	noPolicy := awserr.New("NoSuchBucketPolicy", "no policy", nil)

	client := new(mockS3)
	client.On("ListBuckets", mock.Anything).Return(&s3.ListBucketsOutput{Buckets: []*s3.Bucket{
		{Name: aws.String("data")},
		{Name: aws.String("site")},
		{Name: aws.String("public-assets")},
	}}, nil)
	client.On("GetBucketWebsite", "data").Return(nil, noWebsite)
	client.On("GetBucketPolicy", "data").Return(&s3.GetBucketPolicyOutput{Policy: aws.String(privatePolicy)}, nil)
	client.On("GetBucketWebsite", "site").Return(&s3.GetBucketWebsiteOutput{}, nil)
	client.On("GetBucketPolicy", "site").Return(&s3.GetBucketPolicyOutput{Policy: aws.String(publicReadPolicy)}, nil)
	client.On("GetBucketWebsite", "logs").Return(nil, noWebsite)
	client.On("GetBucketPolicy", "logs").Return(nil, noPolicy)
	client.On("GetBucketWebsite", "gone").Return(nil, awserr.New(s3.ErrCodeNoSuchBucket, "gone", nil))

	ex, err := newExclusions([]string{"public-*"}, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		opts    visibilityOptions
		status  int
		message string
	}{
		{
			name:    "private buckets",
			opts:    visibilityOptions{Buckets: []string{"data", "logs"}},
			status:  sensu.CheckStateOK,
			message: "OK: 2 bucket(s) are not publicly visible\n",
		},
		{
			name:    "missing bucket warns",
			opts:    visibilityOptions{Buckets: []string{"logs", "gone"}},
			status:  sensu.CheckStateWarning,
			message: "WARNING: gone bucket does not exist\n",
		},
		{
			name:    "missing bucket critical",
			opts:    visibilityOptions{Buckets: []string{"gone"}, CriticalOnMissing: true},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: gone bucket does not exist\n",
		},
		{
			name:    "all buckets with exclusions",
			opts:    visibilityOptions{AllBuckets: true, Exclusions: ex},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: site website configuration found, site bucket policy too permissive\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			status, err := checkVisibility(client, test.opts)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
