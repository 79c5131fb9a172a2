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
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) ListBuckets(input *s3.ListBucketsInput) (*s3.ListBucketsOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*s3.ListBucketsOutput)
	return out, args.Error(1)
}

func (m *mockS3) GetBucketTagging(input *s3.GetBucketTaggingInput) (*s3.GetBucketTaggingOutput, error) {
	args := m.Called(aws.StringValue(input.Bucket))
	out, _ := args.Get(0).(*s3.GetBucketTaggingOutput)
	return out, args.Error(1)
}

func tagging(keys ...string) *s3.GetBucketTaggingOutput {
	out := &s3.GetBucketTaggingOutput{}
	for _, key := range keys {
		out.TagSet = append(out.TagSet, &s3.Tag{Key: aws.String(key), Value: aws.String("x")})
	}
	return out
}

func TestCheckTags(t *testing.T) {
	client := new(mockS3)
	client.On("ListBuckets", mock.Anything).Return(&s3.ListBucketsOutput{Buckets: []*s3.Bucket{
		{Name: aws.String("tagged")},
		{Name: aws.String("partial")},
		{Name: aws.String("bare")},
		{Name: aws.String("elsewhere")},
	}}, nil)
	client.On("GetBucketTagging", "tagged").Return(tagging("owner", "team"), nil)
	client.On("GetBucketTagging", "partial").Return(tagging("owner"), nil)
	client.On("GetBucketTagging", "bare").Return(nil, awserr.New("NoSuchTagSet", "no tags", nil))
	client.On("GetBucketTagging", "elsewhere").Return(nil, awserr.New("AccessDenied", "denied", nil))

	var buf bytes.Buffer
	utils.Output = &buf
	status, err := checkTags(client, []string{"owner", "team"})
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateCritical, status)
	assert.Equal(t, "CRITICAL: missing tags for buckets: bare (owner, team), partial (team)\n", buf.String())

	buf.Reset()
	status, err = checkTags(client, []string{"owner"})
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateCritical, status)
	assert.Equal(t, "CRITICAL: missing tags for buckets: bare (owner)\n", buf.String())
}
