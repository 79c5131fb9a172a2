package main

import (
	"bytes"
	"testing"
	"time"

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

func (m *mockS3) HeadObject(input *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	args := m.Called(aws.StringValue(input.Key))
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) ListObjectsV2Pages(input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool) error {
	args := m.Called(aws.StringValue(input.Prefix))
	if page, ok := args.Get(0).(*s3.ListObjectsV2Output); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func size(v int64) *int64 {
	return &v
}

func TestCheckObject(t *testing.T) {
	now := time.Date(2020, 1, 2, 12, 0, 0, 0, time.UTC)
	client := new(mockS3)
	client.On("HeadObject", "fresh.txt").Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(2048), LastModified: aws.Time(now.Add(-time.Hour))}, nil)
	client.On("HeadObject", "stale.txt").Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(2048), LastModified: aws.Time(now.Add(-30 * time.Hour))}, nil)
	client.On("HeadObject", "empty.txt").Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(0), LastModified: aws.Time(now.Add(-time.Hour))}, nil)
	client.On("HeadObject", "missing.txt").Return(nil, awserr.New("NotFound", "Not Found", nil))
	client.On("ListObjectsV2Pages", "backup-").Return(&s3.ListObjectsV2Output{Contents: []*s3.Object{
		{Key: aws.String("backup-1"), Size: aws.Int64(10), LastModified: aws.Time(now.Add(-48 * time.Hour))},
		{Key: aws.String("backup-2"), Size: aws.Int64(10), LastModified: aws.Time(now.Add(-2 * time.Hour))},
	}}, nil)
	client.On("ListObjectsV2Pages", "nothing-").Return(&s3.ListObjectsV2Output{}, nil)

	base := objectOptions{Bucket: "bucket", WarningAge: 25 * time.Hour, CriticalAge: 35 * time.Hour, OkZeroSize: true, CompareSize: "greater", Now: now}

	tests := []struct {
		name    string
		opts    func(*objectOptions)
		status  int
		message string
	}{
		{"fresh", func(o *objectOptions) { o.Key = "fresh.txt" }, sensu.CheckStateOK, "OK: S3 object fresh.txt exists in bucket bucket\n"},
		{"stale", func(o *objectOptions) { o.Key = "stale.txt" }, sensu.CheckStateWarning, "WARNING: S3 object stale.txt (bucket bucket): age 30h0m0s\n"},
		{"missing", func(o *objectOptions) { o.Key = "missing.txt" }, sensu.CheckStateCritical, "CRITICAL: S3 object missing.txt not found in bucket bucket\n"},
		{"empty", func(o *objectOptions) {
			o.Key = "empty.txt"
			o.OkZeroSize = false
		}, sensu.CheckStateCritical, "CRITICAL: S3 object empty.txt (bucket bucket): object is empty\n"},
		{"size less", func(o *objectOptions) {
			o.Key = "fresh.txt"
			o.CompareSize = "less"
			o.WarningSize = size(4096)
			o.CriticalSize = size(1024)
		}, sensu.CheckStateWarning, "WARNING: S3 object fresh.txt (bucket bucket): size 2048 octets\n"},
		{"prefix too broad", func(o *objectOptions) { o.Prefix = "backup-" }, sensu.CheckStateCritical, "CRITICAL: prefix backup- matches 2 objects, be more specific or pass --all-objects\n"},
		{"prefix newest", func(o *objectOptions) {
			o.Prefix = "backup-"
			o.AllObjects = true
		}, sensu.CheckStateOK, "OK: S3 object backup-2 exists in bucket bucket\n"},
		{"prefix empty", func(o *objectOptions) { o.Prefix = "nothing-" }, sensu.CheckStateCritical, "CRITICAL: S3 object nothing-* not found in bucket bucket\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			opts := base
			test.opts(&opts)

			status, err := checkObject(client, opts)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
