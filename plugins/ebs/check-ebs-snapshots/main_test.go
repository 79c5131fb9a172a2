package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockEC2 struct {
	mock.Mock
}

func (m *mockEC2) DescribeVolumesPages(input *ec2.DescribeVolumesInput, fn func(*ec2.DescribeVolumesOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*ec2.DescribeVolumesOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func (m *mockEC2) DescribeSnapshotsPages(input *ec2.DescribeSnapshotsInput, fn func(*ec2.DescribeSnapshotsOutput, bool) bool) error {
	args := m.Called(aws.StringValue(input.Filters[0].Values[0]))
	if page, ok := args.Get(0).(*ec2.DescribeSnapshotsOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func volume(id, name string, extraTags ...string) *ec2.Volume {
	v := &ec2.Volume{VolumeId: aws.String(id), Tags: []*ec2.Tag{{Key: aws.String("Name"), Value: aws.String(name)}}}
	for _, key := range extraTags {
		v.Tags = append(v.Tags, &ec2.Tag{Key: aws.String(key), Value: aws.String("true")})
	}
	return v
}

func TestCheckSnapshots(t *testing.T) {
	now := time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	utils.Output = &buf

	client := new(mockEC2)
	client.On("DescribeVolumesPages", mock.Anything).Return(&ec2.DescribeVolumesOutput{Volumes: []*ec2.Volume{
		volume("vol-fresh", "db"),
		volume("vol-stale", "web"),
		volume("vol-none", "cache"),
		volume("vol-skip", "scratch", ignoreTag),
	}}, nil)
	client.On("DescribeSnapshotsPages", "vol-fresh").Return(&ec2.DescribeSnapshotsOutput{Snapshots: []*ec2.Snapshot{
		{StartTime: aws.Time(now.Add(-20 * 24 * time.Hour))},
		{StartTime: aws.Time(now.Add(-24 * time.Hour))},
	}}, nil)
	client.On("DescribeSnapshotsPages", "vol-stale").Return(&ec2.DescribeSnapshotsOutput{Snapshots: []*ec2.Snapshot{
		{StartTime: aws.Time(time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC))},
	}}, nil)
	client.On("DescribeSnapshotsPages", "vol-none").Return(&ec2.DescribeSnapshotsOutput{}, nil)

	status, err := checkSnapshots(client, now, 7, true)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateWarning, status)
	assert.Equal(t, "WARNING: web (vol-stale) latest snapshot is 2019-12-01T00:00:00Z, cache (vol-none) has no snapshot\n", buf.String())
	client.AssertNotCalled(t, "DescribeSnapshotsPages", "vol-skip")
}
