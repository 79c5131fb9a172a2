package utils

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ec2Client struct {
	ec2iface.EC2API
	mock.Mock
}

func (m *ec2Client) DescribeInstancesPages(input *ec2.DescribeInstancesInput, fn func(*ec2.DescribeInstancesOutput, bool) bool) error {
	args := m.Called(input)
	pages, _ := args.Get(0).([]*ec2.DescribeInstancesOutput)
	for i, page := range pages {
		if !fn(page, i == len(pages)-1) {
			break
		}
	}
	return args.Error(1)
}

func TestGetInstances(t *testing.T) {
	filters := []*ec2.Filter{{Name: aws.String("instance-state-name"), Values: aws.StringSlice([]string{"running"})}}
	client := new(ec2Client)
	client.On("DescribeInstancesPages", &ec2.DescribeInstancesInput{Filters: filters}).Return([]*ec2.DescribeInstancesOutput{
		{Reservations: []*ec2.Reservation{{Instances: []*ec2.Instance{{InstanceId: aws.String("i-1")}}}}},
		{Reservations: []*ec2.Reservation{{Instances: []*ec2.Instance{{InstanceId: aws.String("i-2")}, {InstanceId: aws.String("i-3")}}}}},
	}, nil)

	instances, err := GetInstances(client, filters)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	assert.Equal(t, "i-3", aws.StringValue(instances[2].InstanceId))
}

func TestGetReservationsError(t *testing.T) {
	client := new(ec2Client)
	client.On("DescribeInstancesPages", mock.Anything).Return(nil, errors.New("UnauthorizedOperation"))

	_, err := GetReservations(client, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "UnauthorizedOperation")
}
