package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEC2 struct {
	ec2iface.EC2API
	mock.Mock
}

func (m *mockEC2) DescribeInstancesPages(input *ec2.DescribeInstancesInput, fn func(*ec2.DescribeInstancesOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*ec2.DescribeInstancesOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func instance(id, instanceType, state string) *ec2.Instance {
	return &ec2.Instance{
		InstanceId:   aws.String(id),
		InstanceType: aws.String(instanceType),
		State:        &ec2.InstanceState{Name: aws.String(state)},
	}
}

func TestCollect(t *testing.T) {
	client := new(mockEC2)
	client.On("DescribeInstancesPages", mock.Anything).Return(&ec2.DescribeInstancesOutput{
		Reservations: []*ec2.Reservation{{Instances: []*ec2.Instance{
			instance("i-1", "t3.micro", "running"),
			instance("i-2", "t3.micro", "stopped"),
			instance("i-3", "m5.large", "running"),
		}}},
	}, nil)

	for metricType, expected := range map[string]string{
		byInstance: "aws.count.instance.m5.large 1 1577836800\naws.count.instance.t3.micro 2 1577836800\n",
		byStatus:   "aws.count.status.running 2 1577836800\naws.count.status.stopped 1 1577836800\n",
	} {
		emitter := metrics.NewEmitter("aws")
		emitter.Now = func() time.Time { return time.Unix(1577836800, 0) }
		require.NoError(t, collect(client, metricType, emitter))

		var buf bytes.Buffer
		require.NoError(t, emitter.Write(&buf))
		assert.Equal(t, expected, buf.String())
	}
}
