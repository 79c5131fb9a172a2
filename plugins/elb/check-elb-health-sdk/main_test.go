package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockElb struct {
	mock.Mock
}

func (m *mockElb) DescribeLoadBalancersPages(input *elb.DescribeLoadBalancersInput, fn func(*elb.DescribeLoadBalancersOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*elb.DescribeLoadBalancersOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func (m *mockElb) DescribeInstanceHealth(input *elb.DescribeInstanceHealthInput) (*elb.DescribeInstanceHealthOutput, error) {
	args := m.Called(aws.StringValue(input.LoadBalancerName))
	out, _ := args.Get(0).(*elb.DescribeInstanceHealthOutput)
	return out, args.Error(1)
}

type mockEC2 struct {
	mock.Mock
}

func (m *mockEC2) DescribeTags(input *ec2.DescribeTagsInput) (*ec2.DescribeTagsOutput, error) {
	args := m.Called(aws.StringValue(input.Filters[0].Values[0]))
	out, _ := args.Get(0).(*ec2.DescribeTagsOutput)
	return out, args.Error(1)
}

func balancers(names ...string) *elb.DescribeLoadBalancersOutput {
	out := &elb.DescribeLoadBalancersOutput{}
	for _, name := range names {
		out.LoadBalancerDescriptions = append(out.LoadBalancerDescriptions, &elb.LoadBalancerDescription{LoadBalancerName: aws.String(name)})
	}
	return out
}

func health(states map[string]string) *elb.DescribeInstanceHealthOutput {
	out := &elb.DescribeInstanceHealthOutput{}
	for id, state := range states {
		out.InstanceStates = append(out.InstanceStates, &elb.InstanceState{InstanceId: aws.String(id), State: aws.String(state)})
	}
	return out
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name    string
		opts    healthOptions
		states  map[string]map[string]string
		status  int
		message string
	}{
		{
			name:    "healthy",
			states:  map[string]map[string]string{"web": {"i-1": "InService"}, "api": {"i-2": "InService"}},
			status:  sensu.CheckStateOK,
			message: "OK: all instances on all ELBs are healthy\n",
		},
		{
			name:    "unhealthy",
			states:  map[string]map[string]string{"web": {"i-1": "OutOfService"}, "api": {"i-2": "InService"}},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: unhealthy instances detected: web (i-1::OutOfService)\n",
		},
		{
			name:    "warn only with tag",
			opts:    healthOptions{WarnOnly: true, InstanceTag: "Name"},
			states:  map[string]map[string]string{"web": {"i-1": "OutOfService"}, "api": {"i-2": "Unknown"}},
			status:  sensu.CheckStateWarning,
			message: "WARNING: unhealthy instances detected: api (i-2::Unknown); web (frontend::i-1::OutOfService)\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			elbClient := new(mockElb)
			elbClient.On("DescribeLoadBalancersPages", mock.Anything).Return(balancers("web", "api"), nil)
			for name, states := range test.states {
				elbClient.On("DescribeInstanceHealth", name).Return(health(states), nil)
			}
			ec2Client := new(mockEC2)
			ec2Client.On("DescribeTags", "i-1").Return(&ec2.DescribeTagsOutput{Tags: []*ec2.TagDescription{{Key: aws.String("Name"), Value: aws.String("frontend")}}}, nil)
			ec2Client.On("DescribeTags", "i-2").Return(&ec2.DescribeTagsOutput{}, nil)

			status, err := checkHealth(elbClient, ec2Client, test.opts)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}

func TestCheckHealthError(t *testing.T) {
	elbClient := new(mockElb)
	elbClient.On("DescribeLoadBalancersPages", mock.Anything).Return(nil, errors.New("LoadBalancerNotFound"))

	status, err := checkHealth(elbClient, new(mockEC2), healthOptions{ElbName: "missing"})
	assert.Error(t, err)
	assert.Equal(t, sensu.CheckStateUnknown, status)
}
