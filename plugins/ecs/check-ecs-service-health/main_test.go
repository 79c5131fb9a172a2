package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockECS struct {
	mock.Mock
}

func (m *mockECS) ListServicesPages(input *ecs.ListServicesInput, fn func(*ecs.ListServicesOutput, bool) bool) error {
	args := m.Called(aws.StringValue(input.Cluster))
	if page, ok := args.Get(0).(*ecs.ListServicesOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func (m *mockECS) DescribeServices(input *ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error) {
	args := m.Called(len(input.Services))
	out, _ := args.Get(0).(*ecs.DescribeServicesOutput)
	return out, args.Error(1)
}

func service(name string, desired, running, primaryRunning int64) *ecs.Service {
	return &ecs.Service{
		ServiceName:  aws.String(name),
		DesiredCount: aws.Int64(desired),
		RunningCount: aws.Int64(running),
		Deployments: []*ecs.Deployment{
			{Status: aws.String("PRIMARY"), RunningCount: aws.Int64(primaryRunning)},
			{Status: aws.String("ACTIVE"), RunningCount: aws.Int64(running - primaryRunning)},
		},
	}
}

func TestCheckServiceHealth(t *testing.T) {
	described := &ecs.DescribeServicesOutput{Services: []*ecs.Service{
		service("api", 4, 4, 2),
		service("worker", 2, 1, 1),
		service("batch", 0, 0, 0),
	}}

	tests := []struct {
		name    string
		opts    healthOptions
		status  int
		message string
	}{
		{
			name:    "worker below desired",
			opts:    healthOptions{Cluster: "prod", WarningUnder: 100, CriticalUnder: 0},
			status:  sensu.CheckStateWarning,
			message: "WARNING: services below desired count: worker (1/2)\n",
		},
		{
			name:    "relaxed warning",
			opts:    healthOptions{Cluster: "prod", WarningUnder: 50, CriticalUnder: 0},
			status:  sensu.CheckStateOK,
			message: "OK: 3 service(s) of prod running their desired count\n",
		},
		{
			name:    "primary deployment",
			opts:    healthOptions{Cluster: "prod", PrimaryStatus: true, WarningUnder: 100, CriticalUnder: 60},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: services below desired count: api (2/4), worker (1/2)\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			client := new(mockECS)
			client.On("ListServicesPages", "prod").Return(&ecs.ListServicesOutput{ServiceArns: aws.StringSlice([]string{"api", "worker", "batch"})}, nil)
			client.On("DescribeServices", 3).Return(described, nil)

			status, err := checkServiceHealth(client, test.opts)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}

func TestDescribeServicesBatches(t *testing.T) {
	var names []string
	for i := 0; i < 23; i++ {
		names = append(names, fmt.Sprintf("svc-%d", i))
	}
	client := new(mockECS)
	client.On("DescribeServices", 10).Return(&ecs.DescribeServicesOutput{Services: []*ecs.Service{{}}}, nil).Twice()
	client.On("DescribeServices", 3).Return(&ecs.DescribeServicesOutput{Services: []*ecs.Service{{}}}, nil).Once()

	described, err := describeServices(client, "prod", names)
	require.NoError(t, err)
	assert.Len(t, described, 3)
	client.AssertExpectations(t)
}

func TestDescribeServicesFailure(t *testing.T) {
	client := new(mockECS)
	client.On("DescribeServices", 1).Return(&ecs.DescribeServicesOutput{Failures: []*ecs.Failure{{Arn: aws.String("api"), Reason: aws.String("MISSING")}}}, nil)

	_, err := describeServices(client, "prod", []string{"api"})
	assert.EqualError(t, err, "service api: MISSING")
}
