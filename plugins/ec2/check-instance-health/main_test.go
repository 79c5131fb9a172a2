package main

import (
	"bytes"
	"testing"

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

func (m *mockEC2) DescribeInstanceStatusPages(input *ec2.DescribeInstanceStatusInput, fn func(*ec2.DescribeInstanceStatusOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*ec2.DescribeInstanceStatusOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func status(id, system, instance string) *ec2.InstanceStatus {
	return &ec2.InstanceStatus{
		InstanceId:     aws.String(id),
		SystemStatus:   &ec2.InstanceStatusSummary{Status: aws.String(system)},
		InstanceStatus: &ec2.InstanceStatusSummary{Status: aws.String(instance)},
	}
}

func TestCheckInstanceHealth(t *testing.T) {
	tests := []struct {
		name     string
		statuses []*ec2.InstanceStatus
		status   int
		message  string
	}{
		{
			name:     "healthy",
			statuses: []*ec2.InstanceStatus{status("i-1", "ok", "ok")},
			status:   sensu.CheckStateOK,
			message:  "OK: all instance status checks pass\n",
		},
		{
			name:     "initializing",
			statuses: []*ec2.InstanceStatus{status("i-1", "ok", "initializing")},
			status:   sensu.CheckStateWarning,
			message:  "WARNING: instances without a passing status: i-1 (system ok, instance initializing)\n",
		},
		{
			name:     "impaired",
			statuses: []*ec2.InstanceStatus{status("i-1", "impaired", "ok"), status("i-2", "ok", "ok")},
			status:   sensu.CheckStateCritical,
			message:  "CRITICAL: impaired instances: i-1 (system impaired, instance ok)\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			client := new(mockEC2)
			client.On("DescribeInstanceStatusPages", mock.Anything).Return(&ec2.DescribeInstanceStatusOutput{InstanceStatuses: test.statuses}, nil)

			status, err := checkInstanceHealth(client, nil, nil)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
