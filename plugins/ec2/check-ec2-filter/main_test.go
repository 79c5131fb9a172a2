package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var now = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

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

func instances() *ec2.DescribeInstancesOutput {
	return &ec2.DescribeInstancesOutput{
		Reservations: []*ec2.Reservation{{
			Instances: []*ec2.Instance{
				{InstanceId: aws.String("i-old"), LaunchTime: aws.Time(now.Add(-time.Hour))},
				{InstanceId: aws.String("i-new"), LaunchTime: aws.Time(now.Add(-time.Minute))},
				{
					InstanceId: aws.String("i-dev"),
					LaunchTime: aws.Time(now.Add(-time.Hour)),
					Tags:       []*ec2.Tag{{Key: aws.String("Env"), Value: aws.String("dev")}},
				},
			},
		}},
	}
}

func TestCheckFilter(t *testing.T) {
	filters := []*ec2.Filter{{Name: aws.String("instance-state-name"), Values: aws.StringSlice([]string{"running"})}}
	base := checkOptions{Critical: 0, Warning: 1, Compare: "less", Now: func() time.Time { return now }}

	tests := []struct {
		name    string
		opts    func(checkOptions) checkOptions
		status  int
		message string
	}{
		{
			name:    "all instances counted",
			opts:    func(o checkOptions) checkOptions { return o },
			status:  sensu.CheckStateOK,
			message: "OK: Current count: 3\n",
		},
		{
			name: "exclusions and young instances dropped",
			opts: func(o checkOptions) checkOptions {
				o.ExcludeTags = models.ExcludeTags{Tags: []models.Tag{{Name: "Env", Value: "dev"}}}
				o.MinRunningSecs = 600
				o.Detailed = true
				o.Compare = "equal"
				o.Critical = 1
				return o
			},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: Current count: 1 (i-old), comparison=equal threshold=1\n",
		},
		{
			name: "warning",
			opts: func(o checkOptions) checkOptions {
				o.Compare = "greater"
				o.Critical = 5
				o.Warning = 2
				return o
			},
			status:  sensu.CheckStateWarning,
			message: "WARNING: Current count: 3, comparison=greater threshold=2\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			client := new(mockEC2)
			client.On("DescribeInstancesPages", &ec2.DescribeInstancesInput{Filters: filters}).Return(instances(), nil)

			status, err := checkFilter(client, filters, test.opts(base))
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
