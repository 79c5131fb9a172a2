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

func (m *mockEC2) DescribeReservedInstances(input *ec2.DescribeReservedInstancesInput) (*ec2.DescribeReservedInstancesOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*ec2.DescribeReservedInstancesOutput)
	return out, args.Error(1)
}

func TestCheckReservations(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	reservation := func(id string, days int) *ec2.ReservedInstances {
		return &ec2.ReservedInstances{
			ReservedInstancesId: aws.String(id),
			InstanceCount:       aws.Int64(2),
			InstanceType:        aws.String("m5.large"),
			End:                 aws.Time(now.Add(time.Duration(days) * 24 * time.Hour)),
		}
	}

	tests := []struct {
		name    string
		days    []int
		status  int
		message string
	}{
		{name: "far away", days: []int{200}, status: sensu.CheckStateOK, message: "OK: 1 active reservations, none expire within 30 days\n"},
		{name: "soon", days: []int{200, 20}, status: sensu.CheckStateWarning, message: "WARNING: r-1 (2 x m5.large) expires in 20 days\n"},
		{name: "imminent", days: []int{3, 20}, status: sensu.CheckStateCritical, message: "CRITICAL: r-0 (2 x m5.large) expires in 3 days, r-1 (2 x m5.large) expires in 20 days\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			output := &ec2.DescribeReservedInstancesOutput{}
			for i, days := range test.days {
				output.ReservedInstances = append(output.ReservedInstances, reservation("r-"+string(rune('0'+i)), days))
			}
			var buf bytes.Buffer
			utils.Output = &buf
			client := new(mockEC2)
			client.On("DescribeReservedInstances", mock.Anything).Return(output, nil)

			status, err := checkReservations(client, now, 30, 7)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
