package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockDynamo struct {
	mock.Mock
}

func (m *mockDynamo) ListTablesPages(input *dynamodb.ListTablesInput, fn func(*dynamodb.ListTablesOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*dynamodb.ListTablesOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

type mockCloudwatch struct {
	cloudwatchiface.CloudWatchAPI
	mock.Mock
}

func (m *mockCloudwatch) GetMetricStatistics(input *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
	args := m.Called(aws.StringValue(input.Dimensions[0].Value), aws.StringValue(input.MetricName))
	out, _ := args.Get(0).(*cloudwatch.GetMetricStatisticsOutput)
	return out, args.Error(1)
}

func sum(v float64) *cloudwatch.GetMetricStatisticsOutput {
	return &cloudwatch.GetMetricStatisticsOutput{Datapoints: []*cloudwatch.Datapoint{{Sum: aws.Float64(v), Timestamp: aws.Time(time.Now())}}}
}

func TestCheckThrottle(t *testing.T) {
	cw := new(mockCloudwatch)
	cw.On("GetMetricStatistics", "users", "ReadThrottleEvents").Return(sum(12), nil)
	cw.On("GetMetricStatistics", "users", "WriteThrottleEvents").Return(&cloudwatch.GetMetricStatisticsOutput{}, nil)
	cw.On("GetMetricStatistics", "orders", "ReadThrottleEvents").Return(sum(0), nil)
	cw.On("GetMetricStatistics", "orders", "WriteThrottleEvents").Return(sum(2), nil)

	tests := []struct {
		name    string
		opts    throttleOptions
		status  int
		message string
	}{
		{
			name:    "ok",
			opts:    throttleOptions{Tables: []string{"users", "orders"}, Kinds: []string{"read", "write"}, Period: 60, WarningOver: 50, CriticalOver: 100},
			status:  sensu.CheckStateOK,
			message: "OK: throttled requests of 2 table(s) are below 50\n",
		},
		{
			name:    "warning",
			opts:    throttleOptions{Tables: []string{"users", "orders"}, Kinds: []string{"read", "write"}, Period: 60, WarningOver: 10, CriticalOver: 100},
			status:  sensu.CheckStateWarning,
			message: "WARNING: users 12 read requests throttled\n",
		},
		{
			name:    "listed tables",
			opts:    throttleOptions{Kinds: []string{"write"}, Period: 60, WarningOver: 1, CriticalOver: 2},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: orders 2 write requests throttled\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			dynamo := new(mockDynamo)
			dynamo.On("ListTablesPages", mock.Anything).Return(&dynamodb.ListTablesOutput{TableNames: aws.StringSlice([]string{"users", "orders"})}, nil)

			status, err := checkThrottle(dynamo, cw, test.opts)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
