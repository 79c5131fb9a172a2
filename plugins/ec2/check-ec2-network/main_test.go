package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCloudwatch struct {
	cloudwatchiface.CloudWatchAPI
	mock.Mock
}

func (m *mockCloudwatch) GetMetricStatistics(input *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*cloudwatch.GetMetricStatisticsOutput)
	return out, args.Error(1)
}

func TestCheckNetwork(t *testing.T) {
	end := time.Date(2019, 11, 12, 11, 45, 0, 0, time.UTC)
	o := networkOptions{InstanceID: "i-1", Direction: "NetworkOut", Period: 60, EndTime: end, Warning: 1000, Critical: 2000}

	tests := []struct {
		value   float64
		status  int
		message string
	}{
		{value: 500, status: sensu.CheckStateOK, message: "OK: NetworkOut of i-1 at 500 bytes\n"},
		{value: 1500, status: sensu.CheckStateWarning, message: "WARNING: NetworkOut of i-1 at 1500 bytes\n"},
		{value: 2500, status: sensu.CheckStateCritical, message: "CRITICAL: NetworkOut of i-1 at 2500 bytes\n"},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		utils.Output = &buf
		client := new(mockCloudwatch)
		client.On("GetMetricStatistics", mock.MatchedBy(func(in *cloudwatch.GetMetricStatisticsInput) bool {
			return aws.StringValue(in.MetricName) == "NetworkOut" &&
				aws.TimeValue(in.EndTime).Equal(end) &&
				aws.TimeValue(in.StartTime).Equal(end.Add(-10*time.Minute))
		})).Return(&cloudwatch.GetMetricStatisticsOutput{Datapoints: []*cloudwatch.Datapoint{{
			Average:   aws.Float64(test.value),
			Timestamp: aws.Time(end),
		}}}, nil)

		status, err := checkNetwork(client, o)
		assert.NoError(t, err)
		assert.Equal(t, test.status, status)
		assert.Equal(t, test.message, buf.String())
	}
}
