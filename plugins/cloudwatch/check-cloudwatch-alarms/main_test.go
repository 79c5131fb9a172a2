package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCloudwatch struct {
	mock.Mock
}

func (m *mockCloudwatch) DescribeAlarmsPages(input *cloudwatch.DescribeAlarmsInput, fn func(*cloudwatch.DescribeAlarmsOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*cloudwatch.DescribeAlarmsOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func alarms(names ...string) *cloudwatch.DescribeAlarmsOutput {
	out := &cloudwatch.DescribeAlarmsOutput{}
	for _, name := range names {
		out.MetricAlarms = append(out.MetricAlarms, &cloudwatch.MetricAlarm{AlarmName: aws.String(name)})
	}
	return out
}

func TestCheckAlarms(t *testing.T) {
	excludes, err := compileExcludes([]string{"CPUAlarmLow", "awseb-*"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		output  *cloudwatch.DescribeAlarmsOutput
		err     error
		status  int
		message string
	}{
		{name: "none", output: alarms(), status: sensu.CheckStateOK, message: "OK: no alarms in ALARM state\n"},
		{name: "all excluded", output: alarms("CPUAlarmLow", "awseb-e-123-AWSEBCloudwatchAlarmHigh"), status: sensu.CheckStateOK, message: "OK: no alarms in ALARM state\n"},
		{name: "alarming", output: alarms("CPUAlarmLow", "DiskFull", "QueueDepth"), status: sensu.CheckStateCritical, message: "CRITICAL: 2 alarms in ALARM state: DiskFull, QueueDepth\n"},
		{name: "api error", err: errors.New("Throttling"), status: sensu.CheckStateUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf

			client := new(mockCloudwatch)
			client.On("DescribeAlarmsPages", &cloudwatch.DescribeAlarmsInput{StateValue: aws.String("ALARM")}).Return(test.output, test.err)

			status, err := checkAlarms(client, "ALARM", excludes)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.err != nil, err != nil)
			assert.Equal(t, test.message, buf.String())
		})
	}
}

func TestCompileExcludes(t *testing.T) {
	_, err := compileExcludes([]string{"[unclosed"})
	assert.Error(t, err)
}
