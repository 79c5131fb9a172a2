package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSES struct {
	mock.Mock
}

func (m *mockSES) GetSendQuota(input *ses.GetSendQuotaInput) (*ses.GetSendQuotaOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*ses.GetSendQuotaOutput)
	return out, args.Error(1)
}

func TestCheckLimit(t *testing.T) {
	tests := []struct {
		name    string
		sent    float64
		status  int
		message string
	}{
		{"ok", 100, sensu.CheckStateOK, "OK: 10.0% of sending quota used (100/1000)\n"},
		{"warning", 800, sensu.CheckStateWarning, "WARNING: 80.0% of sending quota used (800/1000)\n"},
		{"critical", 950, sensu.CheckStateCritical, "CRITICAL: 95.0% of sending quota used (950/1000)\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			client := new(mockSES)
			client.On("GetSendQuota", mock.Anything).Return(&ses.GetSendQuotaOutput{
				Max24HourSend:   aws.Float64(1000),
				SentLast24Hours: aws.Float64(test.sent),
			}, nil)

			status, err := checkLimit(client, 75, 90)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}

func TestCheckLimitError(t *testing.T) {
	client := new(mockSES)
	client.On("GetSendQuota", mock.Anything).Return(nil, errors.New("throttled"))

	status, err := checkLimit(client, 75, 90)
	assert.Error(t, err)
	assert.Equal(t, sensu.CheckStateUnknown, status)
}
