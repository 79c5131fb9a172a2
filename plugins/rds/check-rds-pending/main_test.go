package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rds"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRds struct {
	mock.Mock
}

func (m *mockRds) DescribePendingMaintenanceActionsPages(input *rds.DescribePendingMaintenanceActionsInput, fn func(*rds.DescribePendingMaintenanceActionsOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*rds.DescribePendingMaintenanceActionsOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "my-db", resourceName("arn:aws:rds:us-east-1:123456789012:db:my-db"))
	assert.Equal(t, "not-an-arn", resourceName("not-an-arn"))
}

func TestCheckPending(t *testing.T) {
	var buf bytes.Buffer
	utils.Output = &buf
	client := new(mockRds)
	client.On("DescribePendingMaintenanceActionsPages", mock.Anything).Return(&rds.DescribePendingMaintenanceActionsOutput{
		PendingMaintenanceActions: []*rds.ResourcePendingMaintenanceActions{{
			ResourceIdentifier: aws.String("arn:aws:rds:us-east-1:123456789012:db:my-db"),
			PendingMaintenanceActionDetails: []*rds.PendingMaintenanceAction{
				{Action: aws.String("system-update")},
				{Action: aws.String("db-upgrade")},
			},
		}},
	}, nil)

	status, err := checkPending(client)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateCritical, status)
	assert.Equal(t, "CRITICAL: instances w/ pending maintenance required: my-db (system-update, db-upgrade)\n", buf.String())
}

func TestCheckPendingNone(t *testing.T) {
	var buf bytes.Buffer
	utils.Output = &buf
	client := new(mockRds)
	client.On("DescribePendingMaintenanceActionsPages", mock.Anything).Return(&rds.DescribePendingMaintenanceActionsOutput{}, nil)

	status, err := checkPending(client)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateOK, status)
	assert.Equal(t, "OK: no pending maintenance actions\n", buf.String())
}

func TestCheckPendingError(t *testing.T) {
	client := new(mockRds)
	client.On("DescribePendingMaintenanceActionsPages", mock.Anything).Return(nil, errors.New("throttled"))

	status, err := checkPending(client)
	assert.Error(t, err)
	assert.Equal(t, sensu.CheckStateUnknown, status)
}
