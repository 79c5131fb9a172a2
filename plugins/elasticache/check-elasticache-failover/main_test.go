package main

import (
	"bytes"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/elasticache"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockElasticache struct {
	mock.Mock
}

func (m *mockElasticache) DescribeReplicationGroups(input *elasticache.DescribeReplicationGroupsInput) (*elasticache.DescribeReplicationGroupsOutput, error) {
	args := m.Called(aws.StringValue(input.ReplicationGroupId))
	out, _ := args.Get(0).(*elasticache.DescribeReplicationGroupsOutput)
	return out, args.Error(1)
}

func member(node, zone, role string) *elasticache.NodeGroupMember {
	return &elasticache.NodeGroupMember{
		CacheClusterId:            aws.String(node),
		PreferredAvailabilityZone: aws.String(zone),
		CurrentRole:               aws.String(role),
	}
}

func TestCheckFailover(t *testing.T) {
	client := new(mockElasticache)
	client.On("DescribeReplicationGroups", "sessions").Return(&elasticache.DescribeReplicationGroupsOutput{ReplicationGroups: []*elasticache.ReplicationGroup{{
		NodeGroups: []*elasticache.NodeGroup{{
			NodeGroupId: aws.String("0001"),
			NodeGroupMembers: []*elasticache.NodeGroupMember{
				member("sessions-001", "us-east-1a", "primary"),
				member("sessions-002", "us-east-1b", "replica"),
			},
		}},
	}}}, nil)
	client.On("DescribeReplicationGroups", "gone").Return(nil, awserr.New(elasticache.ErrCodeReplicationGroupNotFoundFault, "not found", nil))

	tests := []struct {
		name    string
		opts    failoverOptions
		status  int
		message string
	}{
		{
			name:    "expected primary",
			opts:    failoverOptions{ReplicationGroup: "sessions", NodeGroup: "0001", PrimaryNode: "sessions-001", PrimaryZone: "us-east-1a"},
			status:  sensu.CheckStateOK,
			message: "OK: primary of sessions/0001 is sessions-001 in us-east-1a\n",
		},
		{
			name:    "failed over",
			opts:    failoverOptions{ReplicationGroup: "sessions", NodeGroup: "0001", PrimaryNode: "sessions-002"},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: primary of sessions/0001 is sessions-001 in us-east-1a, expected sessions-002\n",
		},
		{
			name:    "wrong zone",
			opts:    failoverOptions{ReplicationGroup: "sessions", NodeGroup: "0001", PrimaryNode: "sessions-001", PrimaryZone: "us-east-1b"},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: primary of sessions/0001 is in us-east-1a, expected us-east-1b\n",
		},
		{
			name:    "unknown node group",
			opts:    failoverOptions{ReplicationGroup: "sessions", NodeGroup: "0002", PrimaryNode: "sessions-001"},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: node group 0002 of sessions has no primary\n",
		},
		{
			name:    "missing group",
			opts:    failoverOptions{ReplicationGroup: "gone", NodeGroup: "0001", PrimaryNode: "gone-001"},
			status:  sensu.CheckStateCritical,
			message: "CRITICAL: replication group gone not found\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			status, err := checkFailover(client, test.opts)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
