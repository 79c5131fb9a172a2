package main

/*
#
# check-elasticache-failover
#
# DESCRIPTION:
#   Checks that the primary of a Redis replication group node group is the
#   expected cache cluster, and optionally that it runs in the expected
#   availability zone. A failover moves the primary and trips this check.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-elasticache-failover --replication-group sessions --primary-node sessions-001
#   ./check-elasticache-failover --replication-group sessions --primary-node sessions-001 --primary-zone us-east-1a
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/elasticache"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig        aws_session.Config
	replicationGroup string
	nodeGroup        string
	primaryNode      string
	primaryZone      string
)

type elasticacheClient interface {
	DescribeReplicationGroups(*elasticache.DescribeReplicationGroupsInput) (*elasticache.DescribeReplicationGroupsOutput, error)
}

type failoverOptions struct {
	ReplicationGroup string
	NodeGroup        string
	PrimaryNode      string
	PrimaryZone      string
}

func primaryMember(group *elasticache.ReplicationGroup, nodeGroupID string) (*elasticache.NodeGroupMember, bool) {
	for _, ng := range group.NodeGroups {
		if aws.StringValue(ng.NodeGroupId) != nodeGroupID {
			continue
		}
		for _, member := range ng.NodeGroupMembers {
			if aws.StringValue(member.CurrentRole) == "primary" {
				return member, true
			}
		}
	}
	return nil, false
}

func checkFailover(client elasticacheClient, opts failoverOptions) (int, error) {
	out, err := client.DescribeReplicationGroups(&elasticache.DescribeReplicationGroupsInput{
		ReplicationGroupId: aws.String(opts.ReplicationGroup),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == elasticache.ErrCodeReplicationGroupNotFoundFault {
			return utils.Critical("replication group %s not found", opts.ReplicationGroup), nil
		}
		return sensu.CheckStateUnknown, errors.Wrapf(err, "describe replication group %s", opts.ReplicationGroup)
	}
	if len(out.ReplicationGroups) == 0 {
		return utils.Critical("replication group %s not found", opts.ReplicationGroup), nil
	}

	primary, ok := primaryMember(out.ReplicationGroups[0], opts.NodeGroup)
	if !ok {
		return utils.Critical("node group %s of %s has no primary", opts.NodeGroup, opts.ReplicationGroup), nil
	}
	node := aws.StringValue(primary.CacheClusterId)
	zone := aws.StringValue(primary.PreferredAvailabilityZone)
	if node != opts.PrimaryNode {
		return utils.Critical("primary of %s/%s is %s in %s, expected %s", opts.ReplicationGroup, opts.NodeGroup, node, zone, opts.PrimaryNode), nil
	}
	if opts.PrimaryZone != "" && zone != opts.PrimaryZone {
		return utils.Critical("primary of %s/%s is in %s, expected %s", opts.ReplicationGroup, opts.NodeGroup, zone, opts.PrimaryZone), nil
	}
	return utils.Ok("primary of %s/%s is %s in %s", opts.ReplicationGroup, opts.NodeGroup, node, zone), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkFailover(elasticache.New(sess), failoverOptions{
		ReplicationGroup: replicationGroup,
		NodeGroup:        nodeGroup,
		PrimaryNode:      primaryNode,
		PrimaryZone:      primaryZone,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elasticache-failover",
		Short: "Checks that an ElastiCache replication group did not fail over",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&replicationGroup, "replication-group", "g", "", "Replication group id")
	cmd.Flags().StringVarP(&nodeGroup, "node-group", "n", "0001", "Node group id within the replication group")
	cmd.Flags().StringVarP(&primaryNode, "primary-node", "p", "", "Cache cluster id expected to be primary")
	cmd.Flags().StringVarP(&primaryZone, "primary-zone", "z", "", "Availability zone expected to host the primary")
	_ = cmd.MarkFlagRequired("replication-group")
	_ = cmd.MarkFlagRequired("primary-node")

	return cmd
}
