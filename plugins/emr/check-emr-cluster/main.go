package main

/*
#
# check-emr-cluster
#
# DESCRIPTION:
#   Checks that an EMR cluster with the given name exists in one of the
#   given states.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-emr-cluster --cluster-name etl
#   ./check-emr-cluster --cluster-name etl --states WAITING --warn-only
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/emr"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var activeStates = []string{
	emr.ClusterStateStarting,
	emr.ClusterStateBootstrapping,
	emr.ClusterStateRunning,
	emr.ClusterStateWaiting,
}

var (
	awsConfig   aws_session.Config
	clusterName string
	states      string
	warnOnly    bool
)

type emrClient interface {
	ListClustersPages(*emr.ListClustersInput, func(*emr.ListClustersOutput, bool) bool) error
}

func checkCluster(client emrClient, name string, states []string, warnOnly bool) (int, error) {
	var found []string
	err := client.ListClustersPages(&emr.ListClustersInput{ClusterStates: aws.StringSlice(states)}, func(page *emr.ListClustersOutput, lastPage bool) bool {
		for _, cluster := range page.Clusters {
			if aws.StringValue(cluster.Name) != name {
				continue
			}
			state := ""
			if cluster.Status != nil {
				state = aws.StringValue(cluster.Status.State)
			}
			found = append(found, fmt.Sprintf("%s %s", aws.StringValue(cluster.Id), state))
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "list clusters")
	}

	if len(found) == 0 {
		status := sensu.CheckStateCritical
		if warnOnly {
			status = sensu.CheckStateWarning
		}
		return utils.Status(status, "no cluster named %s in state %s", name, strings.Join(states, "|")), nil
	}
	return utils.Ok("cluster %s found: %s", name, strings.Join(found, ", ")), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	stateList := utils.SplitList(strings.ToUpper(states))
	for _, state := range stateList {
		if !contains(emr.ClusterState_Values(), state) {
			return fmt.Errorf("invalid cluster state %q", state)
		}
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkCluster(emr.New(sess), clusterName, stateList, warnOnly))
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-emr-cluster",
		Short: "Checks that an EMR cluster exists in the expected states",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&clusterName, "cluster-name", "n", "", "Name of the EMR cluster")
	cmd.Flags().StringVarP(&states, "states", "s", strings.Join(activeStates, ","), "Comma separated cluster states counted as present")
	cmd.Flags().BoolVar(&warnOnly, "warn-only", false, "Warn instead of critical when the cluster is missing")
	_ = cmd.MarkFlagRequired("cluster-name")

	return cmd
}
