package main

/*
#
# check-emr-steps
#
# DESCRIPTION:
#   Counts the steps of an EMR cluster in the given states, by default
#   FAILED, created within the window.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-emr-steps --cluster-name etl
#   ./check-emr-steps --cluster-id j-2AXXXXXXGAPLF --step-states FAILED,CANCELLED --warning 1 --critical 3
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/emr"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig   aws_session.Config
	clusterName string
	clusterID   string
	stepStates  string
	window      time.Duration
	warning     float64
	critical    float64
)

type emrClient interface {
	ListClustersPages(*emr.ListClustersInput, func(*emr.ListClustersOutput, bool) bool) error
	ListStepsPages(*emr.ListStepsInput, func(*emr.ListStepsOutput, bool) bool) error
}

type stepOptions struct {
	ClusterName string
	ClusterID   string
	States      []string
	Since       time.Time
	Warning     float64
	Critical    float64
}

// resolveCluster finds the id of the active cluster named name.
func resolveCluster(client emrClient, name string) (string, error) {
	var id string
	err := client.ListClustersPages(&emr.ListClustersInput{
		ClusterStates: aws.StringSlice([]string{emr.ClusterStateRunning, emr.ClusterStateWaiting}),
	}, func(page *emr.ListClustersOutput, lastPage bool) bool {
		for _, cluster := range page.Clusters {
			if aws.StringValue(cluster.Name) == name {
				id = aws.StringValue(cluster.Id)
				return false
			}
		}
		return true
	})
	if err != nil {
		return "", errors.Wrap(err, "list clusters")
	}
	if id == "" {
		return "", errors.Errorf("no active cluster named %s", name)
	}
	return id, nil
}

func checkSteps(client emrClient, opts stepOptions) (int, error) {
	id := opts.ClusterID
	if id == "" {
		var err error
		if id, err = resolveCluster(client, opts.ClusterName); err != nil {
			return sensu.CheckStateUnknown, err
		}
	}

	var steps []string
	err := client.ListStepsPages(&emr.ListStepsInput{
		ClusterId:  aws.String(id),
		StepStates: aws.StringSlice(opts.States),
	}, func(page *emr.ListStepsOutput, lastPage bool) bool {
		for _, step := range page.Steps {
			if step.Status != nil && step.Status.Timeline != nil &&
				aws.TimeValue(step.Status.Timeline.CreationDateTime).Before(opts.Since) {
				continue
			}
			steps = append(steps, aws.StringValue(step.Name))
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrapf(err, "list steps of %s", id)
	}

	status := utils.Above(float64(len(steps)), opts.Warning, opts.Critical)
	if status != sensu.CheckStateOK {
		return utils.Status(status, "%d %s step(s) on %s: %s", len(steps), strings.Join(opts.States, "|"), id, strings.Join(steps, ", ")), nil
	}
	return utils.Ok("%d %s step(s) on %s", len(steps), strings.Join(opts.States, "|"), id), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if (clusterName == "") == (clusterID == "") {
		return fmt.Errorf("exactly one of --cluster-name or --cluster-id is required")
	}
	states := utils.SplitList(strings.ToUpper(stepStates))
	if len(states) == 0 {
		return fmt.Errorf("--step-states is required")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkSteps(emr.New(sess), stepOptions{
		ClusterName: clusterName,
		ClusterID:   clusterID,
		States:      states,
		Since:       time.Now().Add(-window),
		Warning:     warning,
		Critical:    critical,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-emr-steps",
		Short: "Checks for failed EMR steps",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&clusterName, "cluster-name", "n", "", "Name of an active EMR cluster")
	cmd.Flags().StringVarP(&clusterID, "cluster-id", "i", "", "Id of the EMR cluster")
	cmd.Flags().StringVarP(&stepStates, "step-states", "s", emr.StepStateFailed, "Comma separated step states to count")
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "Only count steps created within this window")
	cmd.Flags().Float64VarP(&warning, "warning", "w", 1, "Warn when this many steps are found")
	cmd.Flags().Float64VarP(&critical, "critical", "c", 1, "Critical when this many steps are found")

	return cmd
}
