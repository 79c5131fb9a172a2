package main

/*
#
# check-ecs-service-health
#
# DESCRIPTION:
#   Checks the running task count of ECS services against their desired
#   count. A service without running tasks is critical, one running less
#   than desired is a warning.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ecs-service-health --cluster prod
#   ./check-ecs-service-health --cluster prod --services api,worker --primary-status
#   ./check-ecs-service-health --cluster prod --warning-under 75 --critical-under 50
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

// DescribeServices accepts at most this many services per call.
const describeBatch = 10

var (
	awsConfig     aws_session.Config
	cluster       string
	services      string
	primaryStatus bool
	warningUnder  float64
	criticalUnder float64
)

type ecsClient interface {
	ListServicesPages(*ecs.ListServicesInput, func(*ecs.ListServicesOutput, bool) bool) error
	DescribeServices(*ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error)
}

type healthOptions struct {
	Cluster       string
	Services      []string
	PrimaryStatus bool
	WarningUnder  float64
	CriticalUnder float64
}

func listServices(client ecsClient, cluster string) ([]string, error) {
	var arns []string
	err := client.ListServicesPages(&ecs.ListServicesInput{Cluster: aws.String(cluster)}, func(page *ecs.ListServicesOutput, lastPage bool) bool {
		arns = append(arns, aws.StringValueSlice(page.ServiceArns)...)
		return true
	})
	return arns, errors.Wrapf(err, "list services of %s", cluster)
}

func describeServices(client ecsClient, cluster string, names []string) ([]*ecs.Service, error) {
	var described []*ecs.Service
	for start := 0; start < len(names); start += describeBatch {
		end := start + describeBatch
		if end > len(names) {
			end = len(names)
		}
		out, err := client.DescribeServices(&ecs.DescribeServicesInput{
			Cluster:  aws.String(cluster),
			Services: aws.StringSlice(names[start:end]),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "describe services of %s", cluster)
		}
		if len(out.Failures) > 0 {
			failure := out.Failures[0]
			return nil, errors.Errorf("service %s: %s", aws.StringValue(failure.Arn), aws.StringValue(failure.Reason))
		}
		described = append(described, out.Services...)
	}
	return described, nil
}

// runningCount is the running task count of service, restricted to the
// PRIMARY deployment when primary is set.
func runningCount(service *ecs.Service, primary bool) int64 {
	if !primary {
		return aws.Int64Value(service.RunningCount)
	}
	for _, deployment := range service.Deployments {
		if aws.StringValue(deployment.Status) == "PRIMARY" {
			return aws.Int64Value(deployment.RunningCount)
		}
	}
	return 0
}

func checkServiceHealth(client ecsClient, opts healthOptions) (int, error) {
	names := opts.Services
	if len(names) == 0 {
		var err error
		if names, err = listServices(client, opts.Cluster); err != nil {
			return sensu.CheckStateUnknown, err
		}
	}
	if len(names) == 0 {
		return utils.Ok("no services in cluster %s", opts.Cluster), nil
	}

	described, err := describeServices(client, opts.Cluster, names)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	status := sensu.CheckStateOK
	var problems []string
	for _, service := range described {
		desired := aws.Int64Value(service.DesiredCount)
		if desired == 0 {
			continue
		}
		running := runningCount(service, opts.PrimaryStatus)
		percent := float64(running) / float64(desired) * 100

		serviceStatus := sensu.CheckStateOK
		switch {
		case running == 0 || percent < opts.CriticalUnder:
			serviceStatus = sensu.CheckStateCritical
		case percent < opts.WarningUnder:
			serviceStatus = sensu.CheckStateWarning
		}
		if serviceStatus != sensu.CheckStateOK {
			status = utils.Worst(status, serviceStatus)
			problems = append(problems, fmt.Sprintf("%s (%d/%d)", aws.StringValue(service.ServiceName), running, desired))
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "services below desired count: %s", strings.Join(problems, ", ")), nil
	}
	return utils.Ok("%d service(s) of %s running their desired count", len(described), opts.Cluster), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if criticalUnder > warningUnder {
		return fmt.Errorf("--critical-under must not exceed --warning-under")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkServiceHealth(ecs.New(sess), healthOptions{
		Cluster:       cluster,
		Services:      utils.SplitList(services),
		PrimaryStatus: primaryStatus,
		WarningUnder:  warningUnder,
		CriticalUnder: criticalUnder,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ecs-service-health",
		Short: "Checks running task counts of ECS services",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&cluster, "cluster", "c", "default", "ECS cluster name or ARN")
	cmd.Flags().StringVarP(&services, "services", "s", "", "Comma separated services, all services of the cluster when empty")
	cmd.Flags().BoolVarP(&primaryStatus, "primary-status", "p", false, "Only count tasks of the PRIMARY deployment")
	cmd.Flags().Float64Var(&warningUnder, "warning-under", 100, "Warn when running tasks drop below this percentage of desired")
	cmd.Flags().Float64Var(&criticalUnder, "critical-under", 0, "Critical when running tasks drop below this percentage of desired")

	return cmd
}
