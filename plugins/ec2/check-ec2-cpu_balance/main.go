package main

/*
#
# check-ec2-cpu_balance
#
# DESCRIPTION:
#   This plugin retrieves the CPU credit balance of all running burstable
#   (t2, t3, t3a, t4g) instances and alerts when a balance drops below the thresholds.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ec2-cpu_balance -c 20 -w 40
#   ./check-ec2-cpu_balance -c 20 -w 40 --tag Name
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig         aws_session.Config
	criticalThreshold float64
	warningThreshold  float64
	tagName           string
)

var burstableFamilies = []string{"t2.", "t3.", "t3a.", "t4g."}

func burstable(instanceType string) bool {
	for _, family := range burstableFamilies {
		if strings.HasPrefix(instanceType, family) {
			return true
		}
	}
	return false
}

func checkCPUBalance(ec2Client ec2iface.EC2API, cwClient cloudwatchiface.CloudWatchAPI, warning, critical float64, tag string) (int, error) {
	instances, err := utils.GetInstances(ec2Client, []*ec2.Filter{{
		Name:   aws.String("instance-state-name"),
		Values: aws.StringSlice([]string{ec2.InstanceStateNameRunning}),
	}})
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	status := sensu.CheckStateOK
	var messages []string
	for _, instance := range instances {
		awsInstance := models.NewAwsInstance(instance)
		if !burstable(awsInstance.Type) {
			continue
		}
		request := cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
			Namespace:  "AWS/EC2",
			Dimensions: []*cloudwatch.Dimension{{Name: aws.String("InstanceId"), Value: aws.String(awsInstance.Id)}},
			Period:     60,
			Statistic:  cloudwatch.StatisticAverage,
		}, "CPUCreditBalance")
		dp, ok, err := cloudwatch_common.LatestValue(cwClient, request)
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		if !ok {
			continue
		}

		instanceStatus := utils.Below(dp.Value, warning, critical)
		if instanceStatus == sensu.CheckStateOK {
			continue
		}
		status = utils.Worst(status, instanceStatus)
		label := awsInstance.Id
		if value, found := awsInstance.Tag(tag); tag != "" && found {
			label = fmt.Sprintf("%s (%s)", awsInstance.Id, value)
		}
		messages = append(messages, fmt.Sprintf("%s CPU credit balance is %.2f", label, dp.Value))
	}

	if status == sensu.CheckStateOK {
		return utils.Ok("all burstable instances are above the CPU credit thresholds"), nil
	}
	return utils.Status(status, "%s", strings.Join(messages, ", ")), nil
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
	utils.Exit(checkCPUBalance(ec2.New(sess), cloudwatch.New(sess), warningThreshold, criticalThreshold, tagName))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ec2-cpu_balance",
		Short: "Checks the CPU credit balance of burstable EC2 instances",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().Float64VarP(&criticalThreshold, "critical", "c", 0, "Trigger a critical when CPU balance is below VALUE")
	cmd.Flags().Float64VarP(&warningThreshold, "warning", "w", 0, "Trigger a warning when CPU balance is below VALUE")
	cmd.Flags().StringVarP(&tagName, "tag", "t", "", "Add the value of this instance tag to the output")

	_ = cmd.MarkFlagRequired("critical")
	return cmd
}
