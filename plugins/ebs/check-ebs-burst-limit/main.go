package main

/*
#
# check-ebs-burst-limit
#
# DESCRIPTION:
#   Checks the BurstBalance of attached EBS volumes. With --check-self only the
#   volumes attached to the instance running the check are looked at.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ebs-burst-limit -w 50 -c 10
#   ./check-ebs-burst-limit --check-self -w 50 -c 10
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig         aws_session.Config
	criticalThreshold float64
	warningThreshold  float64
	checkSelf         bool
)

type ec2Client interface {
	DescribeVolumesPages(*ec2.DescribeVolumesInput, func(*ec2.DescribeVolumesOutput, bool) bool) error
}

// volumeFilters selects attached volumes, or the volumes of instanceID when set.
func volumeFilters(instanceID string) []*ec2.Filter {
	if instanceID != "" {
		return []*ec2.Filter{{Name: aws.String("attachment.instance-id"), Values: aws.StringSlice([]string{instanceID})}}
	}
	return []*ec2.Filter{{Name: aws.String("attachment.status"), Values: aws.StringSlice([]string{ec2.AttachmentStatusAttached})}}
}

func checkBurstLimit(ec2Client ec2Client, cwClient cloudwatchiface.CloudWatchAPI, instanceID string, warning, critical float64) (int, error) {
	var volumes []*ec2.Volume
	err := ec2Client.DescribeVolumesPages(&ec2.DescribeVolumesInput{Filters: volumeFilters(instanceID)}, func(page *ec2.DescribeVolumesOutput, lastPage bool) bool {
		volumes = append(volumes, page.Volumes...)
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe volumes")
	}

	status := sensu.CheckStateOK
	var low []string
	for _, volume := range volumes {
		volumeID := aws.StringValue(volume.VolumeId)
		dp, ok, err := cloudwatch_common.LatestValue(cwClient, cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
			Namespace:  "AWS/EBS",
			Dimensions: []*cloudwatch.Dimension{{Name: aws.String("VolumeId"), Value: aws.String(volumeID)}},
			Period:     120,
			Statistic:  cloudwatch.StatisticAverage,
		}, "BurstBalance"))
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		if !ok {
			continue
		}
		volumeStatus := utils.Below(dp.Value, warning, critical)
		if volumeStatus == sensu.CheckStateOK {
			continue
		}
		status = utils.Worst(status, volumeStatus)
		low = append(low, fmt.Sprintf("%s:%.1f", volumeID, dp.Value))
	}

	switch status {
	case sensu.CheckStateCritical:
		return utils.Critical("volume(s) have exceeded critical threshold: %s", strings.Join(low, ", ")), nil
	case sensu.CheckStateWarning:
		return utils.Warning("volume(s) have exceeded warning threshold: %s", strings.Join(low, ", ")), nil
	}
	return utils.Ok("no volume(s) exceed thresholds"), nil
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
	var instanceID string
	if checkSelf {
		if instanceID, err = aws_session.MyInstanceID(sess); err != nil {
			return err
		}
	}
	utils.Exit(checkBurstLimit(ec2.New(sess), cloudwatch.New(sess), instanceID, warningThreshold, criticalThreshold))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ebs-burst-limit",
		Short: "Checks the burst balance of EBS volumes",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().Float64VarP(&criticalThreshold, "critical", "c", 0, "Trigger a critical when the burst balance is under VALUE as a percent")
	cmd.Flags().Float64VarP(&warningThreshold, "warning", "w", 0, "Trigger a warning when the burst balance is under VALUE as a percent")
	cmd.Flags().BoolVarP(&checkSelf, "check-self", "s", false, "Only check the volumes attached to the current instance")

	_ = cmd.MarkFlagRequired("critical")
	return cmd
}
