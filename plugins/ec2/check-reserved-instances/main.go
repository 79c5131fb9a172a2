package main

/*
#
# check-reserved-instances
#
# DESCRIPTION:
#   Alerts on active EC2 reservations that expire soon.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-reserved-instances --warning=30 --critical=7
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig    aws_session.Config
	warningDays  int
	criticalDays int
)

type ec2Client interface {
	DescribeReservedInstances(*ec2.DescribeReservedInstancesInput) (*ec2.DescribeReservedInstancesOutput, error)
}

func checkReservations(client ec2Client, now time.Time, warningDays, criticalDays int) (int, error) {
	output, err := client.DescribeReservedInstances(&ec2.DescribeReservedInstancesInput{
		Filters: []*ec2.Filter{{Name: aws.String("state"), Values: aws.StringSlice([]string{ec2.ReservedInstanceStateActive})}},
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe reserved instances")
	}

	status := sensu.CheckStateOK
	var expiring []string
	for _, reservation := range output.ReservedInstances {
		days := aws.TimeValue(reservation.End).Sub(now).Hours() / 24
		reservationStatus := utils.Below(days, float64(warningDays), float64(criticalDays))
		if reservationStatus == sensu.CheckStateOK {
			continue
		}
		status = utils.Worst(status, reservationStatus)
		expiring = append(expiring, fmt.Sprintf("%s (%d x %s) expires in %.0f days",
			aws.StringValue(reservation.ReservedInstancesId),
			aws.Int64Value(reservation.InstanceCount),
			aws.StringValue(reservation.InstanceType),
			days))
	}

	if status == sensu.CheckStateOK {
		return utils.Ok("%d active reservations, none expire within %d days", len(output.ReservedInstances), warningDays), nil
	}
	return utils.Status(status, "%s", strings.Join(expiring, ", ")), nil
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
	utils.Exit(checkReservations(ec2.New(sess), time.Now(), warningDays, criticalDays))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-reserved-instances",
		Short: "Checks for EC2 reservations about to expire",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().IntVarP(&warningDays, "warning", "w", 30, "Warn when a reservation expires within this many days")
	cmd.Flags().IntVarP(&criticalDays, "critical", "c", 7, "Critical when a reservation expires within this many days")

	return cmd
}
