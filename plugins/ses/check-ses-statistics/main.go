package main

/*
#
# check-ses-statistics
#
# DESCRIPTION:
#   Checks the bounces, complaints and rejects of the most recent SES send
#   statistics interval. Each interval covers 15 minutes.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ses-statistics --warning-bounces 5 --critical-bounces 20
#   ./check-ses-statistics --critical-complaints 1 --critical-rejects 1
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig  aws_session.Config
	thresholds = map[string]*counterLimits{
		"bounces":    {Warning: -1, Critical: -1},
		"complaints": {Warning: -1, Critical: -1},
		"rejects":    {Warning: -1, Critical: -1},
	}
)

type sesClient interface {
	GetSendStatistics(*ses.GetSendStatisticsInput) (*ses.GetSendStatisticsOutput, error)
}

// counterLimits are count thresholds; negative disables.
type counterLimits struct {
	Warning  int64
	Critical int64
}

func (l counterLimits) grade(value int64) int {
	switch {
	case l.Critical >= 0 && value >= l.Critical:
		return sensu.CheckStateCritical
	case l.Warning >= 0 && value >= l.Warning:
		return sensu.CheckStateWarning
	}
	return sensu.CheckStateOK
}

func counters(dp *ses.SendDataPoint) map[string]int64 {
	return map[string]int64{
		"bounces":    aws.Int64Value(dp.Bounces),
		"complaints": aws.Int64Value(dp.Complaints),
		"rejects":    aws.Int64Value(dp.Rejects),
	}
}

func checkStatistics(client sesClient, limits map[string]*counterLimits) (int, error) {
	out, err := client.GetSendStatistics(&ses.GetSendStatisticsInput{})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "get send statistics")
	}
	if len(out.SendDataPoints) == 0 {
		return utils.Ok("no send statistics in the last two weeks"), nil
	}

	latest := out.SendDataPoints[0]
	for _, dp := range out.SendDataPoints[1:] {
		if aws.TimeValue(dp.Timestamp).After(aws.TimeValue(latest.Timestamp)) {
			latest = dp
		}
	}

	status := sensu.CheckStateOK
	values := counters(latest)
	var parts []string
	for _, name := range []string{"bounces", "complaints", "rejects"} {
		parts = append(parts, fmt.Sprintf("%s %d", name, values[name]))
		if limit, ok := limits[name]; ok {
			status = utils.Worst(status, limit.grade(values[name]))
		}
	}
	return utils.Status(status, "%d delivery attempts, %s", aws.Int64Value(latest.DeliveryAttempts), strings.Join(parts, ", ")), nil
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
	utils.Exit(checkStatistics(ses.New(sess), thresholds))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ses-statistics",
		Short: "Checks SES bounces, complaints and rejects",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	for _, name := range []string{"bounces", "complaints", "rejects"} {
		limit := thresholds[name]
		cmd.Flags().Int64Var(&limit.Warning, "warning-"+name, -1, "Warn when "+name+" reach this count, negative disables")
		cmd.Flags().Int64Var(&limit.Critical, "critical-"+name, -1, "Critical when "+name+" reach this count, negative disables")
	}

	return cmd
}
