package main

/*
#
# check-ses-limit
#
# DESCRIPTION:
#   Checks the share of the SES 24 hour sending quota already used.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ses-limit --warning 75 --critical 90
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	warning   float64
	critical  float64
)

type sesClient interface {
	GetSendQuota(*ses.GetSendQuotaInput) (*ses.GetSendQuotaOutput, error)
}

func checkLimit(client sesClient, warning, critical float64) (int, error) {
	quota, err := client.GetSendQuota(&ses.GetSendQuotaInput{})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "get send quota")
	}
	max := aws.Float64Value(quota.Max24HourSend)
	sent := aws.Float64Value(quota.SentLast24Hours)
	if max <= 0 {
		return utils.Unknown("sending quota is %g", max), nil
	}

	used := sent / max * 100
	status := utils.Above(used, warning, critical)
	return utils.Status(status, "%.1f%% of sending quota used (%g/%g)", used, sent, max), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if warning > critical {
		return fmt.Errorf("--warning must not exceed --critical")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkLimit(ses.New(sess), warning, critical))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ses-limit",
		Short: "Checks SES sending quota usage",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().Float64VarP(&warning, "warning", "w", 75, "Warn when this percentage of the quota is used")
	cmd.Flags().Float64VarP(&critical, "critical", "c", 90, "Critical when this percentage of the quota is used")

	return cmd
}
