package main

/*
#
# check-trustedadvisor-service-limits
#
# DESCRIPTION:
#   Checks the Trusted Advisor service limit checks for resources close to
#   or over their limit. Requires a Business or Enterprise support plan.
#   The support API is only served from us-east-1.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-trustedadvisor-service-limits
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/support"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	supportRegion        = "us-east-1"
	language             = "en"
	serviceLimitCategory = "service_limits"
)

var awsConfig aws_session.Config

type supportClient interface {
	DescribeTrustedAdvisorChecks(*support.DescribeTrustedAdvisorChecksInput) (*support.DescribeTrustedAdvisorChecksOutput, error)
	DescribeTrustedAdvisorCheckResult(*support.DescribeTrustedAdvisorCheckResultInput) (*support.DescribeTrustedAdvisorCheckResultOutput, error)
}

// describeResource renders the service limit metadata columns:
// region, service, limit name, limit amount, current usage, status.
func describeResource(resource *support.TrustedAdvisorResourceDetail) string {
	m := aws.StringValueSlice(resource.Metadata)
	if len(m) < 5 {
		return strings.Join(m, " ")
	}
	return fmt.Sprintf("%s %s %s (%s/%s)", m[0], m[1], m[2], m[4], m[3])
}

func checkServiceLimits(client supportClient) (int, error) {
	checks, err := client.DescribeTrustedAdvisorChecks(&support.DescribeTrustedAdvisorChecksInput{Language: aws.String(language)})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe trusted advisor checks")
	}

	status := sensu.CheckStateOK
	checked := 0
	var flagged []string
	for _, check := range checks.Checks {
		if aws.StringValue(check.Category) != serviceLimitCategory {
			continue
		}
		checked++
		out, err := client.DescribeTrustedAdvisorCheckResult(&support.DescribeTrustedAdvisorCheckResultInput{
			CheckId:  check.Id,
			Language: aws.String(language),
		})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "describe result of %s", aws.StringValue(check.Name))
		}
		if out.Result == nil {
			continue
		}
		for _, resource := range out.Result.FlaggedResources {
			if aws.BoolValue(resource.IsSuppressed) {
				continue
			}
			switch aws.StringValue(resource.Status) {
			case "error":
				status = utils.Worst(status, sensu.CheckStateCritical)
			case "warning":
				status = utils.Worst(status, sensu.CheckStateWarning)
			default:
				continue
			}
			flagged = append(flagged, describeResource(resource))
		}
	}
	logger.Get().Debug("service limit checks", zap.Int("checks", checked), zap.Int("flagged", len(flagged)))

	if status != sensu.CheckStateOK {
		return utils.Status(status, "service limits reached: %s", strings.Join(flagged, ", ")), nil
	}
	return utils.Ok("%d service limit check(s) within limits", checked), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	awsConfig.Region = supportRegion
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkServiceLimits(support.New(sess)))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-trustedadvisor-service-limits",
		Short: "Checks Trusted Advisor service limits",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)

	return cmd
}
