package main

/*
#
# check-configservice-rules
#
# DESCRIPTION:
#   Checks AWS Config rules for NON_COMPLIANT resources.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-configservice-rules
#   ./check-configservice-rules --config-rules s3-bucket-ssl-requests-only --warn-only
#
*/

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/configservice"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig   aws_session.Config
	configRules string
	warnOnly    bool
)

type configClient interface {
	DescribeComplianceByConfigRule(*configservice.DescribeComplianceByConfigRuleInput) (*configservice.DescribeComplianceByConfigRuleOutput, error)
}

func nonCompliantRules(client configClient, rules []string) ([]string, error) {
	input := &configservice.DescribeComplianceByConfigRuleInput{
		ComplianceTypes: aws.StringSlice([]string{configservice.ComplianceTypeNonCompliant}),
	}
	if len(rules) > 0 {
		input.ConfigRuleNames = aws.StringSlice(rules)
	}

	var names []string
	for {
		out, err := client.DescribeComplianceByConfigRule(input)
		if err != nil {
			return nil, errors.Wrap(err, "describe compliance by config rule")
		}
		for _, rule := range out.ComplianceByConfigRules {
			names = append(names, aws.StringValue(rule.ConfigRuleName))
		}
		if aws.StringValue(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	sort.Strings(names)
	return names, nil
}

func checkRules(client configClient, rules []string, warnOnly bool) (int, error) {
	names, err := nonCompliantRules(client, rules)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}
	if len(names) == 0 {
		return utils.Ok("no non compliant config rules"), nil
	}
	status := sensu.CheckStateCritical
	if warnOnly {
		status = sensu.CheckStateWarning
	}
	return utils.Status(status, "non compliant config rules: %s", strings.Join(names, ", ")), nil
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
	utils.Exit(checkRules(configservice.New(sess), utils.SplitList(configRules), warnOnly))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-configservice-rules",
		Short: "Checks AWS Config rules for non compliant resources",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&configRules, "config-rules", "c", "", "Comma separated rule names, all rules when empty")
	cmd.Flags().BoolVar(&warnOnly, "warn-only", false, "Warn instead of critical on non compliant rules")

	return cmd
}
