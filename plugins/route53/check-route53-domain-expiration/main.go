package main

/*
#
# check-route53-domain-expiration
#
# DESCRIPTION:
#   Checks the days left before domains registered with Route53 expire.
#   Route53 domains are only served from us-east-1.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-route53-domain-expiration --warning 30 --critical 7
#   ./check-route53-domain-expiration --domains example.com,example.org
#
*/

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/route53domains"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

const domainsRegion = "us-east-1"

var (
	awsConfig aws_session.Config
	domains   string
	warning   float64
	critical  float64
)

type domainsClient interface {
	ListDomainsPages(*route53domains.ListDomainsInput, func(*route53domains.ListDomainsOutput, bool) bool) error
}

func daysLeft(expiry, now time.Time) float64 {
	return math.Floor(expiry.Sub(now).Hours() / 24)
}

func checkExpiration(client domainsClient, only []string, now time.Time, warning, critical float64) (int, error) {
	wanted := map[string]bool{}
	for _, name := range only {
		wanted[strings.ToLower(name)] = true
	}

	status := sensu.CheckStateOK
	checked := 0
	var expiring []string
	err := client.ListDomainsPages(&route53domains.ListDomainsInput{}, func(page *route53domains.ListDomainsOutput, lastPage bool) bool {
		for _, domain := range page.Domains {
			name := aws.StringValue(domain.DomainName)
			if len(wanted) > 0 && !wanted[strings.ToLower(name)] {
				continue
			}
			checked++
			days := daysLeft(aws.TimeValue(domain.Expiry), now)
			if domainStatus := utils.Below(days, warning, critical); domainStatus != sensu.CheckStateOK {
				status = utils.Worst(status, domainStatus)
				expiring = append(expiring, fmt.Sprintf("%s (%.0f days)", name, days))
			}
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "list domains")
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "domains expiring soon: %s", strings.Join(expiring, ", ")), nil
	}
	return utils.Ok("%d domain(s) expire in more than %g days", checked, warning), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if critical > warning {
		return fmt.Errorf("--critical must not exceed --warning")
	}
	awsConfig.Region = domainsRegion
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkExpiration(route53domains.New(sess), utils.SplitList(domains), time.Now(), warning, critical))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-route53-domain-expiration",
		Short: "Checks expiration of Route53 registered domains",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&domains, "domains", "d", "", "Comma separated domains, all registered domains when empty")
	cmd.Flags().Float64VarP(&warning, "warning", "w", 30, "Warn when a domain expires within this many days")
	cmd.Flags().Float64VarP(&critical, "critical", "c", 7, "Critical when a domain expires within this many days")

	return cmd
}
