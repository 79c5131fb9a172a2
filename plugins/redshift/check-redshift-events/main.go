package main

/*
#
# check-redshift-events
#
# DESCRIPTION:
#   Checks Redshift cluster events of the window. ERROR events are critical,
#   events of the --warning-categories (pending maintenance by default) are
#   warnings.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-redshift-events --clusters warehouse
#   ./check-redshift-events --window 6h --warning-categories pending,management
#
*/

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/redshift"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

const severityError = "ERROR"

var (
	awsConfig         aws_session.Config
	clusters          string
	window            time.Duration
	warningCategories string
)

type redshiftClient interface {
	DescribeEventsPages(*redshift.DescribeEventsInput, func(*redshift.DescribeEventsOutput, bool) bool) error
}

type eventOptions struct {
	Clusters          []string
	Since             time.Time
	WarningCategories []string
}

func hasCategory(event *redshift.Event, categories []string) bool {
	for _, category := range aws.StringValueSlice(event.EventCategories) {
		for _, c := range categories {
			if strings.EqualFold(category, c) {
				return true
			}
		}
	}
	return false
}

func checkEvents(client redshiftClient, opts eventOptions) (int, error) {
	wanted := map[string]bool{}
	for _, c := range opts.Clusters {
		wanted[c] = true
	}

	critical := map[string][]string{}
	warning := map[string][]string{}
	err := client.DescribeEventsPages(&redshift.DescribeEventsInput{
		SourceType: aws.String(redshift.SourceTypeCluster),
		StartTime:  aws.Time(opts.Since),
	}, func(page *redshift.DescribeEventsOutput, lastPage bool) bool {
		for _, event := range page.Events {
			source := aws.StringValue(event.SourceIdentifier)
			if len(wanted) > 0 && !wanted[source] {
				continue
			}
			switch {
			case aws.StringValue(event.Severity) == severityError:
				critical[source] = append(critical[source], aws.StringValue(event.Message))
			case hasCategory(event, opts.WarningCategories):
				warning[source] = append(warning[source], aws.StringValue(event.Message))
			}
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe events")
	}

	switch {
	case len(critical) > 0:
		return utils.Critical("clusters w/ error events: %s", summarize(critical)), nil
	case len(warning) > 0:
		return utils.Warning("clusters w/ events: %s", summarize(warning)), nil
	}
	return utils.Ok("no cluster events since %s", opts.Since.UTC().Format(time.RFC3339)), nil
}

func summarize(events map[string][]string) string {
	sources := make([]string, 0, len(events))
	for source := range events {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s: %s", source, strings.Join(events[source], "; ")))
	}
	return strings.Join(parts, ", ")
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
	utils.Exit(checkEvents(redshift.New(sess), eventOptions{
		Clusters:          utils.SplitList(clusters),
		Since:             time.Now().Add(-window),
		WarningCategories: utils.SplitList(warningCategories),
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-redshift-events",
		Short: "Checks Redshift clusters for error and maintenance events",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&clusters, "clusters", "c", "", "Comma separated cluster identifiers, all clusters when empty")
	cmd.Flags().DurationVar(&window, "window", time.Hour, "Look at events of this window")
	cmd.Flags().StringVar(&warningCategories, "warning-categories", "pending", "Comma separated event categories reported as warnings")

	return cmd
}
