package main

/*
#
# check-rds-events
#
# DESCRIPTION:
#   Checks RDS instances for disruptive events. Events that are part of
#   routine operation, such as backups, are ignored.
#
#   More info on RDS events:
#   http://docs.aws.amazon.com/AmazonRDS/latest/UserGuide/USER_Events.html
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   Checks a specific RDS instance for critical events
#   ./check-rds-events -r us-east-1 --db-instance-id my-db
#
#   Checks all RDS instances of the region over the last 6 hours
#   ./check-rds-events -r us-east-1 --window 6h
#
*/

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rds"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

// routineEvents match messages of non-disruptive events.
var routineEvents = []*regexp.Regexp{
	regexp.MustCompile(`Backing up DB instance`),
	regexp.MustCompile(`Finished DB Instance backup`),
	regexp.MustCompile(`Restored from snapshot`),
	regexp.MustCompile(`DB instance created`),
	regexp.MustCompile(`Replication for the Read Replica resumed`),
	regexp.MustCompile(`Automated backup`),
}

var (
	awsConfig    aws_session.Config
	dbInstanceID string
	window       time.Duration
)

type rdsClient interface {
	DescribeEventsPages(*rds.DescribeEventsInput, func(*rds.DescribeEventsOutput, bool) bool) error
}

func routine(message string) bool {
	for _, re := range routineEvents {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

func checkEvents(client rdsClient, instanceID string, start time.Time) (int, error) {
	input := &rds.DescribeEventsInput{
		SourceType: aws.String(rds.SourceTypeDbInstance),
		StartTime:  aws.Time(start),
	}
	if instanceID != "" {
		input.SourceIdentifier = aws.String(instanceID)
	}

	events := map[string][]string{}
	err := client.DescribeEventsPages(input, func(page *rds.DescribeEventsOutput, lastPage bool) bool {
		for _, event := range page.Events {
			message := aws.StringValue(event.Message)
			if routine(message) {
				continue
			}
			source := aws.StringValue(event.SourceIdentifier)
			events[source] = append(events[source], message)
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe rds events")
	}

	if len(events) == 0 {
		return utils.Ok("no critical events since %s", start.UTC().Format(time.RFC3339)), nil
	}
	sources := make([]string, 0, len(events))
	for source := range events {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s: %s", source, strings.Join(events[source], "; ")))
	}
	return utils.Critical("instances w/ critical events: %s", strings.Join(parts, ", ")), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if window <= 0 {
		return fmt.Errorf("--window must be positive")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkEvents(rds.New(sess), dbInstanceID, time.Now().Add(-window)))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-rds-events",
		Short: "Checks RDS instances for critical events",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&dbInstanceID, "db-instance-id", "i", "", "DB instance identifier, all instances when empty")
	cmd.Flags().DurationVarP(&window, "window", "t", 24*time.Hour, "How far back to look for events")

	return cmd
}
