package main

/*
#
# check-sqs-messages
#
# DESCRIPTION:
#   Checks a queue attribute, by default the approximate number of visible
#   messages, of SQS queues selected by name or by name prefix.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-sqs-messages --queue jobs --warning-over 100 --critical-over 1000
#   ./check-sqs-messages --prefix prod- --exclude-queues '*-dlq' --critical-over 50
#   ./check-sqs-messages --queue jobs --critical-under 1 --attribute ApproximateNumberOfMessagesNotVisible
#
*/

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig     aws_session.Config
	queues        string
	prefix        string
	excludeQueues string
	attribute     string
	warningOver   float64
	criticalOver  float64
	warningUnder  float64
	criticalUnder float64
)

type sqsClient interface {
	GetQueueUrl(*sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error)
	ListQueuesPages(*sqs.ListQueuesInput, func(*sqs.ListQueuesOutput, bool) bool) error
	GetQueueAttributes(*sqs.GetQueueAttributesInput) (*sqs.GetQueueAttributesOutput, error)
}

// messageOptions holds the thresholds; a negative threshold is disabled.
type messageOptions struct {
	Queues        []string
	Prefix        string
	Exclude       []glob.Glob
	Attribute     string
	WarningOver   float64
	CriticalOver  float64
	WarningUnder  float64
	CriticalUnder float64
}

func queueURLs(client sqsClient, opts messageOptions) ([]string, error) {
	var urls []string
	for _, name := range opts.Queues {
		out, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{QueueName: aws.String(name)})
		if err != nil {
			return nil, errors.Wrapf(err, "get url of queue %s", name)
		}
		urls = append(urls, aws.StringValue(out.QueueUrl))
	}
	if opts.Prefix != "" {
		err := client.ListQueuesPages(&sqs.ListQueuesInput{QueueNamePrefix: aws.String(opts.Prefix)}, func(page *sqs.ListQueuesOutput, lastPage bool) bool {
			urls = append(urls, aws.StringValueSlice(page.QueueUrls)...)
			return true
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list queues with prefix %s", opts.Prefix)
		}
	}
	return urls, nil
}

func excluded(name string, patterns []glob.Glob) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func grade(value float64, opts messageOptions) int {
	status := sensu.CheckStateOK
	switch {
	case opts.CriticalOver >= 0 && value >= opts.CriticalOver:
		status = sensu.CheckStateCritical
	case opts.WarningOver >= 0 && value >= opts.WarningOver:
		status = sensu.CheckStateWarning
	}
	switch {
	case opts.CriticalUnder >= 0 && value <= opts.CriticalUnder:
		status = utils.Worst(status, sensu.CheckStateCritical)
	case opts.WarningUnder >= 0 && value <= opts.WarningUnder:
		status = utils.Worst(status, sensu.CheckStateWarning)
	}
	return status
}

func checkMessages(client sqsClient, opts messageOptions) (int, error) {
	urls, err := queueURLs(client, opts)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	status := sensu.CheckStateOK
	checked := 0
	var problems []string
	for _, url := range urls {
		name := path.Base(url)
		if excluded(name, opts.Exclude) {
			logger.Get().Debug("skipping excluded queue", zap.String("queue", name))
			continue
		}
		out, err := client.GetQueueAttributes(&sqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(url),
			AttributeNames: aws.StringSlice([]string{opts.Attribute}),
		})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "get attributes of queue %s", name)
		}
		raw, ok := out.Attributes[opts.Attribute]
		if !ok {
			return utils.Unknown("%s has no attribute %s", name, opts.Attribute), nil
		}
		value, err := strconv.ParseFloat(aws.StringValue(raw), 64)
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "parse %s of queue %s", opts.Attribute, name)
		}
		checked++
		if queueStatus := grade(value, opts); queueStatus != sensu.CheckStateOK {
			status = utils.Worst(status, queueStatus)
			problems = append(problems, fmt.Sprintf("%s %s is %g", name, opts.Attribute, value))
		}
	}

	if checked == 0 {
		return utils.Unknown("no queues found"), nil
	}
	if status != sensu.CheckStateOK {
		return utils.Status(status, "%s", strings.Join(problems, ", ")), nil
	}
	return utils.Ok("%s of %d queue(s) within thresholds", opts.Attribute, checked), nil
}

func compilePatterns(value string) ([]glob.Glob, error) {
	var patterns []glob.Glob
	for _, pattern := range utils.SplitList(value) {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid queue pattern %q", pattern)
		}
		patterns = append(patterns, g)
	}
	return patterns, nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	opts := messageOptions{
		Queues:        utils.SplitList(queues),
		Prefix:        prefix,
		Attribute:     attribute,
		WarningOver:   warningOver,
		CriticalOver:  criticalOver,
		WarningUnder:  warningUnder,
		CriticalUnder: criticalUnder,
	}
	if len(opts.Queues) == 0 && opts.Prefix == "" {
		return fmt.Errorf("--queue or --prefix is required")
	}
	if warningOver < 0 && criticalOver < 0 && warningUnder < 0 && criticalUnder < 0 {
		return fmt.Errorf("at least one threshold is required")
	}
	patterns, err := compilePatterns(excludeQueues)
	if err != nil {
		return err
	}
	opts.Exclude = patterns

	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkMessages(sqs.New(sess), opts))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-sqs-messages",
		Short: "Checks the number of messages in SQS queues",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&queues, "queue", "q", "", "Comma separated queue names")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Check every queue whose name starts with this prefix")
	cmd.Flags().StringVarP(&excludeQueues, "exclude-queues", "x", "", "Comma separated queue name glob patterns to skip")
	cmd.Flags().StringVarP(&attribute, "attribute", "a", sqs.QueueAttributeNameApproximateNumberOfMessages, "Queue attribute to check")
	cmd.Flags().Float64VarP(&warningOver, "warning-over", "w", -1, "Warn when the attribute reaches this value, negative disables")
	cmd.Flags().Float64VarP(&criticalOver, "critical-over", "c", -1, "Critical when the attribute reaches this value, negative disables")
	cmd.Flags().Float64VarP(&warningUnder, "warning-under", "W", -1, "Warn when the attribute drops to this value, negative disables")
	cmd.Flags().Float64VarP(&criticalUnder, "critical-under", "C", -1, "Critical when the attribute drops to this value, negative disables")

	return cmd
}
