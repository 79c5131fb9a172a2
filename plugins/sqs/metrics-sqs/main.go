package main

/*
#
# metrics-sqs
#
# DESCRIPTION:
#   Collects the approximate message counts of SQS queues.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-sqs --queue jobs,mail
#   ./metrics-sqs --prefix prod- --scheme aws.sqs
#
*/

import (
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

var queueAttributes = []struct {
	name string
	path string
}{
	{sqs.QueueAttributeNameApproximateNumberOfMessages, "messages"},
	{sqs.QueueAttributeNameApproximateNumberOfMessagesNotVisible, "messages_not_visible"},
	{sqs.QueueAttributeNameApproximateNumberOfMessagesDelayed, "messages_delayed"},
}

var (
	awsConfig   aws_session.Config
	metricFlags metrics.Flags
	queues      string
	prefix      string
)

type sqsClient interface {
	GetQueueUrl(*sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error)
	ListQueuesPages(*sqs.ListQueuesInput, func(*sqs.ListQueuesOutput, bool) bool) error
	GetQueueAttributes(*sqs.GetQueueAttributesInput) (*sqs.GetQueueAttributesOutput, error)
}

func collect(client sqsClient, names []string, prefix string, emitter *metrics.Emitter) error {
	var urls []string
	for _, name := range names {
		out, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{QueueName: aws.String(name)})
		if err != nil {
			return errors.Wrapf(err, "get url of queue %s", name)
		}
		urls = append(urls, aws.StringValue(out.QueueUrl))
	}
	if len(names) == 0 {
		input := &sqs.ListQueuesInput{}
		if prefix != "" {
			input.QueueNamePrefix = aws.String(prefix)
		}
		err := client.ListQueuesPages(input, func(page *sqs.ListQueuesOutput, lastPage bool) bool {
			urls = append(urls, aws.StringValueSlice(page.QueueUrls)...)
			return true
		})
		if err != nil {
			return errors.Wrap(err, "list queues")
		}
	}

	attrNames := make([]string, 0, len(queueAttributes))
	for _, attr := range queueAttributes {
		attrNames = append(attrNames, attr.name)
	}
	for _, url := range urls {
		out, err := client.GetQueueAttributes(&sqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(url),
			AttributeNames: aws.StringSlice(attrNames),
		})
		if err != nil {
			return errors.Wrapf(err, "get attributes of queue %s", url)
		}
		for _, attr := range queueAttributes {
			raw, ok := out.Attributes[attr.name]
			if !ok {
				continue
			}
			value, err := strconv.ParseFloat(aws.StringValue(raw), 64)
			if err != nil {
				return errors.Wrapf(err, "parse %s of queue %s", attr.name, url)
			}
			emitter.Add(value, emitter.Now(), path.Base(url), attr.path)
		}
	}
	return nil
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
	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(sqs.New(sess), utils.SplitList(queues), prefix, e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-sqs",
		Short: "Collects SQS queue message counts",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.sqs")
	cmd.Flags().StringVarP(&queues, "queue", "q", "", "Comma separated queue names")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Collect queues whose name starts with this prefix, all queues when empty")

	return cmd
}
