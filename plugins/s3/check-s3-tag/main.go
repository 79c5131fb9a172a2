package main

/*
#
# check-s3-tag
#
# DESCRIPTION:
#   Checks that every S3 bucket carries the given tag keys.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-s3-tag --tag-keys owner,cost-center
#
*/

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig aws_session.Config
	tagKeys   string
)

type s3Client interface {
	ListBuckets(*s3.ListBucketsInput) (*s3.ListBucketsOutput, error)
	GetBucketTagging(*s3.GetBucketTaggingInput) (*s3.GetBucketTaggingOutput, error)
}

func bucketTags(client s3Client, bucket string) (map[string]bool, error) {
	out, err := client.GetBucketTagging(&s3.GetBucketTaggingInput{Bucket: aws.String(bucket)})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == "NoSuchTagSet" {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	tags := make(map[string]bool, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags[aws.StringValue(tag.Key)] = true
	}
	return tags, nil
}

func checkTags(client s3Client, required []string) (int, error) {
	out, err := client.ListBuckets(&s3.ListBucketsInput{})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "list buckets")
	}

	missing := map[string][]string{}
	for _, bucket := range out.Buckets {
		name := aws.StringValue(bucket.Name)
		tags, err := bucketTags(client, name)
		if err != nil {
			logger.Get().Debug("skipping bucket", zap.String("bucket", name), zap.Error(err))
			continue
		}
		for _, key := range required {
			if !tags[key] {
				missing[name] = append(missing[name], key)
			}
		}
	}

	if len(missing) == 0 {
		return utils.Ok("%d bucket(s) carry tags %s", len(out.Buckets), strings.Join(required, ", ")), nil
	}
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(missing[name], ", ")))
	}
	return utils.Critical("missing tags for buckets: %s", strings.Join(parts, ", ")), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	required := utils.SplitList(tagKeys)
	if len(required) == 0 {
		return fmt.Errorf("--tag-keys must name at least one tag")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkTags(s3.New(sess), required))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-s3-tag",
		Short: "Checks that S3 buckets carry the given tags",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&tagKeys, "tag-keys", "t", "", "Comma separated tag keys every bucket must have")

	_ = cmd.MarkFlagRequired("tag-keys")
	return cmd
}
