package main

/*
#
# check-s3-bucket
#
# DESCRIPTION:
#   Checks that an S3 bucket exists and is reachable with the configured
#   credentials.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-s3-bucket --bucket-name mybucket -r eu-west-1
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

var (
	awsConfig  aws_session.Config
	bucketName string
)

type s3Client interface {
	HeadBucket(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
}

func checkBucket(client s3Client, bucket string) (int, error) {
	_, err := client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return utils.Ok("%s bucket found", bucket), nil
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case "NotFound", s3.ErrCodeNoSuchBucket:
			return utils.Critical("%s bucket not found", bucket), nil
		}
		return utils.Critical("%s: %s", bucket, aerr.Message()), nil
	}
	return utils.Critical("%s: %v", bucket, err), nil
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
	utils.Exit(checkBucket(s3.New(sess), bucketName))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-s3-bucket",
		Short: "Checks that an S3 bucket exists",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&bucketName, "bucket-name", "b", "", "The name of the S3 bucket to check")

	_ = cmd.MarkFlagRequired("bucket-name")
	return cmd
}
