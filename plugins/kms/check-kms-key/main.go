package main

/*
#
# check-kms-key
#
# DESCRIPTION:
#   Checks that a KMS key is enabled.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-kms-key --key-id alias/app
#   ./check-kms-key --key-id 1234abcd-12ab-34cd-56ef-1234567890ab
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	keyID     string
)

type kmsClient interface {
	DescribeKey(*kms.DescribeKeyInput) (*kms.DescribeKeyOutput, error)
}

func checkKey(client kmsClient, keyID string) (int, error) {
	out, err := client.DescribeKey(&kms.DescribeKeyInput{KeyId: aws.String(keyID)})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == kms.ErrCodeNotFoundException {
			return utils.Critical("key %s not found", keyID), nil
		}
		return sensu.CheckStateUnknown, errors.Wrapf(err, "describe key %s", keyID)
	}

	state := aws.StringValue(out.KeyMetadata.KeyState)
	if state != kms.KeyStateEnabled {
		return utils.Critical("key %s is %s", keyID, state), nil
	}
	return utils.Ok("key %s is %s", keyID, state), nil
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
	utils.Exit(checkKey(kms.New(sess), keyID))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-kms-key",
		Short: "Checks that a KMS key is enabled",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&keyID, "key-id", "k", "", "Key id, ARN or alias")
	_ = cmd.MarkFlagRequired("key-id")

	return cmd
}
