package main

/*
#
# check-s3-bucket-visibility
#
# DESCRIPTION:
#   Checks S3 buckets for a website configuration or a bucket policy that
#   grants access to everyone.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-s3-bucket-visibility --bucket-names mybucket,myotherbucket
#   ./check-s3-bucket-visibility --all-buckets --exclude-buckets 'public-*' --exclude-buckets-regex '^static\.'
#
*/

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig           aws_session.Config
	bucketNames         string
	allBuckets          bool
	excludeBuckets      string
	excludeBucketsRegex string
	criticalOnMissing   bool
)

type s3Client interface {
	ListBuckets(*s3.ListBucketsInput) (*s3.ListBucketsOutput, error)
	GetBucketWebsite(*s3.GetBucketWebsiteInput) (*s3.GetBucketWebsiteOutput, error)
	GetBucketPolicy(*s3.GetBucketPolicyInput) (*s3.GetBucketPolicyOutput, error)
}

// exclusions matches bucket names against glob patterns and a regex.
type exclusions struct {
	globs []glob.Glob
	regex *regexp.Regexp
}

func newExclusions(patterns []string, regex string) (exclusions, error) {
	var ex exclusions
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return ex, errors.Wrapf(err, "invalid exclude pattern %q", pattern)
		}
		ex.globs = append(ex.globs, g)
	}
	if regex != "" {
		re, err := regexp.Compile(regex)
		if err != nil {
			return ex, errors.Wrapf(err, "invalid exclude regex %q", regex)
		}
		ex.regex = re
	}
	return ex, nil
}

func (ex exclusions) match(bucket string) bool {
	for _, g := range ex.globs {
		if g.Match(bucket) {
			return true
		}
	}
	return ex.regex != nil && ex.regex.MatchString(bucket)
}

type policyDocument struct {
	Statement []struct {
		Effect    string          `json:"Effect"`
		Principal json.RawMessage `json:"Principal"`
	} `json:"Statement"`
}

// publicPolicy reports whether policy allows any principal.
func publicPolicy(policy string) bool {
	var doc policyDocument
	if err := json.Unmarshal([]byte(policy), &doc); err != nil {
		return false
	}
	for _, statement := range doc.Statement {
		if statement.Effect != "Allow" {
			continue
		}
		var principal interface{}
		if err := json.Unmarshal(statement.Principal, &principal); err != nil {
			continue
		}
		switch p := principal.(type) {
		case string:
			if p == "*" {
				return true
			}
		case map[string]interface{}:
			if v, ok := p["AWS"].(string); ok && v == "*" {
				return true
			}
			if list, ok := p["AWS"].([]interface{}); ok {
				for _, v := range list {
					if v == "*" {
						return true
					}
				}
			}
		}
	}
	return false
}

func errorCode(err error) string {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code()
	}
	return ""
}

func listBuckets(client s3Client) ([]string, error) {
	out, err := client.ListBuckets(&s3.ListBucketsInput{})
	if err != nil {
		return nil, errors.Wrap(err, "list buckets")
	}
	names := make([]string, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		names = append(names, aws.StringValue(bucket.Name))
	}
	return names, nil
}

type visibilityOptions struct {
	Buckets           []string
	AllBuckets        bool
	Exclusions        exclusions
	CriticalOnMissing bool
}

func checkVisibility(client s3Client, opts visibilityOptions) (int, error) {
	buckets := opts.Buckets
	if opts.AllBuckets {
		var err error
		if buckets, err = listBuckets(client); err != nil {
			return sensu.CheckStateUnknown, err
		}
	}

	missing := sensu.CheckStateWarning
	if opts.CriticalOnMissing {
		missing = sensu.CheckStateCritical
	}

	status := sensu.CheckStateOK
	var problems []string
	checked := 0
	for _, bucket := range buckets {
		if opts.Exclusions.match(bucket) {
			continue
		}
		checked++

		_, err := client.GetBucketWebsite(&s3.GetBucketWebsiteInput{Bucket: aws.String(bucket)})
		switch code := errorCode(err); {
		case err == nil:
			status = utils.Worst(status, sensu.CheckStateCritical)
			problems = append(problems, fmt.Sprintf("%s website configuration found", bucket))
		case code == s3.ErrCodeNoSuchBucket:
			status = utils.Worst(status, missing)
			problems = append(problems, fmt.Sprintf("%s bucket does not exist", bucket))
			continue
		case code != "NoSuchWebsiteConfiguration":
			return sensu.CheckStateUnknown, errors.Wrapf(err, "get website configuration of %s", bucket)
		}

		policy, err := client.GetBucketPolicy(&s3.GetBucketPolicyInput{Bucket: aws.String(bucket)})
		switch code := errorCode(err); {
		case err == nil:
			if publicPolicy(aws.StringValue(policy.Policy)) {
				status = utils.Worst(status, sensu.CheckStateCritical)
				problems = append(problems, fmt.Sprintf("%s bucket policy too permissive", bucket))
			}
		case code == "NoSuchBucketPolicy":
		default:
			return sensu.CheckStateUnknown, errors.Wrapf(err, "get bucket policy of %s", bucket)
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "%s", strings.Join(problems, ", ")), nil
	}
	return utils.Ok("%d bucket(s) are not publicly visible", checked), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if bucketNames == "" && !allBuckets {
		return fmt.Errorf("one of --bucket-names or --all-buckets is required")
	}
	ex, err := newExclusions(utils.SplitList(excludeBuckets), excludeBucketsRegex)
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkVisibility(s3.New(sess), visibilityOptions{
		Buckets:           utils.SplitList(bucketNames),
		AllBuckets:        allBuckets,
		Exclusions:        ex,
		CriticalOnMissing: criticalOnMissing,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-s3-bucket-visibility",
		Short: "Checks S3 buckets for public website or policy access",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&bucketNames, "bucket-names", "b", "", "Comma separated S3 buckets to check")
	cmd.Flags().BoolVarP(&allBuckets, "all-buckets", "a", false, "Check every bucket the credentials can list")
	cmd.Flags().StringVarP(&excludeBuckets, "exclude-buckets", "x", "", "Comma separated bucket glob patterns expected to be public")
	cmd.Flags().StringVarP(&excludeBucketsRegex, "exclude-buckets-regex", "e", "", "Regex of bucket names to ignore")
	cmd.Flags().BoolVarP(&criticalOnMissing, "critical-on-missing", "m", false, "Critical rather than warning when a bucket is not found")

	return cmd
}
