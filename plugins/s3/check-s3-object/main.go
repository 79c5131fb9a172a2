package main

/*
#
# check-s3-object
#
# DESCRIPTION:
#   Checks the age and size of an S3 object, or of the newest object under a
#   key prefix.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-s3-object --bucket-name mybucket --key-name "path/to/myfile.txt"
#   ./check-s3-object --bucket-name mybucket --key-prefix "path/to/backup-" --all-objects
#   ./check-s3-object --bucket-name mybucket --key-name dump.sql --warning-size 1000 --critical-size 100 --operator less
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	opts      = objectOptions{}
)

type s3Client interface {
	HeadObject(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	ListObjectsV2Pages(*s3.ListObjectsV2Input, func(*s3.ListObjectsV2Output, bool) bool) error
}

type objectOptions struct {
	Bucket       string
	Key          string
	Prefix       string
	WarningAge   time.Duration
	CriticalAge  time.Duration
	OkZeroSize   bool
	WarningSize  *int64
	CriticalSize *int64
	CompareSize  string
	AllObjects   bool
	Now          time.Time
}

type object struct {
	key          string
	size         int64
	lastModified time.Time
}

func notFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}

// findObject returns the object named by Key, or the newest object under
// Prefix. A nil object means nothing matched.
func findObject(client s3Client, opts objectOptions) (*object, int, error) {
	if opts.Key != "" {
		out, err := client.HeadObject(&s3.HeadObjectInput{Bucket: aws.String(opts.Bucket), Key: aws.String(opts.Key)})
		if notFound(err) {
			return nil, 0, nil
		}
		if err != nil {
			return nil, 0, errors.Wrapf(err, "head object %s", opts.Key)
		}
		return &object{key: opts.Key, size: aws.Int64Value(out.ContentLength), lastModified: aws.TimeValue(out.LastModified)}, 1, nil
	}

	var contents []*s3.Object
	err := client.ListObjectsV2Pages(&s3.ListObjectsV2Input{Bucket: aws.String(opts.Bucket), Prefix: aws.String(opts.Prefix)}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		contents = append(contents, page.Contents...)
		return true
	})
	if err != nil {
		return nil, 0, errors.Wrapf(err, "list objects with prefix %s", opts.Prefix)
	}
	if len(contents) == 0 {
		return nil, 0, nil
	}
	utils.SortContents(contents)
	newest := contents[0]
	return &object{key: aws.StringValue(newest.Key), size: aws.Int64Value(newest.Size), lastModified: aws.TimeValue(newest.LastModified)}, len(contents), nil
}

func checkObject(client s3Client, opts objectOptions) (int, error) {
	name := opts.Key
	if name == "" {
		name = opts.Prefix + "*"
	}
	obj, count, err := findObject(client, opts)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}
	if obj == nil {
		return utils.Critical("S3 object %s not found in bucket %s", name, opts.Bucket), nil
	}
	if count > 1 && !opts.AllObjects {
		return utils.Critical("prefix %s matches %d objects, be more specific or pass --all-objects", opts.Prefix, count), nil
	}

	status := sensu.CheckStateOK
	var problems []string

	age := opts.Now.Sub(obj.lastModified).Truncate(time.Second)
	switch {
	case age > opts.CriticalAge:
		status = utils.Worst(status, sensu.CheckStateCritical)
		problems = append(problems, fmt.Sprintf("age %s", age))
	case age > opts.WarningAge:
		status = utils.Worst(status, sensu.CheckStateWarning)
		problems = append(problems, fmt.Sprintf("age %s", age))
	}

	switch {
	case obj.size == 0 && !opts.OkZeroSize:
		status = utils.Worst(status, sensu.CheckStateCritical)
		problems = append(problems, "object is empty")
	case opts.CriticalSize != nil && cloudwatch_common.Compare(float64(obj.size), float64(*opts.CriticalSize), opts.CompareSize):
		status = utils.Worst(status, sensu.CheckStateCritical)
		problems = append(problems, fmt.Sprintf("size %d octets", obj.size))
	case opts.WarningSize != nil && cloudwatch_common.Compare(float64(obj.size), float64(*opts.WarningSize), opts.CompareSize):
		status = utils.Worst(status, sensu.CheckStateWarning)
		problems = append(problems, fmt.Sprintf("size %d octets", obj.size))
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "S3 object %s (bucket %s): %s", obj.key, opts.Bucket, strings.Join(problems, ", ")), nil
	}
	return utils.Ok("S3 object %s exists in bucket %s", obj.key, opts.Bucket), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if (opts.Key == "") == (opts.Prefix == "") {
		return fmt.Errorf("exactly one of --key-name or --key-prefix is required")
	}
	if err := cloudwatch_common.ValidateCompare(opts.CompareSize); err != nil {
		return err
	}
	if !cmd.Flags().Changed("warning-size") {
		opts.WarningSize = nil
	}
	if !cmd.Flags().Changed("critical-size") {
		opts.CriticalSize = nil
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	opts.Now = time.Now()
	utils.Exit(checkObject(s3.New(sess), opts))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-s3-object",
		Short: "Checks the age and size of an S3 object",
		RunE:  run,
	}

	opts.WarningSize = new(int64)
	opts.CriticalSize = new(int64)

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&opts.Bucket, "bucket-name", "b", "", "The name of the S3 bucket where the object lives")
	cmd.Flags().StringVarP(&opts.Key, "key-name", "k", "", "The key of the object")
	cmd.Flags().StringVarP(&opts.Prefix, "key-prefix", "p", "", "Prefix of the keys to search in the bucket, the newest object is checked")
	cmd.Flags().DurationVarP(&opts.WarningAge, "warning-age", "w", 25*time.Hour, "Warn when the object is older")
	cmd.Flags().DurationVarP(&opts.CriticalAge, "critical-age", "c", 35*time.Hour, "Critical when the object is older")
	cmd.Flags().BoolVarP(&opts.OkZeroSize, "ok-zero-size", "z", true, "OK if the object has zero size")
	cmd.Flags().Int64Var(opts.WarningSize, "warning-size", 0, "Warning threshold for size in octets")
	cmd.Flags().Int64Var(opts.CriticalSize, "critical-size", 0, "Critical threshold for size in octets")
	cmd.Flags().StringVarP(&opts.CompareSize, "operator", "o", cloudwatch_common.CompareGreater, "Size comparison operator: equal, not, greater, less")
	cmd.Flags().BoolVar(&opts.AllObjects, "all-objects", false, "Allow a prefix matching several objects, the newest one is checked")

	_ = cmd.MarkFlagRequired("bucket-name")
	return cmd
}
