package utils

import (
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SortContents orders objects newest first.
func SortContents(contents []*s3.Object) {
	sort.SliceStable(contents, func(i, j int) bool {
		return aws.TimeValue(contents[i].LastModified).After(aws.TimeValue(contents[j].LastModified))
	})
}
