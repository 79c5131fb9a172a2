package utils

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/pkg/errors"
)

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(value string) []string {
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// ParseDimensions turns "Name=Value,Name2=Value2" into cloudwatch dimensions.
func ParseDimensions(value string) ([]*cloudwatch.Dimension, error) {
	var dimensions []*cloudwatch.Dimension
	for _, pair := range SplitList(value) {
		nameValue := strings.SplitN(pair, "=", 2)
		if len(nameValue) != 2 || nameValue[0] == "" {
			return nil, errors.Errorf("invalid dimension %q, expected Name=Value", pair)
		}
		dimensions = append(dimensions, &cloudwatch.Dimension{
			Name:  aws.String(strings.TrimSpace(nameValue[0])),
			Value: aws.String(strings.TrimSpace(nameValue[1])),
		})
	}
	return dimensions, nil
}
