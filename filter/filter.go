package filter

/*
ec2 describe filters from the command line. Three forms are accepted and
merged: the json document used by --filters, repeated --filter name=v1,v2
pairs, and the older {name:KEY,values:[V1,V2]} fragments.
*/

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/spf13/cobra"
)

var (
	fragmentPattern = regexp.MustCompile(`\{([^{}]*)\}`)
	namePattern     = regexp.MustCompile(`name:\s*([^,]+?)\s*,`)
	valuesPattern   = regexp.MustCompile(`values:\s*\[(.*?)\]`)
)

// Parse reads the legacy fragment syntax. Values may not contain commas.
func Parse(input string) ([]models.Filter, error) {
	input = strings.TrimSpace(input)
	filters := []models.Filter{}
	if input == "" || input == "{}" {
		return filters, nil
	}

	fragments := fragmentPattern.FindAllStringSubmatch(input, -1)
	if len(fragments) == 0 {
		return nil, errors.Errorf("invalid filter %q", input)
	}
	for _, fragment := range fragments {
		body := strings.TrimSpace(fragment[1])
		if body == "" {
			continue
		}
		name := namePattern.FindStringSubmatch(body)
		values := valuesPattern.FindStringSubmatch(body)
		if name == nil || values == nil {
			return nil, errors.Errorf("invalid filter fragment %q, expected {name:KEY,values:[V1,V2]}", fragment[0])
		}
		filters = append(filters, models.Filter{
			Name:   name[1],
			Values: splitValues(values[1]),
		})
	}
	return filters, nil
}

// ParseJSON reads {"filters":[{"name":"...","values":["..."]}]}.
func ParseJSON(input string) ([]models.Filter, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	var filters models.Filters
	if err := json.Unmarshal([]byte(input), &filters); err != nil {
		return nil, errors.Wrap(err, "invalid --filters json")
	}
	for _, f := range filters.Filters {
		if f.Name == "" {
			return nil, errors.New("invalid --filters json: filter without a name")
		}
	}
	return filters.Filters, nil
}

// ParsePairs reads name=v1,v2 pairs.
func ParsePairs(pairs []string) ([]models.Filter, error) {
	var filters []models.Filter
	for _, pair := range pairs {
		nameValues := strings.SplitN(pair, "=", 2)
		if len(nameValues) != 2 || strings.TrimSpace(nameValues[0]) == "" {
			return nil, errors.Errorf("invalid filter %q, expected name=value[,value]", pair)
		}
		filters = append(filters, models.Filter{
			Name:   strings.TrimSpace(nameValues[0]),
			Values: splitValues(nameValues[1]),
		})
	}
	return filters, nil
}

func splitValues(s string) []string {
	values := []string{}
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// FromFlags merges every filter form.
func FromFlags(legacy, jsonFilters string, pairs []string) ([]models.Filter, error) {
	var all []models.Filter
	for _, parse := range []func() ([]models.Filter, error){
		func() ([]models.Filter, error) { return ParseJSON(jsonFilters) },
		func() ([]models.Filter, error) { return ParsePairs(pairs) },
		func() ([]models.Filter, error) { return Parse(legacy) },
	} {
		filters, err := parse()
		if err != nil {
			return nil, err
		}
		all = append(all, filters...)
	}
	return all, nil
}

func ToEC2(filters []models.Filter) []*ec2.Filter {
	if len(filters) == 0 {
		return nil
	}
	ec2Filters := make([]*ec2.Filter, 0, len(filters))
	for _, f := range filters {
		ec2Filters = append(ec2Filters, &ec2.Filter{
			Name:   aws.String(f.Name),
			Values: aws.StringSlice(f.Values),
		})
	}
	return ec2Filters
}

// ParseExcludeTags accepts {"tags":[{"name":..,"value":..}]} or a plain
// {"TAG_NAME":"TAG_VALUE"} object.
func ParseExcludeTags(input string) (models.ExcludeTags, error) {
	var excludeTags models.ExcludeTags
	input = strings.TrimSpace(input)
	if input == "" {
		return excludeTags, nil
	}
	if err := json.Unmarshal([]byte(input), &excludeTags); err == nil && len(excludeTags.Tags) > 0 {
		return excludeTags, nil
	}

	var tagMap map[string]string
	if err := json.Unmarshal([]byte(input), &tagMap); err != nil {
		return models.ExcludeTags{}, errors.Wrap(err, "invalid exclude tags json")
	}
	excludeTags = models.ExcludeTags{}
	for name, value := range tagMap {
		excludeTags.Tags = append(excludeTags.Tags, models.Tag{Name: name, Value: value})
	}
	return excludeTags, nil
}

// Flags binds the filter options shared by the ec2 plugins.
type Flags struct {
	JSON   string
	Pairs  []string
	Legacy string
}

func (f *Flags) Register(cmd *cobra.Command, defaultJSON string) {
	cmd.Flags().StringVar(&f.JSON, "filters", defaultJSON, `JSON filters, e.g. {"filters":[{"name":"instance-state-name","values":["running"]}]}`)
	cmd.Flags().StringArrayVar(&f.Pairs, "filter", nil, "Filter as name=value[,value], repeatable")
	cmd.Flags().StringVar(&f.Legacy, "filter-string", "", "Filter in {name:KEY,values:[V1,V2]} form")
}

func (f *Flags) EC2() ([]*ec2.Filter, error) {
	filters, err := FromFlags(f.Legacy, f.JSON, f.Pairs)
	if err != nil {
		return nil, err
	}
	return ToEC2(filters), nil
}
