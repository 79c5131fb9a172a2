package filter

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected []models.Filter
		err      bool
	}{
		{input: "", expected: []models.Filter{}},
		{input: "{}", expected: []models.Filter{}},
		{input: "{name:a,values:[x,y]}", expected: []models.Filter{{Name: "a", Values: []string{"x", "y"}}}},
		{
			input: "{name:tag-value,values:[infrastructure]},{name: instance-state-name, values: [running, stopped]}",
			expected: []models.Filter{
				{Name: "tag-value", Values: []string{"infrastructure"}},
				{Name: "instance-state-name", Values: []string{"running", "stopped"}},
			},
		},
		{input: "{name:a}", err: true},
		{input: "{values:[x]}", err: true},
		{input: "name:a,values:[x]", err: true},
		{input: "tag:Role", err: true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			filters, err := Parse(test.input)
			if test.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, filters)
		})
	}
}

func TestParseJSON(t *testing.T) {
	filters, err := ParseJSON(`{"filters":[{"name":"instance-state-name","values":["running"]}]}`)
	require.NoError(t, err)
	assert.Equal(t, []models.Filter{{Name: "instance-state-name", Values: []string{"running"}}}, filters)

	filters, err = ParseJSON("")
	require.NoError(t, err)
	assert.Empty(t, filters)

	_, err = ParseJSON(`{"filters":`)
	assert.Error(t, err)
	_, err = ParseJSON(`{"filters":[{"values":["x"]}]}`)
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	filters, err := ParsePairs([]string{"tag:Env=prod,staging", "instance-type=t3.micro"})
	require.NoError(t, err)
	assert.Equal(t, []models.Filter{
		{Name: "tag:Env", Values: []string{"prod", "staging"}},
		{Name: "instance-type", Values: []string{"t3.micro"}},
	}, filters)

	_, err = ParsePairs([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParsePairs([]string{"=x"})
	assert.Error(t, err)
}

func TestFlagsEC2(t *testing.T) {
	var flags Flags
	cmd := &cobra.Command{Use: "test"}
	flags.Register(cmd, `{"filters":[{"name":"instance-state-name","values":["running"]}]}`)
	require.NoError(t, cmd.ParseFlags([]string{"--filter", "tag:Env=prod", "--filter-string", "{name:vpc-id,values:[vpc-1]}"}))

	ec2Filters, err := flags.EC2()
	require.NoError(t, err)
	require.Len(t, ec2Filters, 3)
	assert.Equal(t, "instance-state-name", aws.StringValue(ec2Filters[0].Name))
	assert.Equal(t, "tag:Env", aws.StringValue(ec2Filters[1].Name))
	assert.Equal(t, []string{"vpc-1"}, aws.StringValueSlice(ec2Filters[2].Values))

	assert.Nil(t, ToEC2(nil))
}

func TestParseExcludeTags(t *testing.T) {
	tags, err := ParseExcludeTags(`{"tags":[{"name":"Env","value":"dev"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []models.Tag{{Name: "Env", Value: "dev"}}, tags.Tags)

	tags, err = ParseExcludeTags(`{"Env":"dev"}`)
	require.NoError(t, err)
	assert.Equal(t, []models.Tag{{Name: "Env", Value: "dev"}}, tags.Tags)

	tags, err = ParseExcludeTags(`{}`)
	require.NoError(t, err)
	assert.Empty(t, tags.Tags)

	_, err = ParseExcludeTags(`[1]`)
	assert.Error(t, err)
}
