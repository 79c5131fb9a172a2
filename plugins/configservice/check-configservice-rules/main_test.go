package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/configservice"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockConfig struct {
	mock.Mock
}

func (m *mockConfig) DescribeComplianceByConfigRule(input *configservice.DescribeComplianceByConfigRuleInput) (*configservice.DescribeComplianceByConfigRuleOutput, error) {
	args := m.Called(aws.StringValue(input.NextToken), strings.Join(aws.StringValueSlice(input.ConfigRuleNames), ","))
	out, _ := args.Get(0).(*configservice.DescribeComplianceByConfigRuleOutput)
	return out, args.Error(1)
}

func rule(name string) *configservice.ComplianceByConfigRule {
	return &configservice.ComplianceByConfigRule{ConfigRuleName: aws.String(name)}
}

func TestCheckRules(t *testing.T) {
	client := new(mockConfig)
	client.On("DescribeComplianceByConfigRule", "", "").Return(&configservice.DescribeComplianceByConfigRuleOutput{
		ComplianceByConfigRules: []*configservice.ComplianceByConfigRule{rule("s3-bucket-ssl-requests-only")},
		NextToken:               aws.String("page-2"),
	}, nil)
	client.On("DescribeComplianceByConfigRule", "page-2", "").Return(&configservice.DescribeComplianceByConfigRuleOutput{
		ComplianceByConfigRules: []*configservice.ComplianceByConfigRule{rule("encrypted-volumes")},
	}, nil)
	client.On("DescribeComplianceByConfigRule", "", "root-account-mfa-enabled").Return(&configservice.DescribeComplianceByConfigRuleOutput{}, nil)

	var buf bytes.Buffer
	utils.Output = &buf
	status, err := checkRules(client, nil, false)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateCritical, status)
	assert.Equal(t, "CRITICAL: non compliant config rules: encrypted-volumes, s3-bucket-ssl-requests-only\n", buf.String())

	buf.Reset()
	status, err = checkRules(client, nil, true)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateWarning, status)

	buf.Reset()
	status, err = checkRules(client, []string{"root-account-mfa-enabled"}, false)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateOK, status)
	assert.Equal(t, "OK: no non compliant config rules\n", buf.String())
}
