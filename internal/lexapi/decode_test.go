package lexapi

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_CreateBotInput(t *testing.T) {
	attrs := map[string]any{
		"botName":                 "OrderFlowers",
		"description":             "flowers",
		"idleSessionTTLInSeconds": "300",
		"dataPrivacy": map[string]any{
			"childDirected": "false",
		},
		"botTags": map[string]any{
			"team": "conversational",
		},
	}

	input := &lexmodelsv2.CreateBotInput{}
	require.NoError(t, bind(attrs, input))

	assert.Equal(t, "OrderFlowers", aws.ToString(input.BotName))
	assert.Equal(t, "flowers", aws.ToString(input.Description))
	// Stringified scalars from the CloudFormation payload come out typed.
	assert.Equal(t, int32(300), aws.ToInt32(input.IdleSessionTTLInSeconds))
	require.NotNil(t, input.DataPrivacy)
	assert.False(t, input.DataPrivacy.ChildDirected)
	assert.Equal(t, "conversational", input.BotTags["team"])
}

func TestBind_NestedLists(t *testing.T) {
	attrs := map[string]any{
		"intentName": "OrderIntent",
		"sampleUtterances": []any{
			map[string]any{"utterance": "I want flowers"},
			map[string]any{"utterance": "order flowers"},
		},
	}

	input := &lexmodelsv2.CreateIntentInput{}
	require.NoError(t, bind(attrs, input))
	require.Len(t, input.SampleUtterances, 2)
	assert.Equal(t, "I want flowers", aws.ToString(input.SampleUtterances[0].Utterance))
}

func TestCoerceValue(t *testing.T) {
	assert.Equal(t, true, coerceValue("detectSentiment", "True"))
	assert.Equal(t, int64(5), coerceValue("maxRetries", "5"))
	assert.Equal(t, 0.75, coerceValue("nluIntentConfidenceThreshold", "0.75"))
	// Unknown keys pass through as-is.
	assert.Equal(t, "300", coerceValue("somethingElse", "300"))
	// Unparseable values stay strings for the service to reject.
	assert.Equal(t, "many", coerceValue("maxRetries", "many"))
}
