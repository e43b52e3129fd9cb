package handler

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcr-io/lexcr/internal/cr"
	"github.com/lexcr-io/lexcr/internal/lexapi/lexapitest"
)

func TestHandler_UnsupportedResourceType(t *testing.T) {
	h := New(cr.NewProvisioner(lexapitest.New()))

	_, _, err := h.Handle(context.Background(), cfn.Event{
		RequestType:  cfn.RequestCreate,
		ResourceType: "Custom::Unknown",
		RequestID:    "req-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Custom::Unknown")
}

func TestHandler_DeleteWithPlaceholderPhysicalID(t *testing.T) {
	fake := lexapitest.New()
	h := New(cr.NewProvisioner(fake))

	// Rollback of a create that never assigned an id: the lookup finds no
	// bot and the delete succeeds as a no-op.
	physicalID, _, err := h.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestDelete,
		ResourceType:       ResourceTypeBot,
		PhysicalResourceID: "req-0001",
		RequestID:          "req-0002",
		ResourceProperties: map[string]any{"botName": "NeverCreated"},
	})
	require.NoError(t, err)
	assert.Equal(t, "req-0001", physicalID)
	assert.Zero(t, fake.CallCount("DeleteBot"))
}

func TestHandler_FailedCreateReportsRequestID(t *testing.T) {
	h := New(cr.NewProvisioner(lexapitest.New()))

	// Invalid desired state fails before any id exists; the request id
	// stands in so the stack can still issue a delete later.
	physicalID, _, err := h.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestCreate,
		ResourceType:       ResourceTypeBot,
		RequestID:          "req-0003",
		ResourceProperties: map[string]any{"botName": "B"},
	})
	require.Error(t, err)
	assert.Equal(t, "req-0003", physicalID)
}

func TestHandler_VersionDeleteRetains(t *testing.T) {
	fake := lexapitest.New()
	h := New(cr.NewProvisioner(fake))

	physicalID, _, err := h.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestDelete,
		ResourceType:       ResourceTypeBotVersion,
		PhysicalResourceID: "2",
		RequestID:          "req-0004",
		ResourceProperties: map[string]any{"botId": "BOT1000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", physicalID)
	assert.Empty(t, fake.Calls)
}
