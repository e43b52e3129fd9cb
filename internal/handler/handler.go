// Package handler adapts CloudFormation custom resource events to the
// provisioner, enforcing the physical-id and deadline rules of the protocol.
package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/lexcr-io/lexcr/internal/cr"
	"github.com/lexcr-io/lexcr/internal/logging"
)

// Custom resource types served by this function.
const (
	ResourceTypeBot        = "Custom::LexBot"
	ResourceTypeBotVersion = "Custom::LexBotVersion"
	ResourceTypeBotAlias   = "Custom::LexBotAlias"
)

// deadlineMargin is reserved out of the invocation budget so a coherent
// response always reaches CloudFormation before the function is killed.
const deadlineMargin = 10 * time.Second

// Handler dispatches CloudFormation events to the provisioner.
type Handler struct {
	prov *cr.Provisioner
}

func New(prov *cr.Provisioner) *Handler {
	return &Handler{prov: prov}
}

// Serve blocks running the Lambda event loop.
func (h *Handler) Serve() {
	lambda.Start(cfn.LambdaWrap(h.Handle))
}

// Handle processes one custom resource event. The returned physical id is
// stable across updates; a create that failed before an id was assigned
// reports the request id instead, which the delete path recognizes as
// "never created" and resolves by name.
func (h *Handler) Handle(ctx context.Context, event cfn.Event) (string, map[string]any, error) {
	ctx, cancel := withDeadlineMargin(ctx)
	defer cancel()

	log := logging.With(
		"request_type", event.RequestType,
		"resource_type", event.ResourceType,
		"request_id", event.RequestID)
	log.Info("handling event", "physical_id", event.PhysicalResourceID)

	res, err := h.dispatch(ctx, event)

	physicalID := event.PhysicalResourceID
	var data map[string]any
	if res != nil {
		if res.PhysicalID != "" {
			physicalID = res.PhysicalID
		}
		data = res.Data
	}
	if physicalID == "" {
		physicalID = event.RequestID
	}
	if err != nil {
		log.Error("event failed", "physical_id", physicalID, "error", err)
	}
	return physicalID, data, err
}

func (h *Handler) dispatch(ctx context.Context, event cfn.Event) (*cr.Result, error) {
	switch event.ResourceType {
	case ResourceTypeBot:
		switch event.RequestType {
		case cfn.RequestCreate:
			return h.prov.CreateBot(ctx, event.ResourceProperties)
		case cfn.RequestUpdate:
			return h.prov.UpdateBot(ctx, event.PhysicalResourceID, event.ResourceProperties, event.OldResourceProperties)
		case cfn.RequestDelete:
			return h.prov.DeleteBot(ctx, event.PhysicalResourceID, event.ResourceProperties)
		}
	case ResourceTypeBotVersion:
		switch event.RequestType {
		case cfn.RequestCreate:
			return h.prov.CreateVersion(ctx, event.ResourceProperties)
		case cfn.RequestUpdate:
			return h.prov.UpdateVersion(ctx, event.ResourceProperties)
		case cfn.RequestDelete:
			return h.prov.DeleteVersion(ctx, event.PhysicalResourceID, event.ResourceProperties)
		}
	case ResourceTypeBotAlias:
		switch event.RequestType {
		case cfn.RequestCreate:
			return h.prov.CreateAlias(ctx, event.ResourceProperties)
		case cfn.RequestUpdate:
			return h.prov.UpdateAlias(ctx, event.PhysicalResourceID, event.ResourceProperties)
		case cfn.RequestDelete:
			return h.prov.DeleteAlias(ctx, event.PhysicalResourceID, event.ResourceProperties)
		}
	}
	return nil, fmt.Errorf("unsupported %s on %s", event.RequestType, event.ResourceType)
}

// withDeadlineMargin pulls the deadline forward so work stops while there is
// still time to report the outcome.
func withDeadlineMargin(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline.Add(-deadlineMargin))
}
