package asyncapi_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/pkg/contracts/asyncapi"
)

const specPath = "../../../docs/asyncapi.yaml"

func newValidator(t *testing.T) *asyncapi.EventValidator {
	t.Helper()
	absPath, err := filepath.Abs(specPath)
	require.NoError(t, err)

	validator, err := asyncapi.NewEventValidator(absPath)
	require.NoError(t, err)
	return validator
}

func TestAllEventTypesHaveSchemas(t *testing.T) {
	validator := newValidator(t)

	eventTypes := []string{
		"fulfillment.shipment.confirmed",
		"fulfillment.shipment.rejected",
		"fulfillment.return.approved",
		"fulfillment.return.cancelled",
		"fulfillment.return.received",
		"fulfillment.return.shipped",
		"fulfillment.return.closed",
		"fulfillment.inventory.adjusted",
		"fulfillment.inventory.deleted",
		"fulfillment.inventory.sync",
	}
	for _, eventType := range eventTypes {
		assert.True(t, validator.HasSchema(eventType), "missing schema for %s", eventType)
	}
	assert.Len(t, validator.GetSupportedEventTypes(), len(eventTypes))
}

func TestValidateInventorySyncEvent(t *testing.T) {
	validator := newValidator(t)

	event := asyncapi.Envelope{
		SpecVersion: "1.0",
		Type:        "fulfillment.inventory.sync",
		Source:      "fulfillment-service",
		ID:          "evt-1",
		Data: map[string]any{
			"productId":   "prod-1",
			"tenantId":    "TENANT-001",
			"externalRef": "ext-7",
			"quantity":    40,
			"syncedAt":    time.Now().UTC().Format(time.RFC3339),
		},
	}

	assert.NoError(t, validator.ValidateEvent(event))
}

func TestValidateEventRejectsBadPayloads(t *testing.T) {
	validator := newValidator(t)

	// missing the required externalRef
	event := asyncapi.Envelope{
		Type: "fulfillment.inventory.sync",
		Data: map[string]any{
			"productId": "prod-1",
			"tenantId":  "TENANT-001",
			"quantity":  40,
			"syncedAt":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	assert.Error(t, validator.ValidateEvent(event))

	// negative quantity on an adjusted event
	event = asyncapi.Envelope{
		Type: "fulfillment.inventory.adjusted",
		Data: map[string]any{
			"productId":   "prod-1",
			"tenantId":    "TENANT-001",
			"oldQuantity": 10,
			"newQuantity": -4,
			"reason":      "edit",
			"adjustedAt":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	assert.Error(t, validator.ValidateEvent(event))

	// unknown event type
	event = asyncapi.Envelope{
		Type: "fulfillment.warehouse.moved",
		Data: map[string]any{},
	}
	assert.Error(t, validator.ValidateEvent(event))
}
