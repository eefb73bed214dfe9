package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventValidator validates event envelopes against the AsyncAPI
// contract's payload schemas
type EventValidator struct {
	schemas    map[string]*jsonschema.Schema
	rawSchemas map[string]any
	compiler   *jsonschema.Compiler
}

// Envelope is the CloudEvents-shaped wire format the outbox publishes
type Envelope struct {
	SpecVersion     string `json:"specversion"`
	Type            string `json:"type"`
	Source          string `json:"source"`
	Subject         string `json:"subject,omitempty"`
	ID              string `json:"id"`
	Time            string `json:"time,omitempty"`
	DataContentType string `json:"datacontenttype,omitempty"`
	Data            any    `json:"data,omitempty"`
}

type asyncAPISpec struct {
	AsyncAPI   string             `yaml:"asyncapi"`
	Info       asyncAPIInfo       `yaml:"info"`
	Components asyncAPIComponents `yaml:"components"`
}

type asyncAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

type asyncAPIComponents struct {
	Schemas map[string]any `yaml:"schemas"`
}

// NewEventValidator loads an AsyncAPI specification file and compiles
// its payload schemas
func NewEventValidator(asyncAPIPath string) (*EventValidator, error) {
	data, err := os.ReadFile(asyncAPIPath)
	if err != nil {
		return nil, fmt.Errorf("read AsyncAPI document: %w", err)
	}
	return NewEventValidatorFromBytes(data)
}

// NewEventValidatorFromBytes compiles payload schemas from AsyncAPI
// specification bytes. Schema names map to event types by convention:
// ReturnApprovedData covers fulfillment.return.approved.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec asyncAPISpec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("parse AsyncAPI document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema)
	rawSchemas := make(map[string]any)

	for schemaName, schema := range spec.Components.Schemas {
		eventType := eventTypeForSchemaName(schemaName)
		if eventType == "" {
			continue
		}

		// yaml.v3 produces map[string]interface{} values; round-trip
		// through JSON so the compiler sees canonical types
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", schemaName, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", schemaName, err)
		}

		schemaURI := fmt.Sprintf("asyncapi://schemas/%s", schemaName)
		if err := compiler.AddResource(schemaURI, doc); err != nil {
			return nil, fmt.Errorf("schema %s: %w", schemaName, err)
		}
		compiled, err := compiler.Compile(schemaURI)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", schemaName, err)
		}

		schemas[eventType] = compiled
		rawSchemas[eventType] = doc
	}

	return &EventValidator{
		schemas:    schemas,
		rawSchemas: rawSchemas,
		compiler:   compiler,
	}, nil
}

// ValidateEvent validates an envelope's data payload against the
// schema registered for its event type
func (v *EventValidator) ValidateEvent(event Envelope) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}
	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(dataJSON))
	if err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}
	return nil
}

// ValidateEventJSON validates a serialized envelope
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event Envelope
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("parse event envelope: %w", err)
	}
	return v.ValidateEvent(event)
}

// GetSupportedEventTypes returns all event types with a registered schema
func (v *EventValidator) GetSupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	return types
}

// HasSchema reports whether a schema exists for the event type
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[eventType]
	return ok
}

// eventTypeForSchemaName maps contract schema names to event types
func eventTypeForSchemaName(schemaName string) string {
	name := strings.TrimSuffix(schemaName, "Data")
	name = strings.TrimSuffix(name, "Event")

	mappings := map[string]string{
		"ShipmentConfirmed": "fulfillment.shipment.confirmed",
		"ShipmentRejected":  "fulfillment.shipment.rejected",

		"ReturnApproved":  "fulfillment.return.approved",
		"ReturnCancelled": "fulfillment.return.cancelled",
		"ReturnReceived":  "fulfillment.return.received",
		"ReturnShipped":   "fulfillment.return.shipped",
		"ReturnClosed":    "fulfillment.return.closed",

		"InventoryAdjusted": "fulfillment.inventory.adjusted",
		"InventoryDeleted":  "fulfillment.inventory.deleted",
		"InventorySync":     "fulfillment.inventory.sync",
	}

	return mappings[name]
}
