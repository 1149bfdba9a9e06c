// Package registry maps action_type discriminants to their factories and
// validates node configuration against each factory's JSON schema.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/innospot/autoflow/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// AvailableActions returns the registered action type discriminants.
func (r *Registry) AvailableActions() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}

// CreateAction validates config against the factory's schema and builds the
// action. Unregistered types and schema violations are errors.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	err := r.validateConfig(factory.Schema(), config)
	if err != nil {
		return nil, fmt.Errorf("invalid config for action type '%s': %w", actionType, err)
	}

	return factory.Create(config)
}

func (r *Registry) validateConfig(schema, config map[string]any) error {
	if schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			r.logger.Warn("Action config validation failed",
				"field", desc.Field(), "description", desc.Description())
		}

		return fmt.Errorf("config does not match schema: %s", result.Errors()[0].String())
	}

	return nil
}
