package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/mocks"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry(slog.Default())
	RegisterDefaults(reg, mocks.PublisherStub{}, &mocks.MockDocumentRepository{})

	return reg
}

func TestRegisterDefaults_AllActionTypesAvailable(t *testing.T) {
	reg := newTestRegistry(t)

	available := reg.AvailableActions()
	assert.ElementsMatch(t, []string{
		"send_notification",
		"create_alert",
		"update_store",
		"call_webhook",
	}, available)
}

func TestCreateAction_UnregisteredType(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.CreateAction("launch_rocket", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestCreateAction_SchemaViolation(t *testing.T) {
	reg := newTestRegistry(t)

	// send_notification requires a message.
	_, err := reg.CreateAction("send_notification", map[string]any{"channel": "ops"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestCreateAction_WrongFieldType(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.CreateAction("send_notification", map[string]any{"message": 42})
	assert.Error(t, err)
}

func TestCreateAction_ValidConfig(t *testing.T) {
	reg := newTestRegistry(t)

	action, err := reg.CreateAction("send_notification", map[string]any{
		"message":   "deploy finished",
		"channel":   "ops",
		"recipient": "on-call",
	})
	require.NoError(t, err)
	assert.NotNil(t, action)
}

func TestCreateAction_NilConfigValidatedAgainstSchema(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.CreateAction("send_notification", nil)
	assert.Error(t, err, "nil config still misses required fields")
}
