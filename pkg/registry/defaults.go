package registry

import (
	"github.com/innospot/autoflow/pkg/actions/alert"
	"github.com/innospot/autoflow/pkg/actions/notification"
	"github.com/innospot/autoflow/pkg/actions/store"
	"github.com/innospot/autoflow/pkg/actions/webhook"
	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/persistence"
)

// RegisterDefaults wires the built-in action set against the process's event
// bus and document store.
func RegisterDefaults(reg *Registry, publisher eventbus.EventPublisher, documents persistence.DocumentRepository) {
	reg.RegisterAction(notification.NewNotificationActionFactory(publisher))
	reg.RegisterAction(alert.NewAlertActionFactory(publisher))
	reg.RegisterAction(store.NewStoreActionFactory(documents))
	reg.RegisterAction(webhook.NewWebhookActionFactory())
}
