package client

// Inbound message kinds delivered by the host.
const (
	KindInfo                      = "info"
	KindAction                    = "action"
	KindHoldDown                  = "down"
	KindHoldUp                    = "up"
	KindListChange                = "listChange"
	KindConnectorChange           = "connectorChange"
	KindSettings                  = "settings"
	KindBroadcast                 = "broadcast"
	KindNotificationOptionClicked = "notificationOptionClicked"
	KindClosePlugin               = "closePlugin"
	KindShortConnectorIDs         = "shortConnectorIdNotification"
)

// Pseudo-kinds for handler registration. They never appear on the wire.
const (
	// KindAny matches every inbound message, after type-specific handlers.
	KindAny = "any"
	// KindError handlers receive a synthetic event for handler failures,
	// panics, and transport or protocol errors. The event carries "class"
	// and "message" fields plus the triggering message under "source".
	// OnError observers receive the raw error instead.
	KindError = "error"
)

// Outbound message kinds sent to the host.
const (
	kindPair             = "pair"
	kindStateUpdate      = "stateUpdate"
	kindCreateState      = "createState"
	kindRemoveState      = "removeState"
	kindChoiceUpdate     = "choiceUpdate"
	kindSettingUpdate    = "settingUpdate"
	kindConnectorUpdate  = "connectorUpdate"
	kindShowNotification = "showNotification"
	kindUpdateActionData = "updateActionData"
)

// inboundKinds is the set of kinds with dedicated dispatch. Messages of any
// other kind reach only the KindAny handlers.
var inboundKinds = map[string]bool{
	KindInfo:                      true,
	KindAction:                    true,
	KindHoldDown:                  true,
	KindHoldUp:                    true,
	KindListChange:                true,
	KindConnectorChange:           true,
	KindSettings:                  true,
	KindBroadcast:                 true,
	KindNotificationOptionClicked: true,
	KindClosePlugin:               true,
	KindShortConnectorIDs:         true,
}
