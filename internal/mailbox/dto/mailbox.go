package dto

// NotificationBatch is the provider's webhook payload: zero or more
// notification entries.
type NotificationBatch struct {
	Value []Notification `json:"value"`
}

type Notification struct {
	SubscriptionID string       `json:"subscriptionId"`
	ClientState    string       `json:"clientState"`
	ChangeType     string       `json:"changeType"`
	ResourceData   ResourceData `json:"resourceData"`
}

type ResourceData struct {
	ID string `json:"id"`
}

type StartImportRequest struct {
	Range string `json:"range" binding:"required"`
}

type ConnectResponse struct {
	URL string `json:"url"`
}
