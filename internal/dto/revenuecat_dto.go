package dto

type RevenueCatWebhookRequest struct {
	ApiVersion string               `json:"api_version"`
	Event      *RevenueCatEventBody `json:"event"`
}

type RevenueCatEventBody struct {
	Type                  string   `json:"type"`
	AppUserId             string   `json:"app_user_id"`
	ProductId             string   `json:"product_id"`
	EntitlementIds        []string `json:"entitlement_ids"`
	TransactionId         *string  `json:"transaction_id"`
	OriginalTransactionId *string  `json:"original_transaction_id"`
	Store                 string   `json:"store"`
	Environment           string   `json:"environment"`
}

type RevenueCatWebhookResponse struct {
	Ok             bool     `json:"ok"`
	Ignored        bool     `json:"ignored,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	Granted        bool     `json:"granted,omitempty"`
	Type           string   `json:"type"`
	EntitlementIds []string `json:"entitlementIds,omitempty"`
	AppUserId      *string  `json:"appUserId"`
	Tx             string   `json:"tx,omitempty"`
	Platform       string   `json:"platform,omitempty"`
}
