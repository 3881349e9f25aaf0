package dto

// CreatePaymentRequest is the request body for payment creation.
type CreatePaymentRequest struct {
	ReferenceID string `json:"reference_id" binding:"required,max=100"`
	Amount      string `json:"amount" binding:"required,max=40"`
	Blockchain  string `json:"blockchain" binding:"required"`
	Description string `json:"description,omitempty" binding:"max=500"`
}

// PaymentResponse is the public projection of a payment.
type PaymentResponse struct {
	ID               string  `json:"id"`
	Blockchain       string  `json:"blockchain"`
	ExpectedAmount   string  `json:"expected_amount"`
	Address          string  `json:"address"`
	PaymentURI       string  `json:"payment_uri,omitempty"`
	Status           string  `json:"status"`
	Confirmations    uint64  `json:"confirmations"`
	ReceivedAmount   string  `json:"received_amount,omitempty"`
	TxHash           string  `json:"tx_hash,omitempty"`
	ForwardTxHash    string  `json:"forward_tx_hash,omitempty"`
	CommissionAmount string  `json:"commission_amount,omitempty"`
	MerchantAmount   string  `json:"merchant_amount,omitempty"`
	FailureReason    *string `json:"failure_reason,omitempty"`
	Description      string  `json:"description,omitempty"`
	CreatedAt        string  `json:"created_at"`
	ExpiresAt        string  `json:"expires_at"`
	ForwardedAt      *string `json:"forwarded_at,omitempty"`
}

// AttemptResponse is one row of the webhook delivery audit log.
type AttemptResponse struct {
	ID            string  `json:"id"`
	EventType     string  `json:"event_type"`
	URL           string  `json:"url"`
	AttemptNumber int     `json:"attempt_number"`
	Success       bool    `json:"success"`
	StatusCode    *int    `json:"status_code,omitempty"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at"`
}
