package mpesa

// STKPushRequest is the Daraja Lipa Na M-Pesa Online request body.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"` // The gateway expects whole units
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acknowledgement for an STK push.
// A zero ResponseCode means the prompt was pushed to the payer's device;
// it says nothing about whether the payer will confirm.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// CallbackPayload is the asynchronous result the gateway posts back after
// the payer responds to (or ignores) the prompt.
type CallbackPayload struct {
	Body struct {
		STKCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the parsed, flattened callback.
type CallbackResult struct {
	Success           bool
	ResultCode        int
	ResultDescription string
	CheckoutRequestID string
	ReceiptNumber     string
	Amount            float64
	PhoneNumber       string
}

// ParseCallback flattens a raw callback payload into a CallbackResult.
func ParseCallback(payload *CallbackPayload) CallbackResult {
	cb := payload.Body.STKCallback
	result := CallbackResult{
		Success:           cb.ResultCode == 0,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
		CheckoutRequestID: cb.CheckoutRequestID,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				result.ReceiptNumber = v
			}
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				result.Amount = v
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case string:
				result.PhoneNumber = v
			case float64:
				result.PhoneNumber = formatMSISDN(v)
			}
		}
	}
	return result
}
