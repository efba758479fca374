package paddle

// Request and response payloads for the creation endpoints. Field names
// follow the billing API's wire format; optional fields carry omitempty so
// absent values are dropped from the JSON body.

// ExternalData carries a caller-supplied identifier in the resource's
// custom data, used for downstream reconciliation.
type ExternalData struct {
	ExternalID string `json:"external_id"`
}

// Item is a single line item priced by a price id.
type Item struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

// BillingPeriod bounds a subscription period with UTC timestamps.
type BillingPeriod struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// Contact is a named email contact attached to a business.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CustomerRequest creates a customer.
type CustomerRequest struct {
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	Locale     string        `json:"locale,omitempty"`
	CustomData *ExternalData `json:"custom_data,omitempty"`
}

// AddressRequest creates an address under an existing customer.
type AddressRequest struct {
	CountryCode string        `json:"country_code"`
	FirstLine   string        `json:"first_line,omitempty"`
	SecondLine  string        `json:"second_line,omitempty"`
	City        string        `json:"city,omitempty"`
	Region      string        `json:"region,omitempty"`
	PostalCode  string        `json:"postal_code,omitempty"`
	Description string        `json:"description,omitempty"`
	CustomData  *ExternalData `json:"custom_data,omitempty"`
}

// BusinessRequest creates a business under an existing customer.
type BusinessRequest struct {
	Name          string        `json:"name"`
	CompanyNumber string        `json:"company_number,omitempty"`
	TaxIdentifier string        `json:"tax_identifier,omitempty"`
	Contacts      []Contact     `json:"contacts,omitempty"`
	CustomData    *ExternalData `json:"custom_data,omitempty"`
}

// SubscriptionRequest creates a zero-amount subscription anchoring the
// customer, address, and optional business at the zero-dollar price.
type SubscriptionRequest struct {
	CustomerID           string        `json:"customer_id"`
	AddressID            string        `json:"address_id"`
	BusinessID           string        `json:"business_id,omitempty"`
	Items                []Item        `json:"items"`
	CurrentBillingPeriod BillingPeriod `json:"current_billing_period"`
}

// TransactionCustomData carries the real subscription price id as custom
// metadata on the transaction.
type TransactionCustomData struct {
	SubscriptionPriceID string `json:"subscription_price_id"`
}

// TransactionRequest creates the transaction that finalizes one import row.
type TransactionRequest struct {
	CustomerID     string                 `json:"customer_id"`
	AddressID      string                 `json:"address_id"`
	BusinessID     string                 `json:"business_id,omitempty"`
	SubscriptionID string                 `json:"subscription_id"`
	Items          []Item                 `json:"items"`
	BillingPeriod  BillingPeriod          `json:"billing_period"`
	CustomData     *TransactionCustomData `json:"custom_data,omitempty"`
}

// envelope is the success response wrapper; every creation endpoint returns
// the new resource under "data" with an opaque id.
type envelope struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// errorEnvelope is the structured error payload returned on failure.
type errorEnvelope struct {
	Error struct {
		Type   string `json:"type"`
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"error"`
}
