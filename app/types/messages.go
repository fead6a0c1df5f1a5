package types

// Request and response messages shared by the HTTP and gRPC transports. The
// getters are nil safe so services can accept narrow interfaces.

type CreatePaymentRequest struct {
	RequestId     string `json:"request_id"`
	CallerService string `json:"caller_service"`
	UserId        string `json:"user_id,omitempty"`
	Package       string `json:"package"`
	Amount        string `json:"amount,omitempty"`
	DiscountCode  string `json:"discount_code,omitempty"`
	Provider      string `json:"provider"`
	Method        string `json:"method"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (r *CreatePaymentRequest) GetRequestId() string {
	if r == nil {
		return ""
	}
	return r.RequestId
}

func (r *CreatePaymentRequest) GetCallerService() string {
	if r == nil {
		return ""
	}
	return r.CallerService
}

func (r *CreatePaymentRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

func (r *CreatePaymentRequest) GetPackage() string {
	if r == nil {
		return ""
	}
	return r.Package
}

func (r *CreatePaymentRequest) GetAmount() string {
	if r == nil {
		return ""
	}
	return r.Amount
}

func (r *CreatePaymentRequest) GetDiscountCode() string {
	if r == nil {
		return ""
	}
	return r.DiscountCode
}

func (r *CreatePaymentRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

func (r *CreatePaymentRequest) GetMethod() string {
	if r == nil {
		return ""
	}
	return r.Method
}

func (r *CreatePaymentRequest) GetCustomerName() string {
	if r == nil {
		return ""
	}
	return r.CustomerName
}

func (r *CreatePaymentRequest) GetCustomerEmail() string {
	if r == nil {
		return ""
	}
	return r.CustomerEmail
}

func (r *CreatePaymentRequest) GetCustomerPhone() string {
	if r == nil {
		return ""
	}
	return r.CustomerPhone
}

func (r *CreatePaymentRequest) GetMessage() string {
	if r == nil {
		return ""
	}
	return r.Message
}

type GetOrderRequest struct {
	OrderId string `json:"order_id"`
}

func (r *GetOrderRequest) GetOrderId() string {
	if r == nil {
		return ""
	}
	return r.OrderId
}

type ListOrdersRequest struct {
	UserId   string `json:"user_id,omitempty"`
	Provider string `json:"provider,omitempty"`
	Package  string `json:"package,omitempty"`
	Status   string `json:"status,omitempty"`
	Limit    int32  `json:"limit,omitempty"`
	Offset   int32  `json:"offset,omitempty"`
}

func (r *ListOrdersRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

func (r *ListOrdersRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

func (r *ListOrdersRequest) GetPackage() string {
	if r == nil {
		return ""
	}
	return r.Package
}

func (r *ListOrdersRequest) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}

func (r *ListOrdersRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListOrdersRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type CancelOrderRequest struct {
	OrderId string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

func (r *CancelOrderRequest) GetOrderId() string {
	if r == nil {
		return ""
	}
	return r.OrderId
}

func (r *CancelOrderRequest) GetReason() string {
	if r == nil {
		return ""
	}
	return r.Reason
}

// RefundOrderRequest records a refund. Execute asks the provider to move the
// money as well.
type RefundOrderRequest struct {
	OrderId string `json:"order_id"`
	Amount  string `json:"amount,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Execute bool   `json:"execute,omitempty"`
}

func (r *RefundOrderRequest) GetOrderId() string {
	if r == nil {
		return ""
	}
	return r.OrderId
}

func (r *RefundOrderRequest) GetAmount() string {
	if r == nil {
		return ""
	}
	return r.Amount
}

func (r *RefundOrderRequest) GetReason() string {
	if r == nil {
		return ""
	}
	return r.Reason
}

func (r *RefundOrderRequest) GetExecute() bool {
	if r == nil {
		return false
	}
	return r.Execute
}

type ListMethodsRequest struct {
	Amount string `json:"amount,omitempty"`
}

func (r *ListMethodsRequest) GetAmount() string {
	if r == nil {
		return ""
	}
	return r.Amount
}

type QuoteDiscountRequest struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

func (r *QuoteDiscountRequest) GetCode() string {
	if r == nil {
		return ""
	}
	return r.Code
}

func (r *QuoteDiscountRequest) GetAmount() string {
	if r == nil {
		return ""
	}
	return r.Amount
}

// StatsRequest bounds statistics by order creation. Each bound is a date or
// an RFC 3339 timestamp; both are optional.
type StatsRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func (r *StatsRequest) GetFrom() string {
	if r == nil {
		return ""
	}
	return r.From
}

func (r *StatsRequest) GetTo() string {
	if r == nil {
		return ""
	}
	return r.To
}

type HealthRequest struct{}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type OrderResponse struct {
	OrderId           string `json:"order_id"`
	RequestId         string `json:"request_id"`
	CallerService     string `json:"caller_service"`
	UserId            string `json:"user_id,omitempty"`
	Package           string `json:"package"`
	Provider          string `json:"provider"`
	Method            string `json:"method"`
	Amount            string `json:"amount"`
	OriginalAmount    string `json:"original_amount"`
	DiscountCode      string `json:"discount_code,omitempty"`
	DiscountAmount    string `json:"discount_amount"`
	Fee               string `json:"fee"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	FailureReason     string `json:"failure_reason,omitempty"`
	PaymentUrl        string `json:"payment_url,omitempty"`
	ProviderReference string `json:"provider_reference,omitempty"`
	CustomerName      string `json:"customer_name,omitempty"`
	CustomerEmail     string `json:"customer_email,omitempty"`
	Message           string `json:"message,omitempty"`
	ExpiresAt         string `json:"expires_at"`
	PaidAt            string `json:"paid_at,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type CheckoutResponse struct {
	PaymentUrl            string            `json:"payment_url,omitempty"`
	FormFields            map[string]string `json:"form_fields,omitempty"`
	QrCode                string            `json:"qr_code,omitempty"`
	Network               string            `json:"network,omitempty"`
	Address               string            `json:"address,omitempty"`
	TotalAmount           string            `json:"total_amount,omitempty"`
	RequiredConfirmations int32             `json:"required_confirmations,omitempty"`
	Instructions          []string          `json:"instructions,omitempty"`
	ExpiresAt             string            `json:"expires_at"`
}

type CreatePaymentResponse struct {
	Order    *OrderResponse    `json:"order"`
	Checkout *CheckoutResponse `json:"checkout,omitempty"`
}

type TransactionResponse struct {
	TransactionId  string `json:"transaction_id"`
	Type           string `json:"type"`
	Provider       string `json:"provider"`
	Amount         string `json:"amount"`
	Fee            string `json:"fee"`
	Status         string `json:"status"`
	ProviderTxnId  string `json:"provider_txn_id,omitempty"`
	ReferenceTxnId string `json:"reference_txn_id,omitempty"`
	ProcessedAt    string `json:"processed_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type OrderDetailsResponse struct {
	Order        *OrderResponse         `json:"order"`
	Checkout     *CheckoutResponse      `json:"checkout,omitempty"`
	Transactions []*TransactionResponse `json:"transactions"`
}

type ListOrdersResponse struct {
	Orders []*OrderResponse `json:"orders"`
}

type PackageResponse struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Amount         string   `json:"amount"`
	OriginalAmount string   `json:"original_amount"`
	Description    string   `json:"description"`
	Benefits       []string `json:"benefits"`
}

type ListPackagesResponse struct {
	Packages []*PackageResponse `json:"packages"`
}

type MethodResponse struct {
	Provider       string `json:"provider"`
	ProviderName   string `json:"provider_name"`
	Method         string `json:"method"`
	Name           string `json:"name"`
	FeeRate        string `json:"fee_rate"`
	MinAmount      string `json:"min_amount"`
	MaxAmount      string `json:"max_amount"`
	Currency       string `json:"currency,omitempty"`
	ProcessingTime string `json:"processing_time,omitempty"`
	Fee            string `json:"fee,omitempty"`
	Total          string `json:"total,omitempty"`
}

type ListMethodsResponse struct {
	Methods []*MethodResponse `json:"methods"`
}

type DiscountQuoteResponse struct {
	Code     string `json:"code"`
	Original string `json:"original_amount"`
	Discount string `json:"discount_amount"`
	Final    string `json:"final_amount"`
}

type StatsBucketResponse struct {
	Count     int64  `json:"count"`
	Total     string `json:"total"`
	Completed int64  `json:"completed"`
	Revenue   string `json:"revenue"`
}

type StatsResponse struct {
	From       string                         `json:"from,omitempty"`
	To         string                         `json:"to,omitempty"`
	Revenue    string                         `json:"revenue"`
	ByStatus   map[string]StatsBucketResponse `json:"by_status"`
	ByProvider map[string]StatsBucketResponse `json:"by_provider"`
	ByMethod   map[string]StatsBucketResponse `json:"by_method"`
	ByPackage  map[string]StatsBucketResponse `json:"by_package"`
}
