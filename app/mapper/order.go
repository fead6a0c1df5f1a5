package mapper

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/pricing"
	"github.com/vibast-solutions/ms-go-sponsorships/app/repository"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
	"github.com/vibast-solutions/ms-go-sponsorships/app/types"
)

func OrderToResponse(item *entity.Order) *types.OrderResponse {
	if item == nil {
		return nil
	}

	return &types.OrderResponse{
		OrderId:           item.OrderID,
		RequestId:         item.RequestID,
		CallerService:     item.CallerService,
		UserId:            derefString(item.UserID),
		Package:           item.PackageCode,
		Provider:          item.Provider,
		Method:            item.Method,
		Amount:            money(item.Amount),
		OriginalAmount:    money(item.OriginalAmount),
		DiscountCode:      derefString(item.DiscountCode),
		DiscountAmount:    money(item.DiscountAmount),
		Fee:               money(item.Fee),
		Currency:          item.Currency,
		Status:            string(item.Status),
		FailureReason:     derefString(item.FailureReason),
		PaymentUrl:        derefString(item.PaymentURL),
		ProviderReference: derefString(item.ProviderReference),
		CustomerName:      derefString(item.CustomerName),
		CustomerEmail:     derefString(item.CustomerEmail),
		Message:           derefString(item.Message),
		ExpiresAt:         formatTime(item.ExpiresAt),
		PaidAt:            formatTimePtr(item.PaidAt),
		CreatedAt:         formatTime(item.CreatedAt),
		UpdatedAt:         formatTime(item.UpdatedAt),
	}
}

func OrdersToResponse(items []*entity.Order) []*types.OrderResponse {
	result := make([]*types.OrderResponse, 0, len(items))
	for _, item := range items {
		result = append(result, OrderToResponse(item))
	}
	return result
}

func CheckoutToResponse(item *entity.Checkout) *types.CheckoutResponse {
	if item == nil {
		return nil
	}
	return &types.CheckoutResponse{
		PaymentUrl:            item.PaymentURL,
		FormFields:            item.FormFields,
		QrCode:                item.QRCode,
		Network:               item.Network,
		Address:               item.Address,
		TotalAmount:           item.TotalAmount,
		RequiredConfirmations: int32(item.RequiredConfirmations),
		Instructions:          item.Instructions,
		ExpiresAt:             formatTime(item.ExpiresAt),
	}
}

func CreatePaymentToResponse(result *service.CreatePaymentResult) *types.CreatePaymentResponse {
	if result == nil {
		return nil
	}
	return &types.CreatePaymentResponse{
		Order:    OrderToResponse(result.Order),
		Checkout: CheckoutToResponse(result.Checkout),
	}
}

func TransactionToResponse(item *entity.Transaction) *types.TransactionResponse {
	if item == nil {
		return nil
	}
	return &types.TransactionResponse{
		TransactionId:  item.TransactionID,
		Type:           string(item.Type),
		Provider:       item.Provider,
		Amount:         money(item.Amount),
		Fee:            money(item.Fee),
		Status:         string(item.Status),
		ProviderTxnId:  derefString(item.ProviderTxnID),
		ReferenceTxnId: derefString(item.ReferenceTxnID),
		ProcessedAt:    formatTimePtr(item.ProcessedAt),
		CreatedAt:      formatTime(item.CreatedAt),
	}
}

// OrderDetailsToResponse includes the checkout only while the order is open.
func OrderDetailsToResponse(details *service.OrderDetails) *types.OrderDetailsResponse {
	if details == nil {
		return nil
	}
	resp := &types.OrderDetailsResponse{
		Order:        OrderToResponse(details.Order),
		Transactions: make([]*types.TransactionResponse, 0, len(details.Transactions)),
	}
	if details.Order != nil && !details.Order.Status.IsTerminal() {
		resp.Checkout = CheckoutToResponse(details.Order.Checkout())
	}
	for _, txn := range details.Transactions {
		resp.Transactions = append(resp.Transactions, TransactionToResponse(txn))
	}
	return resp
}

func PackagesToResponse(items []pricing.Package) *types.ListPackagesResponse {
	resp := &types.ListPackagesResponse{Packages: make([]*types.PackageResponse, 0, len(items))}
	for _, item := range items {
		resp.Packages = append(resp.Packages, &types.PackageResponse{
			Code:           item.Code,
			Name:           item.Name,
			Amount:         money(item.Amount),
			OriginalAmount: money(item.OriginalAmount),
			Description:    item.Description,
			Benefits:       item.Benefits,
		})
	}
	return resp
}

// MethodsToResponse omits fee and total when no amount was quoted.
func MethodsToResponse(items []service.MethodQuote, amount decimal.Decimal) *types.ListMethodsResponse {
	resp := &types.ListMethodsResponse{Methods: make([]*types.MethodResponse, 0, len(items))}
	for _, item := range items {
		method := &types.MethodResponse{
			Provider:       item.Provider,
			ProviderName:   item.ProviderName,
			Method:         item.Method.Code,
			Name:           item.Method.Name,
			FeeRate:        item.Method.FeeRate.String(),
			MinAmount:      money(item.Method.MinAmount),
			MaxAmount:      money(item.Method.MaxAmount),
			Currency:       item.Method.Currency,
			ProcessingTime: item.Method.ProcessingTime,
		}
		if amount.IsPositive() {
			method.Fee = money(item.Fee)
			method.Total = money(item.Total)
		}
		resp.Methods = append(resp.Methods, method)
	}
	return resp
}

func QuoteToResponse(item *pricing.Quote) *types.DiscountQuoteResponse {
	if item == nil {
		return nil
	}
	return &types.DiscountQuoteResponse{
		Code:     item.Code,
		Original: money(item.Original),
		Discount: money(item.Discount),
		Final:    money(item.Final),
	}
}

func StatsToResponse(stats *repository.OrderStats) *types.StatsResponse {
	if stats == nil {
		return nil
	}
	revenue := decimal.Zero
	for _, bucket := range stats.ByStatus {
		revenue = revenue.Add(bucket.Revenue)
	}
	return &types.StatsResponse{
		From:       formatTimePtr(stats.Filter.From),
		To:         formatTimePtr(stats.Filter.To),
		Revenue:    money(revenue),
		ByStatus:   buckets(stats.ByStatus),
		ByProvider: buckets(stats.ByProvider),
		ByMethod:   buckets(stats.ByMethod),
		ByPackage:  buckets(stats.ByPackage),
	}
}

func buckets(in map[string]repository.StatsBucket) map[string]types.StatsBucketResponse {
	out := make(map[string]types.StatsBucketResponse, len(in))
	for key, bucket := range in {
		out[key] = types.StatsBucketResponse{
			Count:     bucket.Count,
			Total:     money(bucket.Total),
			Completed: bucket.Completed,
			Revenue:   money(bucket.Revenue),
		}
	}
	return out
}

func money(v decimal.Decimal) string {
	return v.StringFixed(pricing.MoneyPlaces)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return formatTime(*v)
}
