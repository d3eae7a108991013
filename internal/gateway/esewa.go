package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/config"
)

// outboundSignedFields is the provider-specified field list signed on the
// redirect form, in this exact order.
const outboundSignedFields = "total_amount,transaction_uuid,product_code"

// FormatAmount is the single canonical amount formatter: two decimal places,
// no thousands separators. The same string appears in the form payload and in
// the signature input, so every amount that reaches the gateway goes through
// here.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseAmount parses a gateway amount string, stripping the thousands
// separators the gateway inserts into callback payloads.
func ParseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// RedirectPayload is the set of form fields posted to the gateway.
type RedirectPayload struct {
	FormURL          string
	Amount           string
	TotalAmount      string
	TransactionUUID  string
	ProductCode      string
	SuccessURL       string
	FailureURL       string
	SignedFieldNames string
	Signature        string
	ServiceCharge    string
	DeliveryCharge   string
	TaxAmount        string
}

// Builder constructs signed redirect payloads for the gateway.
type Builder struct {
	cfg config.GatewayConfig
}

// NewBuilder creates a redirect payload builder.
func NewBuilder(cfg config.GatewayConfig) *Builder {
	return &Builder{cfg: cfg}
}

// BuildRedirect assembles and signs the redirect payload for one payment
// attempt. Both return URLs encode the order id, the amount and a truncated
// reference derived from the transaction uuid.
func (b *Builder) BuildRedirect(orderID int64, amount float64, transactionUUID string) RedirectPayload {
	formatted := FormatAmount(amount)

	ref := "ESEWA_REF_" + transactionUUID
	if len(transactionUUID) >= 8 {
		ref = "ESEWA_REF_" + transactionUUID[:8]
	}

	payload := RedirectPayload{
		FormURL:          b.cfg.FormURL,
		Amount:           formatted,
		TotalAmount:      formatted,
		TransactionUUID:  transactionUUID,
		ProductCode:      b.cfg.MerchantCode,
		SuccessURL:       b.returnURL("success", orderID, formatted, ref),
		FailureURL:       b.returnURL("failed", orderID, formatted, ref),
		SignedFieldNames: outboundSignedFields,
		ServiceCharge:    "0",
		DeliveryCharge:   "0",
		TaxAmount:        "0",
	}

	payload.Signature = SignFields([]Field{
		{Name: "total_amount", Value: payload.TotalAmount},
		{Name: "transaction_uuid", Value: payload.TransactionUUID},
		{Name: "product_code", Value: payload.ProductCode},
	}, b.cfg.SecretKey)

	return payload
}

func (b *Builder) returnURL(status string, orderID int64, amount, ref string) string {
	q := url.Values{}
	q.Set("status", status)
	q.Set("oid", strconv.FormatInt(orderID, 10))
	q.Set("amt", amount)
	q.Set("refId", ref)
	return b.cfg.ReturnBaseURL + "?" + q.Encode()
}

// HTMLForm renders the payload as an auto-submitting HTML form.
func (p RedirectPayload) HTMLForm() string {
	var sb strings.Builder
	sb.WriteString("<form id='esewaForm' action='" + p.FormURL + "' method='POST'>")
	for _, f := range []Field{
		{Name: "amount", Value: p.Amount},
		{Name: "total_amount", Value: p.TotalAmount},
		{Name: "transaction_uuid", Value: p.TransactionUUID},
		{Name: "product_code", Value: p.ProductCode},
		{Name: "success_url", Value: p.SuccessURL},
		{Name: "failure_url", Value: p.FailureURL},
		{Name: "signed_field_names", Value: p.SignedFieldNames},
		{Name: "signature", Value: p.Signature},
		{Name: "product_service_charge", Value: p.ServiceCharge},
		{Name: "product_delivery_charge", Value: p.DeliveryCharge},
		{Name: "tax_amount", Value: p.TaxAmount},
	} {
		fmt.Fprintf(&sb, "<input type='hidden' name='%s' value='%s'>", f.Name, f.Value)
	}
	sb.WriteString("</form>")
	sb.WriteString("<script>document.getElementById('esewaForm').submit();</script>")
	return sb.String()
}

// SuccessPayload is the decoded base64 JSON body of a success callback.
// TotalAmount keeps the gateway's formatting; use ParseAmount to compare.
type SuccessPayload struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// DecodeSuccessPayload decodes and parses the base64 JSON callback data.
// Malformed data is a gateway protocol error, not a payment failure.
func DecodeSuccessPayload(data string) (*SuccessPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		// Some gateway redirects arrive URL-safe encoded.
		raw, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return nil, apperr.NewGatewayProtocolError("callback data is not valid base64: %v", err)
		}
	}

	var payload SuccessPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperr.NewGatewayProtocolError("callback data is not valid JSON: %v", err)
	}

	if payload.TransactionCode == "" || payload.Signature == "" {
		return nil, apperr.NewGatewayProtocolError("callback data is missing transaction_code or signature")
	}

	return &payload, nil
}

// VerifySignature recomputes the inbound signature over the fixed inbound
// field order and compares it with the payload's own. The amount is
// comma-stripped before entering the signature input, matching what the
// gateway signs.
func (p *SuccessPayload) VerifySignature(secret string) bool {
	amount := strings.ReplaceAll(p.TotalAmount, ",", "")
	fields := []Field{
		{Name: "transaction_code", Value: p.TransactionCode},
		{Name: "status", Value: p.Status},
		{Name: "total_amount", Value: amount},
		{Name: "transaction_uuid", Value: p.TransactionUUID},
		{Name: "product_code", Value: p.ProductCode},
		{Name: "signed_field_names", Value: p.SignedFieldNames},
	}
	return Verify(fields, secret, p.Signature)
}

// IsComplete reports whether the payload's own status marks the transaction
// complete. Signature validity proves authenticity, not success; both checks
// are required.
func (p *SuccessPayload) IsComplete() bool {
	return strings.EqualFold(p.Status, "COMPLETE")
}
