package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/validate"
)

// PaymentState is a step of the mobile-money checkout.
type PaymentState string

const (
	PayMethodSelection PaymentState = "method-selection"
	PayOTPRequested    PaymentState = "otp-requested"
	PayProcessing      PaymentState = "processing"
	PayPaid            PaymentState = "paid"
	PayFailed          PaymentState = "failed"
)

// paymentSteps lists the states each step may be entered from. A failed
// attempt can be confirmed again or restarted from method selection.
var paymentSteps = map[PaymentState][]PaymentState{
	PayMethodSelection: {"", PayMethodSelection, PayOTPRequested, PayFailed},
	PayOTPRequested:    {PayMethodSelection, PayOTPRequested, PayFailed},
	PayProcessing:      {PayOTPRequested, PayFailed},
}

// Quote is what the buyer is shown before paying. Shipping is added to the
// paid amount only; the order total is left as it was at checkout.
type Quote struct {
	OrderID  string          `json:"orderId"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	City     string          `json:"city,omitempty"`
}

// PaymentStatus is the buyer-facing view of an attempt.
type PaymentStatus struct {
	OrderID   string       `json:"orderId"`
	State     PaymentState `json:"state"`
	Method    string       `json:"method,omitempty"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"lastError,omitempty"`
}

// Receipt is returned once a payment went through.
type Receipt struct {
	OrderID       string               `json:"orderId"`
	TransactionID string               `json:"transactionId"`
	Method        domain.PaymentMethod `json:"method"`
	Amount        decimal.Decimal      `json:"amount"`
}

type PaymentService struct {
	Orders   *repos.OrderRepo
	Payments *repos.PaymentRepo
	// OTPCode is the one code the simulated operator accepts.
	OTPCode string
	Now     func() time.Time
}

func NewPaymentService(orders *repos.OrderRepo, payments *repos.PaymentRepo, otp string) *PaymentService {
	return &PaymentService{Orders: orders, Payments: payments, OTPCode: otp, Now: time.Now}
}

func statusOf(a repos.PaymentAttempt) PaymentStatus {
	st := PaymentState(a.State)
	if st == "" {
		st = PayMethodSelection
	}
	return PaymentStatus{OrderID: a.OrderID, State: st, Method: a.Method, Attempts: a.Attempts, LastError: a.LastError}
}

// payable loads an order of buyerID that can still be paid.
func (s *PaymentService) payable(ctx context.Context, buyerID, orderID string) (domain.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.BuyerID != buyerID {
		return domain.Order{}, errors.Forbiddenf("order %s", orderID)
	}
	if o.Status != domain.OrderPending {
		return domain.Order{}, errors.Annotatef(ErrInvalidTransition, "order %s is %s", orderID, o.Status)
	}
	return o, nil
}

func (s *PaymentService) attempt(ctx context.Context, buyerID, orderID string) (repos.PaymentAttempt, error) {
	a, ok, err := s.Payments.Get(ctx, orderID)
	if err != nil {
		return repos.PaymentAttempt{}, err
	}
	if !ok {
		a = repos.PaymentAttempt{OrderID: orderID, BuyerID: buyerID}
	}
	return a, nil
}

func step(a *repos.PaymentAttempt, to PaymentState) error {
	from := PaymentState(a.State)
	if !slices.Contains(paymentSteps[to], from) {
		return errors.Annotatef(ErrInvalidTransition, "payment %s -> %s", orDefault(from), to)
	}
	a.State = string(to)
	return nil
}

func orDefault(st PaymentState) PaymentState {
	if st == "" {
		return PayMethodSelection
	}
	return st
}

func (s *PaymentService) Quote(ctx context.Context, buyerID, orderID, city string) (Quote, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return Quote{}, err
	}
	if o.BuyerID != buyerID {
		return Quote{}, errors.Forbiddenf("order %s", orderID)
	}
	ship := ShippingCost(city)
	return Quote{OrderID: o.ID, Subtotal: o.TotalAmount, Shipping: ship, Total: o.TotalAmount.Add(ship), City: city}, nil
}

func (s *PaymentService) Status(ctx context.Context, buyerID, orderID string) (PaymentStatus, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if o.BuyerID != buyerID {
		return PaymentStatus{}, errors.Forbiddenf("order %s", orderID)
	}
	a, err := s.attempt(ctx, buyerID, orderID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if o.PaymentStatus == "paid" {
		a.State = string(PayPaid)
	}
	return statusOf(a), nil
}

// SelectMethod picks the mobile-money operator. It can be changed until
// the payment is confirmed.
func (s *PaymentService) SelectMethod(ctx context.Context, buyerID, orderID string, m domain.PaymentMethod) (PaymentStatus, error) {
	if !m.Valid() {
		return PaymentStatus{}, errors.NotValidf("payment method %q", m)
	}
	if _, err := s.payable(ctx, buyerID, orderID); err != nil {
		return PaymentStatus{}, err
	}
	a, err := s.attempt(ctx, buyerID, orderID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if err := step(&a, PayMethodSelection); err != nil {
		return PaymentStatus{}, err
	}
	a.Method = string(m)
	a.LastError = ""
	if err := s.Payments.Save(ctx, a); err != nil {
		return PaymentStatus{}, err
	}
	return statusOf(a), nil
}

// RequestOTP asks the (simulated) operator to text a code to phone. The
// number has to be typed twice.
func (s *PaymentService) RequestOTP(ctx context.Context, buyerID, orderID, phone, confirm string) (PaymentStatus, error) {
	if phone == "" || confirm == "" {
		return PaymentStatus{}, errors.NotValidf("empty phone number")
	}
	p, ok := validate.Phone(phone)
	if !ok {
		return PaymentStatus{}, errors.NotValidf("phone number %q", phone)
	}
	if c, _ := validate.Phone(confirm); c != p {
		return PaymentStatus{}, errors.NotValidf("phone numbers do not match")
	}
	if _, err := s.payable(ctx, buyerID, orderID); err != nil {
		return PaymentStatus{}, err
	}
	a, err := s.attempt(ctx, buyerID, orderID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if a.Method == "" {
		return PaymentStatus{}, errors.Annotatef(ErrInvalidTransition, "no payment method selected")
	}
	if err := step(&a, PayOTPRequested); err != nil {
		return PaymentStatus{}, err
	}
	a.Phone = p
	if err := s.Payments.Save(ctx, a); err != nil {
		return PaymentStatus{}, err
	}
	log.Info(nil, "payment.otp.sent", map[string]any{"order_id": orderID, "method": a.Method, "phone": maskPhone(p)})
	return statusOf(a), nil
}

// Confirm checks the one-time code and, when accepted, records the payment
// on the order and marks its commissions paid. A rejected code leaves the
// order untouched and the attempt in the failed state, from which the
// buyer may try again.
func (s *PaymentService) Confirm(ctx context.Context, buyerID, orderID, code string, ship domain.ShippingAddress) (Receipt, error) {
	code, ok := validate.OTP(code)
	if !ok {
		return Receipt{}, errors.NotValidf("one-time code")
	}
	if err := validateShipping(&ship); err != nil {
		return Receipt{}, err
	}
	o, err := s.payable(ctx, buyerID, orderID)
	if err != nil {
		return Receipt{}, err
	}
	a, err := s.attempt(ctx, buyerID, orderID)
	if err != nil {
		return Receipt{}, err
	}
	if err := step(&a, PayProcessing); err != nil {
		return Receipt{}, err
	}
	a.Attempts++
	if err := s.Payments.Save(ctx, a); err != nil {
		return Receipt{}, err
	}

	if code != s.OTPCode {
		return Receipt{}, s.fail(ctx, a, ErrInvalidOTP, ErrInvalidOTP.Error())
	}

	rec := Receipt{
		OrderID:       o.ID,
		TransactionID: fmt.Sprintf("TXN%d", s.Now().UnixMilli()),
		Method:        domain.PaymentMethod(a.Method),
		Amount:        o.TotalAmount.Add(ShippingCost(ship.City)),
	}
	if err := s.Orders.ConfirmPayment(ctx, o.ID, repos.Payment{
		Method:        rec.Method,
		TransactionID: rec.TransactionID,
		PaidAmount:    rec.Amount,
		Shipping:      ship,
	}); err != nil {
		return Receipt{}, s.fail(ctx, a, err, "payment could not be recorded")
	}
	a.State = string(PayPaid)
	a.LastError = ""
	if err := s.Payments.Save(ctx, a); err != nil {
		log.Error(nil, "payment.state.save", err, map[string]any{"order_id": o.ID})
	}
	return rec, nil
}

// fail parks the attempt in the failed state and returns cause. reason is
// what the buyer is shown.
func (s *PaymentService) fail(ctx context.Context, a repos.PaymentAttempt, cause error, reason string) error {
	a.State = string(PayFailed)
	a.LastError = reason
	if err := s.Payments.Save(ctx, a); err != nil {
		log.Error(nil, "payment.state.save", err, map[string]any{"order_id": a.OrderID})
	}
	return cause
}

// Cancel abandons the payment and cancels the unpaid order, which puts the
// units taken at checkout back in stock.
func (s *PaymentService) Cancel(ctx context.Context, buyerID, orderID string) error {
	if _, err := s.payable(ctx, buyerID, orderID); err != nil {
		return err
	}
	if err := s.Orders.UpdateStatus(ctx, orderID, domain.OrderPending, domain.OrderCancelled); err != nil {
		if errors.Is(err, repos.ErrStaleStatus) {
			return errors.WithType(err, ErrInvalidTransition)
		}
		return err
	}
	return s.Payments.Delete(ctx, orderID)
}

func validateShipping(a *domain.ShippingAddress) error {
	var ok bool
	if a.FullName, ok = validate.Text(a.FullName, 100); !ok {
		return errors.NotValidf("shipping full name")
	}
	if a.Address, ok = validate.Text(a.Address, 200); !ok {
		return errors.NotValidf("shipping address")
	}
	if a.City, ok = validate.Text(a.City, 50); !ok {
		return errors.NotValidf("shipping city")
	}
	if a.PostalCode, ok = validate.Optional(a.PostalCode, 20); !ok {
		return errors.NotValidf("postal code")
	}
	if a.DeliveryNotes, ok = validate.Optional(a.DeliveryNotes, 500); !ok {
		return errors.NotValidf("delivery notes")
	}
	return nil
}

func maskPhone(p string) string {
	if len(p) < 4 {
		return p
	}
	return p[:4] + "****" + p[len(p)-2:]
}
