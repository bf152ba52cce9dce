package service

import (
	"context"
	"errors"
	"testing"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/payment"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	doc   *config.Document
	loads int
}

func (f *fakeStore) Load() (*config.Document, error) {
	f.loads++
	if f.doc == nil {
		return &config.Document{}, nil
	}
	return f.doc, nil
}

func (f *fakeStore) Save(doc *config.Document) error {
	f.doc = doc
	return nil
}

type fakeAdapter struct {
	calls       int
	lastCreds   payment.Credentials
	lastPayload payment.Payload
	result      *payment.Result
	err         error
}

func (f *fakeAdapter) Name() string { return "payuni" }

func (f *fakeAdapter) MapCreate(input payment.CreateInput) (payment.Payload, error) {
	return payment.Payload{"Amt": input.Amount.String(), "OrderNo": input.OrderID, "PayMethod": input.Method}, nil
}

func (f *fakeAdapter) MapGet(input payment.GetInput) (payment.Payload, error) {
	if input.ID != "" {
		return payment.Payload{"MerTradeNo": input.ID}, nil
	}
	return payment.Payload{"TradeNo": input.TradeNo}, nil
}

func (f *fakeAdapter) MapRefund(input payment.RefundInput) (payment.Payload, error) {
	payload := payment.Payload{"OrderNo": input.ID}
	if input.Amount != nil {
		payload["Amount"] = input.Amount.String()
	}
	return payload, nil
}

func (f *fakeAdapter) record(creds payment.Credentials, payload payment.Payload) (*payment.Result, error) {
	f.calls++
	f.lastCreds = creds
	f.lastPayload = payload
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &payment.Result{OK: true}, nil
}

func (f *fakeAdapter) CreatePayment(_ context.Context, creds payment.Credentials, payload payment.Payload) (*payment.Result, error) {
	return f.record(creds, payload)
}

func (f *fakeAdapter) GetPayment(_ context.Context, creds payment.Credentials, payload payment.Payload) (*payment.Result, error) {
	return f.record(creds, payload)
}

func (f *fakeAdapter) RefundPayment(_ context.Context, creds payment.Credentials, payload payment.Payload) (*payment.Result, error) {
	return f.record(creds, payload)
}

func newTestPaymentService(env config.MapEnv, adapter payment.Adapter) *PaymentService {
	resolver := config.NewResolver(env, &fakeStore{})
	registry := payment.NewRegistry(adapter, payment.Unimplemented("ecpay"))
	return NewPaymentService(resolver, registry, validator.New())
}

func credentialEnv() config.MapEnv {
	return config.MapEnv{
		"PAYUNI_MERCHANT_ID": "MER001",
		"PAYUNI_HASH_KEY":    "12345678901234567890123456789012",
		"PAYUNI_HASH_IV":     "abcdefghijklmnop",
	}
}

func TestGetPaymentRequiresExactlyOneIdentifier(t *testing.T) {
	adapter := &fakeAdapter{}
	// 无任何 provider 配置：校验必须先于解析失败
	svc := newTestPaymentService(config.MapEnv{}, adapter)

	_, err := svc.GetPayment(context.Background(), GetPaymentInput{ID: "A", TradeNo: "B"}, nil)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	_, err = svc.GetPayment(context.Background(), GetPaymentInput{ID: "  "}, nil)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.Zero(t, adapter.calls)
}

func TestGetPaymentPassesResolvedCredentials(t *testing.T) {
	row := payment.NormalizedPayment{Status: "paid", TradeNo: "T1"}
	adapter := &fakeAdapter{result: &payment.Result{OK: true, Payment: &row, Payments: []payment.NormalizedPayment{row}}}
	svc := newTestPaymentService(credentialEnv(), adapter)

	sandbox := true
	got, err := svc.GetPayment(context.Background(), GetPaymentInput{Provider: "payuni", TradeNo: "T1"},
		&config.RuntimeOverride{Sandbox: &sandbox})
	require.NoError(t, err)

	assert.Equal(t, "fetched", got.Status)
	assert.Equal(t, "T1", got.ID)
	assert.Equal(t, "sandbox", got.Environment)
	assert.NotEmpty(t, got.RequestID)
	require.NotNil(t, got.Data)
	assert.Equal(t, "paid", got.Data.Status)

	assert.Equal(t, "MER001", adapter.lastCreds.MerchantID)
	assert.True(t, adapter.lastCreds.Sandbox)
	assert.Equal(t, payment.Payload{"TradeNo": "T1"}, adapter.lastPayload)
}

func TestGetPaymentReadsConfigOnce(t *testing.T) {
	store := &fakeStore{doc: &config.Document{
		DefaultProvider: "payuni",
		Providers: map[string]config.ProviderConfig{
			"payuni": {MerchantID: "MER001", HashKey: "12345678901234567890123456789012", HashIV: "abcdefghijklmnop"},
		},
	}}
	adapter := &fakeAdapter{}
	registry := payment.NewRegistry(adapter)
	svc := NewPaymentService(config.NewResolver(config.MapEnv{}, store), registry, validator.New())

	_, err := svc.GetPayment(context.Background(), GetPaymentInput{ID: "M1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads)
	assert.Equal(t, "MER001", adapter.lastCreds.MerchantID)

	store.loads = 0
	assert.Equal(t, "production", svc.ResolveEnvironment("", nil, nil))
	assert.Equal(t, 1, store.loads)
}

func TestGetPaymentConfigResolutionError(t *testing.T) {
	svc := newTestPaymentService(config.MapEnv{}, &fakeAdapter{})
	_, err := svc.GetPayment(context.Background(), GetPaymentInput{ID: "A"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConfigResolution))
}

func TestGetPaymentNotImplementedProvider(t *testing.T) {
	svc := newTestPaymentService(config.MapEnv{}, &fakeAdapter{})
	_, err := svc.GetPayment(context.Background(), GetPaymentInput{Provider: "ecpay", ID: "A"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotImplemented))
}

func TestCreatePaymentValidation(t *testing.T) {
	adapter := &fakeAdapter{}
	svc := newTestPaymentService(credentialEnv(), adapter)

	cases := map[string]CreatePaymentInput{
		"zero amount":    {Provider: "payuni", Amount: decimal.Zero, Method: "card", OrderID: "O1"},
		"bad method":     {Provider: "payuni", Amount: decimal.NewFromInt(10), Method: "bitcoin", OrderID: "O1"},
		"missing order":  {Provider: "payuni", Amount: decimal.NewFromInt(10), Method: "card"},
		"bad return url": {Provider: "payuni", Amount: decimal.NewFromInt(10), Method: "atm", OrderID: "O1", ReturnURL: "not a url"},
		"bad currency":   {Provider: "payuni", Amount: decimal.NewFromInt(10), Method: "cvs", OrderID: "O1", Currency: "TW1"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePayment(context.Background(), input, nil)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		})
	}
	assert.Zero(t, adapter.calls)
}

func TestCreatePaymentHashesPayloadWithoutSecrets(t *testing.T) {
	adapter := &fakeAdapter{}
	svc := newTestPaymentService(credentialEnv(), adapter)
	input := CreatePaymentInput{Provider: "payuni", Amount: decimal.NewFromInt(100), Method: "card", OrderID: "O1"}

	first, err := svc.CreatePayment(context.Background(), input, nil)
	require.NoError(t, err)
	second, err := svc.CreatePayment(context.Background(), input, nil)
	require.NoError(t, err)

	assert.Equal(t, "created", first.Status)
	assert.Len(t, first.PayloadHash, 64)
	assert.Equal(t, first.PayloadHash, second.PayloadHash)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	assert.Equal(t, "MER001", adapter.lastPayload["MerchantID"])
	assert.Equal(t, false, adapter.lastPayload["Sandbox"])
	assert.NotContains(t, adapter.lastPayload, "HashKey")
	assert.NotContains(t, adapter.lastPayload, "HashIV")
}

func TestCreatePaymentPropagatesAdapterError(t *testing.T) {
	adapter := &fakeAdapter{err: payment.NotImplemented("payuni", "create")}
	svc := newTestPaymentService(credentialEnv(), adapter)
	_, err := svc.CreatePayment(context.Background(),
		CreatePaymentInput{Provider: "payuni", Amount: decimal.NewFromInt(1), Method: "linepay", OrderID: "O1"}, nil)
	assert.True(t, errors.Is(err, apperr.ErrNotImplemented))
}

func TestRefundPaymentAmounts(t *testing.T) {
	adapter := &fakeAdapter{}
	svc := newTestPaymentService(credentialEnv(), adapter)

	got, err := svc.RefundPayment(context.Background(), RefundPaymentInput{Provider: "payuni", ID: "O1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "refunded", got.Status)
	assert.NotContains(t, adapter.lastPayload, "Amount")

	partial := decimal.RequireFromString("12.5")
	_, err = svc.RefundPayment(context.Background(), RefundPaymentInput{Provider: "payuni", ID: "O1", Amount: &partial}, nil)
	require.NoError(t, err)
	assert.Equal(t, "12.5", adapter.lastPayload["Amount"])

	negative := decimal.NewFromInt(-1)
	_, err = svc.RefundPayment(context.Background(), RefundPaymentInput{Provider: "payuni", ID: "O1", Amount: &negative}, nil)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.RefundPayment(context.Background(), RefundPaymentInput{Provider: "payuni"}, nil)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestResolveEnvironment(t *testing.T) {
	env := credentialEnv()
	env["PAID_ENV"] = "production"
	svc := newTestPaymentService(env, &fakeAdapter{})
	assert.Equal(t, "production", svc.ResolveEnvironment("payuni", nil, nil))
	assert.Equal(t, "", svc.ResolveEnvironment("", nil, nil))
}
