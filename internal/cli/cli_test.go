package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/payment/payuni"
	"github.com/paid-tw/paid/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHashKey = "12345678901234567890123456789012"
	testHashIV  = "abcdefghijklmnop"
)

type testApp struct {
	app   *App
	out   *bytes.Buffer
	err   *bytes.Buffer
	store *config.FileStore
}

func newTestApp(t *testing.T, env config.MapEnv, gatewayURL string) *testApp {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	store := config.NewFileStore(path)
	settings := &config.Settings{}
	settings.Gateway.PayuniSandboxURL = gatewayURL
	settings.Gateway.PayuniProductionURL = gatewayURL

	container := provider.NewContainer(provider.Options{
		Settings:   settings,
		Env:        env,
		Store:      store,
		DotenvKeys: []string{"PAYUNI_HASH_KEY"},
	})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testApp{
		app: &App{
			Container:  container,
			ConfigPath: path,
			Out:        out,
			Err:        errOut,
			Now:        func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
		},
		out:   out,
		err:   errOut,
		store: store,
	}
}

func (a *testApp) run(args ...string) int {
	return Execute(context.Background(), a.app, args)
}

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope), buf.String())
	return envelope
}

func payuniEnv() config.MapEnv {
	return config.MapEnv{
		"PAYUNI_MERCHANT_ID":    "MER001",
		"PAYUNI_HASH_KEY":       testHashKey,
		"PAYUNI_HASH_IV":        testHashIV,
		"PAYUNI_SANDBOX":        "true",
		"PAID_DEFAULT_PROVIDER": "payuni",
	}
}

func newPayuniGateway(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	codec, err := payuni.NewCodec(testHashKey, testHashIV)
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		plaintext, err := codec.Open(r.PostForm.Get("EncryptInfo"), r.PostForm.Get("HashInfo"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if bytes.Contains([]byte(plaintext), []byte("MerTradeNo=MISSING")) {
			_ = json.NewEncoder(w).Encode(map[string]string{"Status": "QUERY03001"})
			return
		}
		envelope := codec.Encrypt("Result[0][TradeStatus]=1&Result[0][TradeNo]=T1&Result[0][MerTradeNo]=M1" +
			"&Result[0][TradeAmt]=100&Result[0][PaymentType]=1&Result[0][Card6No]=400022&Result[0][Card4No]=1111")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"Status":      "SUCCESS",
			"EncryptInfo": envelope,
			"HashInfo":    codec.Hash(envelope),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPaymentsGetSuccessEnvelope(t *testing.T) {
	var hits int32
	gateway := newPayuniGateway(t, &hits)
	app := newTestApp(t, payuniEnv(), gateway.URL)

	code := app.run("payments", "get", "--provider", "payuni", "--id", "M1")
	require.Equal(t, 0, code, app.err.String())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	envelope := decodeEnvelope(t, app.out)
	assert.Equal(t, true, envelope["success"])
	meta := envelope["metadata"].(map[string]interface{})
	assert.Equal(t, "payments get", meta["command"])
	assert.Equal(t, "sandbox", meta["environment"])
	assert.Equal(t, "2024-01-02T03:04:05Z", meta["timestamp"])

	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "fetched", data["status"])
	record := data["data"].(map[string]interface{})
	assert.Equal(t, "paid", record["status"])
	assert.Equal(t, "card", record["method"])
	assert.Equal(t, "T1", record["tradeNo"])
	assert.Equal(t, "M1", record["merTradeNo"])
}

func TestPaymentsGetPretty(t *testing.T) {
	var hits int32
	gateway := newPayuniGateway(t, &hits)
	app := newTestApp(t, payuniEnv(), gateway.URL)

	code := app.run("payments", "get", "--id", "M1", "--output", "pretty")
	require.Equal(t, 0, code, app.err.String())

	text := app.out.String()
	assert.Contains(t, text, "PAYUNi 統一金流")
	assert.Contains(t, text, "已付款")
	assert.Contains(t, text, "$100")
	assert.Contains(t, text, "400022******1111")
}

func TestPaymentsGetGatewayFailureExitsOne(t *testing.T) {
	var hits int32
	gateway := newPayuniGateway(t, &hits)
	app := newTestApp(t, payuniEnv(), gateway.URL)

	code := app.run("payments", "get", "--id", "MISSING")
	assert.Equal(t, 1, code)

	envelope := decodeEnvelope(t, app.out)
	result := envelope["data"].(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(t, false, result["ok"])
	assert.Equal(t, "QUERY03001", result["code"])
	assert.Equal(t, "trade not found", result["message"])
}

func TestPaymentsGetValidationExitsTwoWithoutNetwork(t *testing.T) {
	var hits int32
	gateway := newPayuniGateway(t, &hits)
	app := newTestApp(t, payuniEnv(), gateway.URL)

	code := app.run("payments", "get", "--id", "M1", "--trade-no", "T1")
	assert.Equal(t, 2, code)
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits))
	assert.Empty(t, app.out.String())

	envelope := decodeEnvelope(t, app.err)
	assert.Equal(t, false, envelope["success"])
	errBody := envelope["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	assert.Equal(t, "sandbox", envelope["metadata"].(map[string]interface{})["environment"])
}

func TestPaymentsGetEnvFlagOverridesSandbox(t *testing.T) {
	var hits int32
	gateway := newPayuniGateway(t, &hits)
	app := newTestApp(t, payuniEnv(), gateway.URL)

	code := app.run("payments", "get", "--id", "M1", "--env", "production")
	require.Equal(t, 0, code, app.err.String())
	envelope := decodeEnvelope(t, app.out)
	assert.Equal(t, "production", envelope["metadata"].(map[string]interface{})["environment"])

	app.out.Reset()
	code = app.run("payments", "get", "--id", "M1", "--env", "staging")
	assert.Equal(t, 2, code)
}

func TestPaymentsCreateNotImplemented(t *testing.T) {
	app := newTestApp(t, payuniEnv(), "http://127.0.0.1:0")

	code := app.run("payments", "create", "--amount", "100", "--method", "card", "--order-id", "ORDER1")
	assert.Equal(t, 1, code)

	envelope := decodeEnvelope(t, app.err)
	errBody := envelope["error"].(map[string]interface{})
	assert.Equal(t, "NOT_IMPLEMENTED", errBody["code"])
	details := errBody["details"].(map[string]interface{})
	assert.Equal(t, "payuni", details["provider"])
	assert.Equal(t, "create", details["operation"])
}

func TestPaymentsCreateRejectsBadAmount(t *testing.T) {
	app := newTestApp(t, payuniEnv(), "http://127.0.0.1:0")

	code := app.run("payments", "create", "--amount", "abc", "--method", "card", "--order-id", "ORDER1")
	assert.Equal(t, 2, code)
	errBody := decodeEnvelope(t, app.err)["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestPaymentsRefundNegativeAmount(t *testing.T) {
	app := newTestApp(t, payuniEnv(), "http://127.0.0.1:0")

	code := app.run("payments", "refund", "--id", "ORDER1", "--amount", "-1")
	assert.Equal(t, 2, code)
}

func TestPaymentsWithoutProviderIsConfigResolutionError(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")

	code := app.run("payments", "get", "--id", "M1")
	assert.Equal(t, 1, code)
	errBody := decodeEnvelope(t, app.err)["error"].(map[string]interface{})
	assert.Equal(t, "CONFIG_RESOLUTION_ERROR", errBody["code"])
}

func TestConfigSetAndGetMasksSecrets(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")

	code := app.run("config", "set", "--provider", "payuni", "--merchant-id", "MER001",
		"--hash-key", testHashKey, "--hash-iv", testHashIV, "--sandbox")
	require.Equal(t, 0, code, app.err.String())

	doc, err := app.store.Load()
	require.NoError(t, err)
	section, ok := doc.Provider("payuni")
	require.True(t, ok)
	assert.Equal(t, testHashKey, section.HashKey)
	require.NotNil(t, section.Sandbox)
	assert.True(t, *section.Sandbox)

	app.out.Reset()
	code = app.run("config", "get", "--provider", "payuni")
	require.Equal(t, 0, code, app.err.String())
	data := decodeEnvelope(t, app.out)["data"].(map[string]interface{})
	assert.Equal(t, "MER001", data["merchantId"])
	assert.Equal(t, "****************************9012", data["hashKey"])
	assert.Equal(t, "************mnop", data["hashIv"])
}

func TestConfigSetSandboxOnlyWhenGiven(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")

	require.Equal(t, 0, app.run("config", "set", "--provider", "payuni", "--sandbox"))
	require.Equal(t, 0, app.run("config", "set", "--provider", "payuni", "--merchant-id", "MER002"))

	doc, err := app.store.Load()
	require.NoError(t, err)
	section, _ := doc.Provider("payuni")
	assert.Equal(t, "MER002", section.MerchantID)
	require.NotNil(t, section.Sandbox)
	assert.True(t, *section.Sandbox)

	require.Equal(t, 0, app.run("config", "set", "--provider", "payuni", "--sandbox=false"))
	doc, err = app.store.Load()
	require.NoError(t, err)
	section, _ = doc.Provider("payuni")
	require.NotNil(t, section.Sandbox)
	assert.False(t, *section.Sandbox)
}

func TestConfigSetRequiresAField(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")
	assert.Equal(t, 2, app.run("config", "set"))
	assert.Equal(t, 2, app.run("config", "set", "--output-format", "yaml"))
	assert.Equal(t, 2, app.run("config", "set", "--default-provider", "stripe"))
}

func TestOutputFormatFromDocument(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")
	require.Equal(t, 0, app.run("config", "set", "--output-format", "pretty"))

	app.out.Reset()
	require.Equal(t, 0, app.run("config", "path"))
	assert.Equal(t, app.app.ConfigPath+"\n", app.out.String())

	app.out.Reset()
	require.Equal(t, 0, app.run("config", "path", "--output", "json"))
	data := decodeEnvelope(t, app.out)["data"].(map[string]interface{})
	assert.Equal(t, app.app.ConfigPath, data["path"])
}

func TestProvidersList(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")

	require.Equal(t, 0, app.run("providers", "list"))
	data := decodeEnvelope(t, app.out)["data"].([]interface{})
	require.Len(t, data, 3)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "ecpay", first["name"])
	assert.Equal(t, "綠界科技 ECPay", first["displayName"])
}

func TestDoctorReportsMissingKeys(t *testing.T) {
	env := config.MapEnv{
		"PAYUNI_MERCHANT_ID": "MER001",
		"PAYUNI_HASH_KEY":    testHashKey,
	}
	app := newTestApp(t, env, "http://127.0.0.1:0")

	code := app.run("doctor", "--provider", "payuni")
	assert.Equal(t, 1, code)
	text := app.out.String()
	assert.Contains(t, text, "Doctor (PAYUNi 統一金流)")
	assert.Contains(t, text, "✓ PAYUNI_HASH_KEY")
	assert.Contains(t, text, "來源: dotenv")
	assert.Contains(t, text, "✗ PAYUNI_HASH_IV")
	assert.Contains(t, text, "結果：WARN")
}

func TestDoctorJSONOK(t *testing.T) {
	app := newTestApp(t, payuniEnv(), "http://127.0.0.1:0")

	require.Equal(t, 0, app.run("doctor", "--output", "json"))
	data := decodeEnvelope(t, app.out)["data"].(map[string]interface{})
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, "payuni", data["provider"])
}

func TestUsageErrorsExitTwo(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")
	assert.Equal(t, 2, app.run("payments", "get", "--unknown-flag"))
	assert.Contains(t, app.err.String(), "Error:")
	assert.Equal(t, 2, app.run("providers", "list", "--output", "xml"))
}

func TestRootHelpDescribesPrecedence(t *testing.T) {
	app := newTestApp(t, config.MapEnv{}, "http://127.0.0.1:0")

	require.Equal(t, 0, app.run("--help"))
	help := app.out.String()
	assert.Contains(t, help, "1) --env sandbox|production")
	assert.Contains(t, help, "2) PAID_ENV")
	assert.Contains(t, help, "PAID_DEFAULT_PROVIDER")
}
