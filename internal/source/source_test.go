package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

func TestFetchGasPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","message":"OK","result":{"SafeGasPrice":"25","ProposeGasPrice":"28","FastGasPrice":"32"}}`)
	}))
	defer server.Close()

	client := NewGasClient(server.URL, "", 5*time.Second)
	price, err := client.FetchGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, price.Low)
	assert.Equal(t, 28, price.Average)
	assert.Equal(t, 32, price.Fast)
}

func TestFetchGasPriceOracleFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":{}}`)
	}))
	defer server.Close()

	client := NewGasClient(server.URL, "", 5*time.Second)
	_, err := client.FetchGasPrice(context.Background())
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeSource))
}

func TestFetchGasPriceNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewGasClient(server.URL, "", 5*time.Second)
	_, err := client.FetchGasPrice(context.Background())
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeSource))
}

func TestFetchGasPriceMalformedField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","message":"OK","result":{"SafeGasPrice":"cheap","ProposeGasPrice":"28","FastGasPrice":"32"}}`)
	}))
	defer server.Close()

	client := NewGasClient(server.URL, "", 5*time.Second)
	_, err := client.FetchGasPrice(context.Background())
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeData))
}

func TestFetchTransactions(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"module":     r.URL.Query().Get("module"),
			"action":     r.URL.Query().Get("action"),
			"address":    r.URL.Query().Get("address"),
			"startblock": r.URL.Query().Get("startblock"),
			"sort":       r.URL.Query().Get("sort"),
		}
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[
			{"blockNumber":"1001","hash":"0xaa","from":"0xf1","to":"0xf2","value":"1000000000000000000","gasUsed":"21000","gasPrice":"30000000000","input":"0x"},
			{"blockNumber":"1003","hash":"0xbb","from":"0xf1","to":"0xtoken","value":"0","gasUsed":"52000","gasPrice":"31000000000","input":"0xa9059cbb0000"}
		]}`)
	}))
	defer server.Close()

	client := NewTxClient(server.URL, "", nil, 5*time.Second)
	events, err := client.FetchTransactions(context.Background(), "0xf1", 1000)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// The fetch starts strictly after the cursor.
	assert.Equal(t, "account", gotQuery["module"])
	assert.Equal(t, "txlist", gotQuery["action"])
	assert.Equal(t, "0xf1", gotQuery["address"])
	assert.Equal(t, "1001", gotQuery["startblock"])
	assert.Equal(t, "asc", gotQuery["sort"])

	assert.Equal(t, uint64(1001), events[0].BlockNumber)
	assert.Equal(t, "ETH", events[0].AssetDescription)
	assert.Equal(t, "1000000000000000000", events[0].Value.String())

	assert.Equal(t, uint64(1003), events[1].BlockNumber)
	assert.Equal(t, "ERC-20 Token (0xtoken)", events[1].AssetDescription)
}

func TestFetchTransactionsEmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
	}))
	defer server.Close()

	client := NewTxClient(server.URL, "", nil, 5*time.Second)
	events, err := client.FetchTransactions(context.Background(), "0xf1", 1000)
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestFetchTransactionsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"Max rate limit reached","result":[{"blockNumber":"x"}]}`)
	}))
	defer server.Close()

	client := NewTxClient(server.URL, "", nil, 5*time.Second)
	_, err := client.FetchTransactions(context.Background(), "0xf1", 1000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeSource))
}

func TestFetchTransactionsMalformedRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[{"blockNumber":"not-a-number","hash":"0xaa","value":"0","gasUsed":"0","gasPrice":"0","input":"0x"}]}`)
	}))
	defer server.Close()

	client := NewTxClient(server.URL, "", nil, 5*time.Second)
	_, err := client.FetchTransactions(context.Background(), "0xf1", 1000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeData))
}

func TestFetchTransactionsTokenDetails(t *testing.T) {
	tokenCalls := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		assert.Equal(t, "token", r.URL.Query().Get("module"))
		assert.Equal(t, "tokeninfo", r.URL.Query().Get("action"))
		assert.Equal(t, "0xtoken", r.URL.Query().Get("contractaddress"))
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[{"tokenName":"USD Coin","symbol":"USDC"}]}`)
	}))
	defer tokenServer.Close()

	txServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[
			{"blockNumber":"1001","hash":"0xaa","from":"0xf1","to":"0xtoken","value":"0","gasUsed":"52000","gasPrice":"31000000000","input":"0xa9059cbb0000"},
			{"blockNumber":"1002","hash":"0xbb","from":"0xf1","to":"0xtoken","value":"0","gasUsed":"52000","gasPrice":"31000000000","input":"0xa9059cbb0000"}
		]}`)
	}))
	defer txServer.Close()

	tokens := NewTokenClient(tokenServer.URL, "", 5*time.Second)
	client := NewTxClient(txServer.URL, "", tokens, 5*time.Second)

	events, err := client.FetchTransactions(context.Background(), "0xf1", 1000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "USDC Token (USD Coin)", events[0].AssetDescription)
	assert.Equal(t, "USDC Token (USD Coin)", events[1].AssetDescription)

	// Repeats for the same contract are served from the cache.
	assert.Equal(t, 1, tokenCalls)
}

func TestFetchTransactionsTokenLookupFallsBack(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer tokenServer.Close()

	txServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[
			{"blockNumber":"1001","hash":"0xaa","from":"0xf1","to":"0xtoken","value":"0","gasUsed":"52000","gasPrice":"31000000000","input":"0xa9059cbb0000"}
		]}`)
	}))
	defer txServer.Close()

	tokens := NewTokenClient(tokenServer.URL, "", 5*time.Second)
	client := NewTxClient(txServer.URL, "", tokens, 5*time.Second)

	// A failed lookup degrades to the generic description, never an error.
	events, err := client.FetchTransactions(context.Background(), "0xf1", 1000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ERC-20 Token (0xtoken)", events[0].AssetDescription)
}

func TestTokenDetailsRejectsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":[]}`)
	}))
	defer server.Close()

	tokens := NewTokenClient(server.URL, "", 5*time.Second)
	_, _, err := tokens.TokenDetails(context.Background(), "0xtoken")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeSource))
}

func TestPriceOracleFailover(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ethereum":{"usd":3201.45}}`)
	}))
	defer healthy.Close()

	oracle := NewPriceOracle([]string{broken.URL, healthy.URL}, 5*time.Second)
	usd, ok := oracle.FetchETHPriceUSD(context.Background())
	require.True(t, ok)
	assert.InDelta(t, 3201.45, usd, 0.001)
}

func TestPriceOracleAllProvidersDown(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bitcoin":{"usd":65000}}`)
	}))
	defer missing.Close()

	oracle := NewPriceOracle([]string{broken.URL, missing.URL}, 5*time.Second)
	usd, ok := oracle.FetchETHPriceUSD(context.Background())
	assert.False(t, ok)
	assert.Zero(t, usd)
}
