package binance

import (
	"net/url"
	"strings"
	"testing"
)

func TestSignQueryKnownVector(t *testing.T) {
	// Example from the Binance API signing documentation.
	secret := "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	query := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	want := "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71"
	if got := signQuery(secret, query); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSignedQueryAddsDefaults(t *testing.T) {
	params := url.Values{}
	params.Set("symbol", "BNBUSDC")
	query := signedQuery("secret", params, 5000)
	if !strings.Contains(query, "timestamp=") {
		t.Fatalf("expected timestamp in query: %s", query)
	}
	if !strings.Contains(query, "recvWindow=5000") {
		t.Fatalf("expected recvWindow in query: %s", query)
	}
	if !strings.Contains(query, "&signature=") {
		t.Fatalf("expected trailing signature: %s", query)
	}
	sig := query[strings.LastIndex(query, "=")+1:]
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars of signature, got %q", sig)
	}
}

func TestSignedQueryKeepsCallerTimestamp(t *testing.T) {
	params := url.Values{}
	params.Set("timestamp", "1499827319559")
	query := signedQuery("secret", params, 0)
	if !strings.Contains(query, "timestamp=1499827319559") {
		t.Fatalf("expected caller timestamp preserved: %s", query)
	}
	if strings.Contains(query, "recvWindow") {
		t.Fatalf("expected no recvWindow when disabled: %s", query)
	}
}
