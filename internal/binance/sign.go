package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

func timestampMS() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// signQuery computes the lowercase hex HMAC-SHA256 of the encoded query string.
// Binance verifies the signature against the exact byte sequence sent, so the
// query must be encoded once and signed as-is.
func signQuery(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedQuery encodes params, appends timestamp and recvWindow when absent,
// and returns the query string with the trailing signature parameter.
func signedQuery(secret string, params url.Values, recvWindowMS int64) string {
	if params == nil {
		params = url.Values{}
	}
	if params.Get("timestamp") == "" {
		params.Set("timestamp", timestampMS())
	}
	if params.Get("recvWindow") == "" && recvWindowMS > 0 {
		params.Set("recvWindow", strconv.FormatInt(recvWindowMS, 10))
	}
	query := params.Encode()
	return query + "&signature=" + signQuery(secret, query)
}
