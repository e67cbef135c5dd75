package geoapi

import (
	"fmt"
	"net/http"
)

// IPAPIURL is the ip-api.com endpoint. Only the two fields we need are
// requested. See http://ip-api.com/docs/api:json
const IPAPIURL = "http://ip-api.com/json/%s?fields=status,countryCode"

// IPAPICoURL is the ipapi.co endpoint. See https://ipapi.co/api/
const IPAPICoURL = "https://ipapi.co/%s/json/"

// NewIPAPIService creates an adapter for ip-api.com, which answers
// {"status":"success","countryCode":"TH"}.
func NewIPAPIService(client *http.Client) *JSONService {
	return &JSONService{
		ServiceName: NameIPAPI,
		URLTemplate: IPAPIURL,
		Client:      client,
		Extract:     extractIPAPI,
	}
}

// NewIPAPICoService creates an adapter for ipapi.co, which answers
// {"country_code":"TH"} or {"error":true,"reason":"..."}.
func NewIPAPICoService(client *http.Client) *JSONService {
	return &JSONService{
		ServiceName: NameIPAPICo,
		URLTemplate: IPAPICoURL,
		Client:      client,
		Extract:     extractIPAPICo,
	}
}

func extractIPAPI(body map[string]any) (string, error) {
	status, _ := body["status"].(string)
	if status != "success" {
		return "", fmt.Errorf("%w: status %q", ErrServiceFailure, status)
	}
	return stringField(body, "countryCode")
}

func extractIPAPICo(body map[string]any) (string, error) {
	if reason, failed := body["error"]; failed {
		return "", fmt.Errorf("%w: %v (%v)", ErrServiceFailure, reason, body["reason"])
	}
	return stringField(body, "country_code")
}
