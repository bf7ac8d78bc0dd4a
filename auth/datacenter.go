package auth

import (
	"fmt"
	"strings"
)

// DataCenter identifies the Zoho region an organization lives in. Accounts
// and API hosts differ per region.
type DataCenter string

const (
	DataCenterUS DataCenter = "com"
	DataCenterEU DataCenter = "eu"
	DataCenterIN DataCenter = "in"
	DataCenterAU DataCenter = "com.au"
	DataCenterJP DataCenter = "jp"
	DataCenterCA DataCenter = "ca"
	DataCenterCN DataCenter = "com.cn"
	DataCenterSA DataCenter = "sa"
)

var dataCenterAliases = map[string]DataCenter{
	"":       DataCenterUS,
	"us":     DataCenterUS,
	"com":    DataCenterUS,
	"eu":     DataCenterEU,
	"in":     DataCenterIN,
	"au":     DataCenterAU,
	"com.au": DataCenterAU,
	"jp":     DataCenterJP,
	"ca":     DataCenterCA,
	"cn":     DataCenterCN,
	"com.cn": DataCenterCN,
	"sa":     DataCenterSA,
}

// ParseDataCenter accepts a region alias ("us", "eu", "au", ...) or a
// domain suffix ("com", "com.au", ...).
func ParseDataCenter(value string) (DataCenter, error) {
	dc, ok := dataCenterAliases[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return "", fmt.Errorf("unknown Zoho data center %q", value)
	}
	return dc, nil
}

// AccountsURL returns the base URL of the accounts (identity) server.
func (dc DataCenter) AccountsURL() string {
	return "https://accounts.zoho." + string(dc.orDefault())
}

// TokenURL returns the OAuth2 token endpoint.
func (dc DataCenter) TokenURL() string {
	return dc.AccountsURL() + "/oauth/v2/token"
}

// AuthURL returns the OAuth2 consent endpoint.
func (dc DataCenter) AuthURL() string {
	return dc.AccountsURL() + "/oauth/v2/auth"
}

// APIURL returns the Zoho Books v3 REST base URL.
func (dc DataCenter) APIURL() string {
	return "https://www.zohoapis." + string(dc.orDefault()) + "/books/v3"
}

func (dc DataCenter) orDefault() DataCenter {
	if dc == "" {
		return DataCenterUS
	}
	return dc
}
