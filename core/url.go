package core

import (
	"errors"
	"net/url"
	"strings"
)

// AppIDPlaceholder is replaced by the escaped app id in store URL templates.
const AppIDPlaceholder = "{appID}"

const (
	// AppStoreTemplate opens the App Store write-review sheet.
	AppStoreTemplate = "itms-apps://itunes.apple.com/app/{appID}?mt=8&action=write-review"
	// PlayStoreTemplate opens the Play Store listing.
	PlayStoreTemplate = "market://details?id={appID}"
)

// StoreURL expands template for appID.
func StoreURL(template, appID string) (string, error) {
	if err := ValidateAppID(strings.TrimSpace(appID)); err != nil {
		return "", err
	}
	if !strings.Contains(template, AppIDPlaceholder) {
		return "", &ConfigurationError{Field: "store_url_template", Reason: "missing " + AppIDPlaceholder + " placeholder"}
	}
	raw := strings.ReplaceAll(template, AppIDPlaceholder, url.PathEscape(strings.TrimSpace(appID)))
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ConfigurationError{Field: "store_url_template", Reason: "not a valid URL", Err: err}
	}
	if u.Scheme == "" {
		return "", &ConfigurationError{Field: "store_url_template", Reason: "URL has no scheme", Err: errors.New(raw)}
	}
	return raw, nil
}
