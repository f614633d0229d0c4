package entity

import (
	"strings"
	"time"
)

// Provider names
const (
	ProviderNira   = "nira"
	ProviderSepehr = "sepehr"
)

// Interface is one configured upstream connection of a provider. For airline
// systems Code is the airline IATA code; aggregator-wide interfaces leave it
// empty.
type Interface struct {
	ID           uint
	Provider     string
	Code         string
	Name         string
	BaseURL      string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	TokenURL     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BaseURLs splits the comma separated base URL list
func (i *Interface) BaseURLs() []string {
	var urls []string
	for _, u := range strings.Split(i.BaseURL, ",") {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// PrimaryBaseURL returns the first configured base URL
func (i *Interface) PrimaryBaseURL() string {
	urls := i.BaseURLs()
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
