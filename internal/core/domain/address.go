package domain

import "strings"

// ShippingAddress holds the buyer's delivery details. It is editable during
// the details phase only; the engine uppercases every field before
// transmission because the processor's carrier integration is case-sensitive.
type ShippingAddress struct {
	Name       string `json:"name"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Complete reports whether all required fields are present. Address2 is
// optional.
func (a ShippingAddress) Complete() bool {
	return a.Name != "" &&
		a.Address1 != "" &&
		a.City != "" &&
		a.Province != "" &&
		a.PostalCode != "" &&
		a.Country != ""
}

// Normalized returns a copy with every field uppercased.
func (a ShippingAddress) Normalized() ShippingAddress {
	return ShippingAddress{
		Name:       strings.ToUpper(a.Name),
		Address1:   strings.ToUpper(a.Address1),
		Address2:   strings.ToUpper(a.Address2),
		City:       strings.ToUpper(a.City),
		Province:   strings.ToUpper(a.Province),
		PostalCode: strings.ToUpper(a.PostalCode),
		Country:    strings.ToUpper(a.Country),
	}
}
