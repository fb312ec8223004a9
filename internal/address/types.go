package address

import (
	"strings"
	"time"
)

// Address types accepted by the checkout form.
const (
	TypeHome   = "home"
	TypeOffice = "office"
	TypeOther  = "other"
)

// Address is a saved shipping address of one shopper.
type Address struct {
	ID          string    `json:"id" dynamodbav:"address_id"`
	UserID      string    `json:"userId" dynamodbav:"user_id"`
	FullName    string    `json:"fullName" dynamodbav:"full_name"`
	Phone       string    `json:"phone" dynamodbav:"phone"`
	Address     string    `json:"address" dynamodbav:"address"`
	Address2    string    `json:"address2,omitempty" dynamodbav:"address2,omitempty"`
	City        string    `json:"city" dynamodbav:"city"`
	State       string    `json:"state" dynamodbav:"state"`
	Pincode     string    `json:"pincode" dynamodbav:"pincode"`
	AddressType string    `json:"addressType" dynamodbav:"address_type"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at,unixtime"`
}

// Input is the payload of a new address.
type Input struct {
	FullName    string `json:"fullName" validate:"required"`
	Phone       string `json:"phone" validate:"required,in_phone"`
	Address     string `json:"address" validate:"required"`
	Address2    string `json:"address2"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	Pincode     string `json:"pincode" validate:"required,pincode"`
	AddressType string `json:"addressType" validate:"omitempty,oneof=home office other"`
}

// Normalize trims every field and defaults the address type to home.
func (in Input) Normalize() Input {
	out := Input{
		FullName:    strings.TrimSpace(in.FullName),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		Address2:    strings.TrimSpace(in.Address2),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		Pincode:     strings.TrimSpace(in.Pincode),
		AddressType: strings.TrimSpace(in.AddressType),
	}
	if out.AddressType == "" {
		out.AddressType = TypeHome
	}
	return out
}

// Label renders the address on one line, as shown on order confirmations.
func (a Address) Label() string {
	parts := []string{a.Address}
	if a.Address2 != "" {
		parts = append(parts, a.Address2)
	}
	parts = append(parts, a.City+", "+a.State+" - "+a.Pincode)
	return strings.Join(parts, ", ")
}
