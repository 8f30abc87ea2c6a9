package config

import "time"

type CheckoutConfig interface {
	GetHandshakeClearDelay() time.Duration
	GetBankInfo() []BankField
	GetSalesEmail() string
	GetMaxImageWidth() uint
	GetCarouselSlots() int
}

// BankField is a single labelled line of the bank transfer instructions
type BankField struct {
	Label string
	Value string
}

type Checkout struct{}

var _ CheckoutConfig = Checkout{}

// GetHandshakeClearDelay is how long the transfer handshake keys outlive the
// confirmation page read
func (Checkout) GetHandshakeClearDelay() time.Duration {
	return time.Duration(GetEnvInt("HANDSHAKE_CLEAR_DELAY_MS", 1000)) * time.Millisecond
}

func (Checkout) GetBankInfo() []BankField {
	return []BankField{
		{Label: "Bank", Value: GetEnv("BANK_NAME", "")},
		{Label: "Holder", Value: GetEnv("BANK_HOLDER", "")},
		{Label: "CBU", Value: GetEnv("BANK_CBU", "")},
		{Label: "Alias", Value: GetEnv("BANK_ALIAS", "")},
		{Label: "CUIT", Value: GetEnv("BANK_CUIT", "")},
	}
}

func (Checkout) GetSalesEmail() string {
	return GetEnv("SALES_EMAIL", "ventas@ejemplo.com")
}

func (Checkout) GetMaxImageWidth() uint {
	return uint(GetEnvInt("MAX_IMAGE_WIDTH", 1200))
}

func (Checkout) GetCarouselSlots() int {
	return 6
}
