package paynet

import "strings"

// Path addresses one value in the transaction graph or the query config.
type Path string

const (
	PathMerchantOrderID    Path = "transaction.merchantOrderId"
	PathGatewayOrderID     Path = "transaction.gatewayOrderId"
	PathAmount             Path = "transaction.amount"
	PathAmountInCents      Path = "transaction.amountInCents"
	PathCurrency           Path = "transaction.currency"
	PathDescription        Path = "transaction.description"
	PathSiteURL            Path = "transaction.siteUrl"
	PathReferenceGatewayID Path = "transaction.referenceGatewayId"
	PathComment            Path = "transaction.comment"

	PathFirstName Path = "customer.firstName"
	PathLastName  Path = "customer.lastName"
	PathEmail     Path = "customer.email"
	PathIPAddress Path = "customer.ipAddress"
	PathBirthday  Path = "customer.birthday"
	PathSSN       Path = "customer.ssn"

	PathCountry   Path = "billingAddress.country"
	PathState     Path = "billingAddress.state"
	PathCity      Path = "billingAddress.city"
	PathFirstLine Path = "billingAddress.firstLine"
	PathZipCode   Path = "billingAddress.zipCode"
	PathPhone     Path = "billingAddress.phone"
	PathCellPhone Path = "billingAddress.cellPhone"

	PathCardPrintedName Path = "creditCard.printedName"
	PathCardNumber      Path = "creditCard.number"
	PathCardExpireMonth Path = "creditCard.expireMonth"
	PathCardExpireYear  Path = "creditCard.expireYear"
	PathCardCVV2        Path = "creditCard.cvv2"

	PathRecurrentCardID   Path = "recurrentCard.gatewayId"
	PathRecurrentCardCVV2 Path = "recurrentCard.cvv2"
	PathDestinationCardID Path = "destinationCard.gatewayId"

	PathEndPoint    Path = "config.endPoint"
	PathLogin       Path = "config.login"
	PathSigningKey  Path = "config.signingKey"
	PathRedirectURL Path = "config.redirectUrl"
	PathCallbackURL Path = "config.callbackUrl"
)

type accessor func(t *Transaction, c *QueryConfig) string

func customer(get func(*Customer) string) accessor {
	return func(t *Transaction, _ *QueryConfig) string {
		if !t.HasCustomer() {
			return ""
		}
		return get(t.Customer)
	}
}

func billing(get func(*BillingAddress) string) accessor {
	return func(t *Transaction, _ *QueryConfig) string {
		if !t.HasBillingAddress() {
			return ""
		}
		return get(t.BillingAddress)
	}
}

func card(get func(*CreditCard) string) accessor {
	return func(t *Transaction, _ *QueryConfig) string {
		if !t.HasCreditCard() {
			return ""
		}
		return get(t.CreditCard)
	}
}

var accessors = map[Path]accessor{
	PathMerchantOrderID: func(t *Transaction, _ *QueryConfig) string { return t.MerchantOrderID() },
	PathGatewayOrderID:  func(t *Transaction, _ *QueryConfig) string { return t.GatewayOrderID },
	PathAmount: func(t *Transaction, _ *QueryConfig) string {
		if t.Amount.IsZero() {
			return ""
		}
		return t.Amount.String()
	},
	PathAmountInCents: func(t *Transaction, _ *QueryConfig) string {
		if t.Amount.IsZero() {
			return ""
		}
		return t.AmountInCents()
	},
	PathCurrency:           func(t *Transaction, _ *QueryConfig) string { return t.Currency },
	PathDescription:        func(t *Transaction, _ *QueryConfig) string { return t.Description },
	PathSiteURL:            func(t *Transaction, _ *QueryConfig) string { return t.SiteURL },
	PathReferenceGatewayID: func(t *Transaction, _ *QueryConfig) string { return t.ReferenceGatewayID },
	PathComment:            func(t *Transaction, _ *QueryConfig) string { return t.Comment },

	PathFirstName: customer(func(c *Customer) string { return c.FirstName }),
	PathLastName:  customer(func(c *Customer) string { return c.LastName }),
	PathEmail:     customer(func(c *Customer) string { return c.Email }),
	PathIPAddress: customer(func(c *Customer) string { return c.IPAddress }),
	PathBirthday:  customer(func(c *Customer) string { return c.Birthday }),
	PathSSN:       customer(func(c *Customer) string { return c.SSN }),

	PathCountry:   billing(func(a *BillingAddress) string { return a.Country }),
	PathState:     billing(func(a *BillingAddress) string { return a.State }),
	PathCity:      billing(func(a *BillingAddress) string { return a.City }),
	PathFirstLine: billing(func(a *BillingAddress) string { return a.FirstLine }),
	PathZipCode:   billing(func(a *BillingAddress) string { return a.ZipCode }),
	PathPhone:     billing(func(a *BillingAddress) string { return a.Phone }),
	PathCellPhone: billing(func(a *BillingAddress) string { return a.CellPhone }),

	PathCardPrintedName: card(func(c *CreditCard) string { return c.PrintedName }),
	PathCardNumber:      card(func(c *CreditCard) string { return c.Number }),
	PathCardExpireMonth: card(func(c *CreditCard) string { return c.ExpireMonth }),
	PathCardExpireYear:  card(func(c *CreditCard) string { return c.ExpireYear }),
	PathCardCVV2:        card(func(c *CreditCard) string { return c.CVV2 }),

	PathRecurrentCardID: func(t *Transaction, _ *QueryConfig) string {
		if !t.HasRecurrentCard() {
			return ""
		}
		return t.RecurrentCard.GatewayID
	},
	PathRecurrentCardCVV2: func(t *Transaction, _ *QueryConfig) string {
		if !t.HasRecurrentCard() {
			return ""
		}
		return t.RecurrentCard.CVV2
	},
	PathDestinationCardID: func(t *Transaction, _ *QueryConfig) string {
		if !t.HasDestinationCard() {
			return ""
		}
		return t.DestinationCard.GatewayID
	},

	PathEndPoint:    func(_ *Transaction, c *QueryConfig) string { return c.EndPoint },
	PathLogin:       func(_ *Transaction, c *QueryConfig) string { return c.Login },
	PathSigningKey:  func(_ *Transaction, c *QueryConfig) string { return c.SigningKey },
	PathRedirectURL: func(_ *Transaction, c *QueryConfig) string { return c.RedirectURL },
	PathCallbackURL: func(_ *Transaction, c *QueryConfig) string { return c.CallbackURL },
}

// Resolve returns the trimmed value at p and whether it is present and non-empty.
// Unknown paths resolve to ("", false).
func (p Path) Resolve(t *Transaction, c QueryConfig) (string, bool) {
	get, ok := accessors[p]
	if !ok || t == nil {
		return "", false
	}
	value := strings.TrimSpace(get(t, &c))
	return value, value != ""
}

// Known reports whether p has an accessor.
func (p Path) Known() bool {
	_, ok := accessors[p]
	return ok
}
