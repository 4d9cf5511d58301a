package paynet

import "fmt"

// Operation identifies one gateway API method.
type Operation int

const (
	OpSale Operation = iota + 1
	OpPreauth
	OpCapture
	OpReturn
	OpStatus
	OpSaleForm
	OpPreauthForm
	OpMakeRebill
	OpTransferByRef
)

// Entity flags the sub-entities an operation cannot be built without.
type Entity int

const (
	NeedCustomer Entity = 1 << iota
	NeedCreditCard
	NeedRecurrentCard
	NeedDestinationCard
)

// Definition is the declarative description of an operation. New operations are
// added by data here, not by new control flow.
type Definition struct {
	Operation Operation
	Method    string
	// Initiating operations move a fresh transaction from null/init to processing.
	Initiating bool
	Needs      Entity
	Request    []FieldDefinition
	Signature  []Path
	// ResponseFields lists keys every successful response must carry.
	ResponseFields []string
	SuccessType    string
	// SignedResponse requires the response control code to verify.
	SignedResponse bool
}

var commonOptional = []FieldDefinition{
	{"site_url", PathSiteURL, false, RuleURL},
	{"redirect_url", PathRedirectURL, false, RuleURL},
	{"server_callback_url", PathCallbackURL, false, RuleURL},
}

var customerFields = []FieldDefinition{
	{"client_orderid", PathMerchantOrderID, true, RuleID},
	{"order_desc", PathDescription, true, RuleLongString},
	{"amount", PathAmount, true, RuleAmount},
	{"currency", PathCurrency, true, RuleCurrency},
	{"ipaddress", PathIPAddress, true, RuleIP},
	{"email", PathEmail, true, RuleEmail},
	{"first_name", PathFirstName, false, RuleMediumString},
	{"last_name", PathLastName, false, RuleMediumString},
	{"ssn", PathSSN, false, RuleShortString},
	{"birthday", PathBirthday, false, RuleDate},
	{"country", PathCountry, false, RuleCountry},
	{"state", PathState, false, RuleShortString},
	{"city", PathCity, false, RuleMediumString},
	{"address1", PathFirstLine, false, RuleMediumString},
	{"zip_code", PathZipCode, false, RuleZip},
	{"phone", PathPhone, false, RulePhone},
	{"cell_phone", PathCellPhone, false, RulePhone},
}

var cardFields = []FieldDefinition{
	{"card_printed_name", PathCardPrintedName, true, RuleMediumString},
	{"credit_card_number", PathCardNumber, true, RuleCardNumber},
	{"expire_month", PathCardExpireMonth, true, RuleMonth},
	{"expire_year", PathCardExpireYear, true, RuleYear},
	{"cvv2", PathCardCVV2, true, RuleCVV2},
}

var referenceFields = []FieldDefinition{
	{"login", PathLogin, true, RuleMediumString},
	{"client_orderid", PathMerchantOrderID, true, RuleID},
	{"orderid", PathReferenceGatewayID, true, RuleID},
	{"amount", PathAmount, false, RuleAmount},
	{"currency", PathCurrency, false, RuleCurrency},
	{"comment", PathComment, false, RuleLongString},
}

var asyncResponseFields = []string{"type", "status", "paynet-order-id", "merchant-order-id", "serial-number"}

var formResponseFields = []string{"type", "paynet-order-id", "merchant-order-id", "serial-number", "redirect-url"}

var saleSignature = []Path{PathEndPoint, PathMerchantOrderID, PathAmountInCents, PathEmail, PathSigningKey}

var referenceSignature = []Path{PathLogin, PathMerchantOrderID, PathReferenceGatewayID, PathAmountInCents, PathCurrency, PathSigningKey}

func concat(tables ...[]FieldDefinition) []FieldDefinition {
	var out []FieldDefinition
	for _, table := range tables {
		out = append(out, table...)
	}
	return out
}

// Definitions holds the table of every supported operation.
var Definitions = map[Operation]Definition{
	OpSale: {
		Operation:      OpSale,
		Method:         "sale",
		Initiating:     true,
		Needs:          NeedCustomer | NeedCreditCard,
		Request:        concat(customerFields, cardFields, commonOptional),
		Signature:      saleSignature,
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeAsyncResponse,
	},
	OpPreauth: {
		Operation:      OpPreauth,
		Method:         "preauth",
		Initiating:     true,
		Needs:          NeedCustomer | NeedCreditCard,
		Request:        concat(customerFields, cardFields, commonOptional),
		Signature:      saleSignature,
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeAsyncResponse,
	},
	OpSaleForm: {
		Operation:      OpSaleForm,
		Method:         "sale-form",
		Initiating:     true,
		Needs:          NeedCustomer,
		Request:        concat(customerFields, commonOptional),
		Signature:      saleSignature,
		ResponseFields: formResponseFields,
		SuccessType:    TypeAsyncFormResponse,
	},
	OpPreauthForm: {
		Operation:      OpPreauthForm,
		Method:         "preauth-form",
		Initiating:     true,
		Needs:          NeedCustomer,
		Request:        concat(customerFields, commonOptional),
		Signature:      saleSignature,
		ResponseFields: formResponseFields,
		SuccessType:    TypeAsyncFormResponse,
	},
	OpCapture: {
		Operation:      OpCapture,
		Method:         "capture",
		Initiating:     true,
		Request:        referenceFields,
		Signature:      referenceSignature,
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeAsyncResponse,
	},
	OpReturn: {
		Operation:      OpReturn,
		Method:         "return",
		Initiating:     true,
		Request:        referenceFields,
		Signature:      referenceSignature,
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeAsyncResponse,
	},
	OpMakeRebill: {
		Operation:  OpMakeRebill,
		Method:     "make-rebill",
		Initiating: true,
		Needs:      NeedCustomer | NeedRecurrentCard,
		Request: concat([]FieldDefinition{
			{"login", PathLogin, true, RuleMediumString},
			{"client_orderid", PathMerchantOrderID, true, RuleID},
			{"order_desc", PathDescription, true, RuleLongString},
			{"amount", PathAmount, true, RuleAmount},
			{"currency", PathCurrency, true, RuleCurrency},
			{"ipaddress", PathIPAddress, true, RuleIP},
			{"cardrefid", PathRecurrentCardID, true, RuleID},
			{"cvv2", PathRecurrentCardCVV2, false, RuleCVV2},
			{"comment", PathComment, false, RuleLongString},
		}, commonOptional),
		Signature:      []Path{PathLogin, PathMerchantOrderID, PathRecurrentCardID, PathAmountInCents, PathCurrency, PathSigningKey},
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeAsyncResponse,
	},
	OpTransferByRef: {
		Operation:  OpTransferByRef,
		Method:     "transfer-by-ref",
		Initiating: true,
		Needs:      NeedCustomer | NeedRecurrentCard | NeedDestinationCard,
		Request: concat([]FieldDefinition{
			{"login", PathLogin, true, RuleMediumString},
			{"client_orderid", PathMerchantOrderID, true, RuleID},
			{"amount", PathAmount, true, RuleAmount},
			{"currency", PathCurrency, true, RuleCurrency},
			{"ipaddress", PathIPAddress, true, RuleIP},
			{"source-card-ref-id", PathRecurrentCardID, true, RuleID},
			{"destination-card-ref-id", PathDestinationCardID, true, RuleID},
			{"order_desc", PathDescription, false, RuleLongString},
		}, commonOptional),
		Signature:      []Path{PathLogin, PathMerchantOrderID, PathRecurrentCardID, PathDestinationCardID, PathAmountInCents, PathCurrency, PathSigningKey},
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeAsyncResponse,
	},
	OpStatus: {
		Operation: OpStatus,
		Method:    "status",
		Request: []FieldDefinition{
			{"login", PathLogin, true, RuleMediumString},
			{"client_orderid", PathMerchantOrderID, true, RuleID},
			{"orderid", PathGatewayOrderID, true, RuleID},
		},
		Signature:      []Path{PathLogin, PathMerchantOrderID, PathGatewayOrderID, PathSigningKey},
		ResponseFields: asyncResponseFields,
		SuccessType:    TypeStatusResponse,
		SignedResponse: true,
	},
}

// Lookup returns the definition for op.
func Lookup(op Operation) (Definition, error) {
	def, ok := Definitions[op]
	if !ok {
		return Definition{}, &ConfigError{Message: fmt.Sprintf("unsupported operation %d", int(op))}
	}
	return def, nil
}

// ParseOperation maps a gateway method name to its operation.
func ParseOperation(method string) (Operation, error) {
	for op, def := range Definitions {
		if def.Method == method {
			return op, nil
		}
	}
	return 0, &ConfigError{Message: "unsupported operation " + method}
}

func (op Operation) String() string {
	if def, ok := Definitions[op]; ok {
		return def.Method
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

// missingEntities lists the sub-entities required by def but absent on t.
func (def Definition) missingEntities(t *Transaction) []string {
	var missing []string
	if def.Needs&NeedCustomer != 0 && !t.HasCustomer() {
		missing = append(missing, "customer")
	}
	if def.Needs&NeedCreditCard != 0 && !t.HasCreditCard() {
		missing = append(missing, "credit_card")
	}
	if def.Needs&NeedRecurrentCard != 0 && !t.HasRecurrentCard() {
		missing = append(missing, "recurrent_card")
	}
	if def.Needs&NeedDestinationCard != 0 && !t.HasDestinationCard() {
		missing = append(missing, "destination_card")
	}
	return missing
}
