package paynet

import (
	"regexp"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

// Rule names the format check applied to a resolved field value.
type Rule int

const (
	RuleNone Rule = iota
	RuleID
	RuleAmount
	RuleCurrency
	RuleIP
	RuleCardNumber
	RuleURL
	RuleEmail
	RuleShortString
	RuleMediumString
	RuleLongString
	RuleMonth
	RuleYear
	RuleCVV2
	RuleCountry
	RuleZip
	RulePhone
	RuleDate
)

var ruleNames = map[Rule]string{
	RuleNone:         "none",
	RuleID:           "id",
	RuleAmount:       "amount",
	RuleCurrency:     "currency",
	RuleIP:           "ip",
	RuleCardNumber:   "card_number",
	RuleURL:          "url",
	RuleEmail:        "email",
	RuleShortString:  "short_string",
	RuleMediumString: "medium_string",
	RuleLongString:   "long_string",
	RuleMonth:        "month",
	RuleYear:         "year",
	RuleCVV2:         "cvv2",
	RuleCountry:      "country",
	RuleZip:          "zip_code",
	RulePhone:        "phone",
	RuleDate:         "date",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// validator tags per rule; custom tags are registered in rulesValidator.
var ruleTags = map[Rule]string{
	RuleID:           "min=1,max=128",
	RuleAmount:       "paynet_amount",
	RuleCurrency:     "min=1,max=3,alpha,uppercase",
	RuleIP:           "ip",
	RuleCardNumber:   "credit_card",
	RuleURL:          "url,max=1024",
	RuleEmail:        "email,max=50",
	RuleShortString:  "min=1,max=50",
	RuleMediumString: "min=1,max=128",
	RuleLongString:   "min=1,max=1024",
	RuleMonth:        "paynet_month",
	RuleYear:         "paynet_year",
	RuleCVV2:         "paynet_cvv2",
	RuleCountry:      "iso3166_1_alpha2",
	RuleZip:          "min=1,max=10",
	RulePhone:        "paynet_phone",
	RuleDate:         "paynet_date",
}

var customPatterns = map[string]*regexp.Regexp{
	"paynet_amount": regexp.MustCompile(`^[0-9.]{1,11}$`),
	"paynet_month":  regexp.MustCompile(`^(0?[1-9]|1[0-2])$`),
	"paynet_year":   regexp.MustCompile(`^([0-9]{2}|[0-9]{4})$`),
	"paynet_cvv2":   regexp.MustCompile(`^[0-9]{3,4}$`),
	"paynet_phone":  regexp.MustCompile(`^[0-9\-+() ]{6,20}$`),
	"paynet_date":   regexp.MustCompile(`^[0-9]{6}$`),
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func rulesValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		for tag, re := range customPatterns {
			pattern := re
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return pattern.MatchString(fl.Field().String())
			}); err != nil {
				panic(err)
			}
		}
		validate = v
	})
	return validate
}

// Check reports whether value satisfies the rule.
func (r Rule) Check(value string) bool {
	tag, ok := ruleTags[r]
	if !ok {
		return true
	}
	if r == RuleCardNumber {
		value = normalizeCardNumber(value)
	}
	return rulesValidator().Var(value, tag) == nil
}

func normalizeCardNumber(value string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(value)
}

// maskValue hides card data before it is placed in an error.
func maskValue(r Rule, value string) string {
	switch r {
	case RuleCardNumber:
		digits := normalizeCardNumber(value)
		if len(digits) <= 4 {
			return strings.Repeat("*", len(digits))
		}
		return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
	case RuleCVV2:
		return strings.Repeat("*", len(value))
	default:
		return value
	}
}
