package paynet

// FieldDefinition maps one wire key to a domain path.
type FieldDefinition struct {
	WireName string
	Path     Path
	Required bool
	Rule     Rule
}

// BuildWireMap projects the transaction into wire fields following the table order.
// Every missing required field and every malformed value is reported in a single ValidationError.
func BuildWireMap(t *Transaction, cfg QueryConfig, fields []FieldDefinition) (map[string]string, error) {
	wire := make(map[string]string, len(fields))
	verr := &ValidationError{}
	for _, field := range fields {
		if !field.Path.Known() {
			return nil, &ConfigError{Message: "unknown field path " + string(field.Path) + " for " + field.WireName}
		}
		value, ok := field.Path.Resolve(t, cfg)
		if !ok {
			if field.Required {
				verr.Missing = append(verr.Missing, field.WireName)
			}
			continue
		}
		if !field.Rule.Check(value) {
			verr.Invalid = append(verr.Invalid, FieldError{
				Field: field.WireName,
				Value: maskValue(field.Rule, value),
				Rule:  field.Rule,
			})
			continue
		}
		if field.Rule == RuleCardNumber {
			value = normalizeCardNumber(value)
		}
		wire[field.WireName] = value
	}
	if !verr.empty() {
		return nil, verr
	}
	return wire, nil
}
