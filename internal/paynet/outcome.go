package paynet

// OutcomeKind is the closed set of business results of a response or callback.
type OutcomeKind int

const (
	OutcomeError OutcomeKind = iota
	OutcomeApproved
	OutcomeDeclined
	OutcomeRedirect
	OutcomeProcessing
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApproved:
		return "approved"
	case OutcomeDeclined:
		return "declined"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeProcessing:
		return "processing"
	default:
		return "error"
	}
}

// Outcome is the classification of a response. Err is set only for OutcomeError;
// HTML or RedirectURL only for OutcomeRedirect.
type Outcome struct {
	Kind           OutcomeKind
	Err            *GatewayError
	HTML           string
	RedirectURL    string
	GatewayOrderID string
}

// Interpret classifies resp. The first matching rule wins:
// error payload, approved, declined or filtered, redirect marker, processing.
// Anything else is an unrecognized response error.
func Interpret(resp *Response) Outcome {
	out := Outcome{GatewayOrderID: resp.GatewayOrderID()}
	switch {
	case resp.HasError():
		out.Kind = OutcomeError
		out.Err = resp.GatewayError()
	case resp.IsApproved():
		out.Kind = OutcomeApproved
	case resp.IsDeclined():
		out.Kind = OutcomeDeclined
	case resp.HasRedirect():
		out.Kind = OutcomeRedirect
		out.HTML = resp.HTML()
		out.RedirectURL = resp.RedirectURL()
	case resp.IsProcessing():
		out.Kind = OutcomeProcessing
	default:
		out.Kind = OutcomeError
		out.Err = &GatewayError{
			ErrorCode: CodeUnrecognizedResponse,
			Message:   "response carries no error, known status or redirect marker",
		}
	}
	return out
}

// apply moves the transaction according to the outcome and records the gateway order id.
// Gateway errors are recorded on the transaction but are not returned as Go errors.
func (o Outcome) apply(t *Transaction) error {
	t.SetGatewayOrderID(o.GatewayOrderID)
	switch o.Kind {
	case OutcomeApproved:
		t.finish(StatusApproved)
	case OutcomeDeclined:
		t.finish(StatusDeclined)
	case OutcomeRedirect:
		if err := t.advance(StateRedirect); err != nil {
			return err
		}
		t.Status = StatusProcessing
	case OutcomeProcessing:
		if err := t.advance(StateProcessing); err != nil {
			return err
		}
		t.Status = StatusProcessing
	default:
		t.AddError(o.Err)
		t.finish(StatusError)
	}
	return nil
}
