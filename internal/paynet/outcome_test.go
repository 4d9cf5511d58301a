package paynet_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

func TestInterpretPriority(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		want   paynet.OutcomeKind
	}{
		{"error type", map[string]string{"type": "error", "error-message": "bad"}, paynet.OutcomeError},
		{"validation error", map[string]string{"type": "validation-error", "status": "approved"}, paynet.OutcomeError},
		{"error status", map[string]string{"status": "error", "html": "<form/>"}, paynet.OutcomeError},
		{"error message while processing", map[string]string{"status": "processing", "error-message": "timeout"}, paynet.OutcomeError},
		{"approved", map[string]string{"status": "approved", "html": "<form/>"}, paynet.OutcomeApproved},
		{"declined with reason", map[string]string{"status": "declined", "error-message": "insufficient funds"}, paynet.OutcomeDeclined},
		{"filtered", map[string]string{"status": "filtered"}, paynet.OutcomeDeclined},
		{"html", map[string]string{"status": "processing", "html": "<form/>"}, paynet.OutcomeRedirect},
		{"redirect url", map[string]string{"redirect-url": "https://pay.example.com/form"}, paynet.OutcomeRedirect},
		{"processing", map[string]string{"status": "processing"}, paynet.OutcomeProcessing},
		{"unrecognized", map[string]string{"status": "unknown"}, paynet.OutcomeError},
		{"empty", map[string]string{}, paynet.OutcomeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := paynet.Interpret(paynet.NewResponse(tc.fields))
			require.Equal(t, tc.want, out.Kind)
			require.Equal(t, tc.want == paynet.OutcomeError, out.Err != nil)
		})
	}
}

func TestInterpretIsTotal(t *testing.T) {
	statuses := []string{"", "approved", "declined", "filtered", "processing", "error", "unknown"}
	for _, withError := range []bool{false, true} {
		for _, status := range statuses {
			for _, withHTML := range []bool{false, true} {
				fields := map[string]string{"status": status, "paynet-order-id": testPaynetOrderID}
				if withError {
					fields["error-message"] = "failure"
				}
				if withHTML {
					fields["html"] = "<form/>"
				}
				out := paynet.Interpret(paynet.NewResponse(fields))
				require.Contains(t, []paynet.OutcomeKind{
					paynet.OutcomeError, paynet.OutcomeApproved, paynet.OutcomeDeclined,
					paynet.OutcomeRedirect, paynet.OutcomeProcessing,
				}, out.Kind)
				require.Equal(t, testPaynetOrderID, out.GatewayOrderID)

				if status == "filtered" {
					fields["status"] = "declined"
					require.Equal(t, paynet.Interpret(paynet.NewResponse(fields)).Kind, out.Kind)
				}
			}
		}
	}
}

func TestUnrecognizedOutcomeCode(t *testing.T) {
	out := paynet.Interpret(paynet.NewResponse(map[string]string{"status": "mystery"}))
	require.Equal(t, paynet.CodeUnrecognizedResponse, out.Err.Code())
}
