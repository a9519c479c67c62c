package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tablewise/concierge/agent/contract"
)

func FinalizeReply(in *GraphState) (contractx.TurnResult, error) {
	if in == nil {
		return contractx.TurnResult{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	text := strings.TrimSpace(in.Response.Text)
	if text == "" {
		return contractx.TurnResult{}, fmt.Errorf("%w: agent returned empty reply", contractx.ErrValidation)
	}

	resultType := in.Response.Type
	if resultType == "" {
		resultType = contractx.ResponseMessage
	}

	return contractx.TurnResult{
		Type:          resultType,
		Text:          text,
		PreText:       strings.TrimSpace(in.Response.PreText),
		Reservation:   in.Response.Reservation,
		ReservationID: in.Response.ReservationID,
	}, nil
}
