package dispatch

import (
	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/emperorhan/taxindexer/internal/report/emit"
)

// DetectTransfers is the generic fallback: it emits the message's net
// transfers as UNKNOWN rows so no value movement is dropped silently.
//
//   - no net legs at all: one bare UNKNOWN row
//   - exactly one inbound and one outbound leg: a single UNKNOWN row
//     carrying both, for legibility
//   - otherwise: one UNKNOWN row per leg, inbound first
func DetectTransfers(tc *model.TransactionContext, mc *model.MessageContext) []model.Row {
	in, out := mc.NetIn, mc.NetOut

	switch {
	case len(in) == 0 && len(out) == 0:
		return []model.Row{emit.Unknown(tc, mc.Index)}

	case len(in) == 1 && len(out) == 1:
		return []model.Row{emit.UnknownWithTransfers(tc, mc.Index, &in[0], &out[0])}

	default:
		rows := make([]model.Row, 0, len(in)+len(out))
		for i := range in {
			rows = append(rows, emit.UnknownWithTransfers(tc, mc.Index, &in[i], nil))
		}
		for i := range out {
			rows = append(rows, emit.UnknownWithTransfers(tc, mc.Index, nil, &out[i]))
		}
		return rows
	}
}
