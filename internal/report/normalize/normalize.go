// Package normalize converts raw chain-specific transaction payloads into
// the canonical transaction/message contexts the dispatch layer consumes.
// Normalizers are forgiving: a payload whose inner structure cannot be
// parsed still yields a context (with an empty transfer set) so the
// pipeline can account for the transaction instead of dropping it.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emperorhan/taxindexer/internal/config"
	"github.com/emperorhan/taxindexer/internal/currency"
	"github.com/emperorhan/taxindexer/internal/domain/model"
)

// Normalizer converts one raw transaction into its canonical contexts.
// An error means the envelope itself was unreadable; inner message
// failures degrade to empty transfer sets instead.
type Normalizer interface {
	Normalize(ctx context.Context, raw json.RawMessage) (*model.TransactionContext, []*model.MessageContext, error)
}

// New builds the normalizer for a chain, selected by raw-format family.
func New(spec config.ChainSpec, wallet string, resolver currency.Resolver, logger *slog.Logger) (Normalizer, error) {
	switch spec.Chain.Family() {
	case model.FamilyCosmos:
		return NewCosmos(spec, wallet, resolver, logger), nil
	case model.FamilySolana:
		return NewSolana(spec, wallet, resolver, logger), nil
	case model.FamilyAlgorand:
		return NewAlgorand(spec, wallet, resolver, logger), nil
	}
	return nil, fmt.Errorf("no normalizer for chain %q", spec.Chain)
}

// MessageTypeTail returns the short message type of a fully qualified
// proto type url: "/cosmos.bank.v1beta1.MsgSend" becomes "MsgSend". A
// string without separators is returned unchanged.
func MessageTypeTail(typeURL string) string {
	s := typeURL
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
