package dispatch

import (
	"encoding/json"
	"sort"

	"github.com/emperorhan/taxindexer/internal/domain/model"
)

type contractKey struct {
	address string
	action  string
}

// Registry maps message types and contract address/action signatures to
// handlers. It is built statically at process start; there is no runtime
// handler discovery.
type Registry struct {
	byType     map[string]Handler
	byContract map[contractKey]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		byType:     make(map[string]Handler),
		byContract: make(map[contractKey]Handler),
	}
}

// MessageType registers a handler for an exact message-type tag.
func (r *Registry) MessageType(msgType string, h Handler) {
	r.byType[msgType] = h
}

// Contract registers a handler for a contract address and sub-action.
// An empty action matches any action on that address and is consulted
// after exact action matches.
func (r *Registry) Contract(address, action string, h Handler) {
	r.byContract[contractKey{address: address, action: action}] = h
}

// Lookup resolves the handler for a message: exact message-type match
// first, then the contract-address registry, else no match.
func (r *Registry) Lookup(mc *model.MessageContext) (Handler, bool) {
	if h, ok := r.byType[mc.MessageType]; ok {
		return h, true
	}
	if mc.ContractAddress != "" {
		action := ContractAction(mc)
		if h, ok := r.byContract[contractKey{address: mc.ContractAddress, action: action}]; ok {
			return h, true
		}
		if h, ok := r.byContract[contractKey{address: mc.ContractAddress}]; ok {
			return h, true
		}
	}
	return nil, false
}

// ContractAction extracts the sub-action of a contract execution message:
// the wasm log event's "action" attribute when present, else the top-level
// key of the execute payload (e.g. {"swap": {...}} → "swap").
func ContractAction(mc *model.MessageContext) string {
	for _, e := range mc.LogEvents {
		if e.Type == "wasm" {
			if action := e.Value("action"); action != "" {
				return action
			}
		}
	}

	var body struct {
		Msg map[string]json.RawMessage `json:"msg"`
	}
	if err := json.Unmarshal(mc.RawPayload, &body); err != nil || len(body.Msg) == 0 {
		return ""
	}
	keys := make([]string, 0, len(body.Msg))
	for k := range body.Msg {
		keys = append(keys, k)
	}
	// Execute payloads carry a single key; sort for determinism anyway.
	sort.Strings(keys)
	return keys[0]
}
