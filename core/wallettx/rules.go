package wallettx

import (
	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

// EnrichedFlow pairs a raw AssetFlow with the token info resolved for it,
// so rules can inspect policy IDs and categories without a registry lookup.
type EnrichedFlow struct {
	model.AssetFlow
	Token model.Token
}

// Rule is a single categorization rule: priority decides evaluation order
// (highest first), Matches decides whether it applies, and Action/Protocol
// report the outcome when it does. Rules are pure functions of (tx, flows)
// closed at process start — no hot reload.
type Rule struct {
	Priority int
	Name     string
	Matches  func(raw *indexer.RawTx, flows []EnrichedFlow, w string) bool
	Action   func(raw *indexer.RawTx, flows []EnrichedFlow, w string) model.Action
	Protocol func(raw *indexer.RawTx, flows []EnrichedFlow, w string) model.Protocol
}

// knownProtocolPolicies maps a policy ID to the protocol it marks. Minswap's
// governance token and Liqwid's qToken/governance policies are the built-in
// examples named in the design; operators extend this table for additional
// protocols without touching rule evaluation order.
var knownProtocolPolicies = map[string]model.Protocol{
	"34250edd1e9836f5378702fbf9416b709bc140e04f668cc3552b41cc": model.ProtocolMinswap,
	"da8c30857834c6ae7203935b89278c532b3995245295456f993e1d24": model.ProtocolLiqwid,
}

func policyOf(unit string) string {
	if len(unit) < policyIDHexLenTx {
		return ""
	}
	return unit[:policyIDHexLenTx]
}

const policyIDHexLenTx = 56

// protocolForFlows returns the first protocol any flow's token policy
// matches, or ProtocolUnknown.
func protocolForFlows(flows []EnrichedFlow) model.Protocol {
	for _, f := range flows {
		if p, ok := knownProtocolPolicies[policyOf(f.TokenUnit)]; ok {
			return p
		}
	}
	return model.ProtocolUnknown
}

func adaFlow(flows []EnrichedFlow) (EnrichedFlow, bool) {
	for _, f := range flows {
		if f.TokenUnit == model.LovelaceUnit {
			return f, true
		}
	}
	return EnrichedFlow{}, false
}

// nonADAFlows returns every flow that is not the native ADA leg.
func nonADAFlows(flows []EnrichedFlow) []EnrichedFlow {
	out := make([]EnrichedFlow, 0, len(flows))
	for _, f := range flows {
		if f.TokenUnit != model.LovelaceUnit {
			out = append(out, f)
		}
	}
	return out
}

// BuiltinRules is the closed, priority-sorted rule set the categorizer
// evaluates. Declared at package scope so it is constructed once per
// process, matching the "no dynamic registration" design note.
var BuiltinRules = []Rule{
	{
		Priority: 100,
		Name:     "protocol-supply",
		Matches: func(raw *indexer.RawTx, flows []EnrichedFlow, w string) bool {
			return protocolForFlows(flows) != model.ProtocolUnknown && hasQTokenInflow(flows) && hasADAOutflow(flows)
		},
		Action:   func(*indexer.RawTx, []EnrichedFlow, string) model.Action { return model.ActionSupply },
		Protocol: func(_ *indexer.RawTx, flows []EnrichedFlow, _ string) model.Protocol { return protocolForFlows(flows) },
	},
	{
		Priority: 99,
		Name:     "protocol-withdraw",
		Matches: func(raw *indexer.RawTx, flows []EnrichedFlow, w string) bool {
			return protocolForFlows(flows) != model.ProtocolUnknown && hasQTokenOutflow(flows) && hasADAInflow(flows)
		},
		Action:   func(*indexer.RawTx, []EnrichedFlow, string) model.Action { return model.ActionWithdraw },
		Protocol: func(_ *indexer.RawTx, flows []EnrichedFlow, _ string) model.Protocol { return protocolForFlows(flows) },
	},
	{
		Priority: 90,
		Name:     "stake-withdrawal",
		Matches: func(raw *indexer.RawTx, flows []EnrichedFlow, w string) bool {
			for _, wd := range raw.Withdrawals {
				if belongsToWallet(wd, w) {
					return true
				}
			}
			return false
		},
		Action:   func(*indexer.RawTx, []EnrichedFlow, string) model.Action { return model.ActionClaimRewards },
		Protocol: func(_ *indexer.RawTx, flows []EnrichedFlow, _ string) model.Protocol { return protocolForFlows(flows) },
	},
	{
		Priority: 80,
		Name:     "swap-shape",
		Matches: func(raw *indexer.RawTx, flows []EnrichedFlow, w string) bool {
			nonAda := nonADAFlows(flows)
			if len(nonAda) != 2 {
				return false
			}
			return nonAda[0].NetBase.Sign() != 0 && nonAda[1].NetBase.Sign() != 0 &&
				nonAda[0].NetBase.Sign() != nonAda[1].NetBase.Sign()
		},
		Action:   func(*indexer.RawTx, []EnrichedFlow, string) model.Action { return model.ActionSwap },
		Protocol: func(_ *indexer.RawTx, flows []EnrichedFlow, _ string) model.Protocol { return protocolForFlows(flows) },
	},
	{
		Priority: 10,
		Name:     "pure-transfer",
		Matches: func(raw *indexer.RawTx, flows []EnrichedFlow, w string) bool {
			return len(nonADAFlows(flows)) == 0 && len(flows) > 0
		},
		Action: func(raw *indexer.RawTx, flows []EnrichedFlow, w string) model.Action {
			ada, ok := adaFlow(flows)
			if !ok || ada.NetBase.Sign() >= 0 {
				return model.ActionReceive
			}
			return model.ActionSend
		},
		Protocol: func(*indexer.RawTx, []EnrichedFlow, string) model.Protocol { return model.ProtocolUnknown },
	},
}

func hasQTokenInflow(flows []EnrichedFlow) bool {
	for _, f := range flows {
		if f.Token.Category == model.CategoryQToken && f.NetBase.Sign() > 0 {
			return true
		}
	}
	return false
}

func hasQTokenOutflow(flows []EnrichedFlow) bool {
	for _, f := range flows {
		if f.Token.Category == model.CategoryQToken && f.NetBase.Sign() < 0 {
			return true
		}
	}
	return false
}

func hasADAOutflow(flows []EnrichedFlow) bool {
	ada, ok := adaFlow(flows)
	return ok && ada.NetBase.Sign() < 0
}

func hasADAInflow(flows []EnrichedFlow) bool {
	ada, ok := adaFlow(flows)
	return ok && ada.NetBase.Sign() > 0
}

// Categorize evaluates BuiltinRules in priority order and returns the first
// match's action/protocol, or (unknown, unknown) if none match.
func Categorize(raw *indexer.RawTx, flows []EnrichedFlow, w string) (model.Action, model.Protocol) {
	for _, rule := range BuiltinRules {
		if rule.Matches(raw, flows, w) {
			return rule.Action(raw, flows, w), rule.Protocol(raw, flows, w)
		}
	}
	return model.ActionUnknown, model.ProtocolUnknown
}

// DiscoveryContext is the informational payload a DiscoveryHook receives
// for a potential new protocol token. Parse does not emit discovery events,
// and a hook never changes in-flight categorization.
type DiscoveryContext struct {
	TxHash           string
	ScriptAddresses  []string
	HasADAFlow       bool
	EmptyAssetName   bool
}

// DiscoveryHook receives informational "might be a new protocol token"
// events. NoopDiscoveryHook is the provided no-op implementation; nothing
// in this package accepts or calls a hook.
type DiscoveryHook func(unit string, ctx DiscoveryContext)

// NoopDiscoveryHook discards discovery events.
func NoopDiscoveryHook(string, DiscoveryContext) {}
