package wallettx

import (
	"fmt"
	"math/big"

	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

// Describe renders a deterministic, human-readable summary of a categorized
// transaction. It never inspects raw chain data directly — only the
// resolved action/protocol/flows — so it stays stable across indexer detail
// changes.
func Describe(action model.Action, protocol model.Protocol, flows []EnrichedFlow) string {
	switch action {
	case model.ActionSend:
		return describeTransfer("Sent", flows)
	case model.ActionReceive:
		return describeTransfer("Received", flows)
	case model.ActionSwap:
		return describeSwap(flows)
	case model.ActionSupply:
		return describeProtocolMove("Supplied", protocol, flows)
	case model.ActionWithdraw:
		return describeProtocolMove("Withdrew", protocol, flows)
	case model.ActionClaimRewards:
		return describeClaim(flows)
	default:
		return "Unknown transaction"
	}
}

func describeTransfer(verb string, flows []EnrichedFlow) string {
	ada, ok := adaFlow(flows)
	if !ok {
		return fmt.Sprintf("%s assets", verb)
	}
	amt := absBase(ada.NetBase)
	return fmt.Sprintf("%s %s ADA", verb, formatBase(amt, 6))
}

func describeSwap(flows []EnrichedFlow) string {
	nonAda := nonADAFlows(flows)
	if len(nonAda) != 2 {
		return "Swapped tokens"
	}
	from, to := nonAda[0], nonAda[1]
	if from.NetBase.Sign() > 0 {
		from, to = to, from
	}
	return fmt.Sprintf("Swapped %s %s for %s %s",
		formatBase(absBase(from.NetBase), from.Token.Decimals), symbolOf(from.Token),
		formatBase(absBase(to.NetBase), to.Token.Decimals), symbolOf(to.Token))
}

func describeProtocolMove(verb string, protocol model.Protocol, flows []EnrichedFlow) string {
	ada, ok := adaFlow(flows)
	if !ok {
		return fmt.Sprintf("%s to %s", verb, protocol)
	}
	return fmt.Sprintf("%s %s ADA %s %s", verb, formatBase(absBase(ada.NetBase), 6), prepositionFor(verb), protocol)
}

func prepositionFor(verb string) string {
	if verb == "Withdrew" {
		return "from"
	}
	return "to"
}

func describeClaim(flows []EnrichedFlow) string {
	ada, ok := adaFlow(flows)
	if !ok || ada.NetBase.Sign() <= 0 {
		return "Claimed staking rewards"
	}
	return fmt.Sprintf("Claimed %s ADA in staking rewards", formatBase(ada.NetBase, 6))
}

func symbolOf(t model.Token) string {
	if t.Ticker != "" {
		return t.Ticker
	}
	if t.Name != "" {
		return t.Name
	}
	return "tokens"
}

func absBase(v *big.Int) *big.Int {
	return new(big.Int).Abs(zeroIfNil(v))
}

// formatBase renders a base-unit integer amount with decimals decimal
// places, e.g. formatBase(1500000, 6) -> "1.5".
func formatBase(v *big.Int, decimals int) string {
	if decimals <= 0 {
		return v.String()
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(v, scale, frac)
	frac.Abs(frac)
	fracStr := frac.String()
	for len(fracStr) < decimals {
		fracStr = "0" + fracStr
	}
	for len(fracStr) > 1 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}
	if fracStr == "0" {
		return whole.String()
	}
	return fmt.Sprintf("%s.%s", whole.String(), fracStr)
}
