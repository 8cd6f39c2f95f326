package model

type Chain string

const (
	ChainCosmosHub Chain = "cosmoshub"
	ChainOsmosis   Chain = "osmosis"
	ChainTerra     Chain = "terra"
	ChainTerra2    Chain = "terra2"
	ChainAlgorand  Chain = "algorand"
	ChainSolana    Chain = "solana"
)

func (c Chain) String() string {
	return string(c)
}

// Exchange returns the tag written into Row.Exchange for rows produced on
// this chain (e.g. "osmosis_blockchain").
func (c Chain) Exchange() string {
	return string(c) + "_blockchain"
}

// Family groups chains that share a raw transaction format.
type Family string

const (
	FamilyCosmos   Family = "cosmos"
	FamilyAlgorand Family = "algorand"
	FamilySolana   Family = "solana"
)

func (c Chain) Family() Family {
	switch c {
	case ChainAlgorand:
		return FamilyAlgorand
	case ChainSolana:
		return FamilySolana
	default:
		return FamilyCosmos
	}
}

type TxType string

const (
	TxTypeTransferIn    TxType = "TRANSFER_IN"
	TxTypeTransferOut   TxType = "TRANSFER_OUT"
	TxTypeTrade         TxType = "TRADE"
	TxTypeStakingReward TxType = "STAKING_REWARD"
	TxTypeLPDeposit     TxType = "LP_DEPOSIT"
	TxTypeLPWithdraw    TxType = "LP_WITHDRAW"
	TxTypeAirdrop       TxType = "AIRDROP"
	TxTypeSpendFee      TxType = "SPEND_FEE"
	TxTypeUnknown       TxType = "UNKNOWN"
	TxTypeNoop          TxType = "NOOP"
)

func (t TxType) String() string {
	return string(t)
}
