package models

import "github.com/shopspring/decimal"

// TaxSummary is the result of the swing-trade tax rule over a set of operations.
type TaxSummary struct {
	TotalSells decimal.Decimal `json:"total_sells"`
	TotalBuys  decimal.Decimal `json:"total_buys"`
	NetResult  decimal.Decimal `json:"net_result"`
	TaxOwed    decimal.Decimal `json:"tax_owed"`
	Exempt     bool            `json:"exempt"`
}

// LedgerSummary holds the two ledger aggregates.
type LedgerSummary struct {
	TotalBalance       decimal.Decimal `json:"total_balance"`
	RealizedProfitLoss decimal.Decimal `json:"realized_profit_loss"`
}

// SaleDetail is one sell slice matched against one purchase lot.
type SaleDetail struct {
	AssetCode string          `json:"asset_code"`
	SaleDate  string          `json:"sale_date"`
	BuyDate   string          `json:"buy_date"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"sale_price"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SaleFee   decimal.Decimal `json:"sale_fee"` // pro-rated share of the sell's fee
	Delta     decimal.Decimal `json:"delta"`    // (SalePrice - BuyPrice) * Quantity
}

// PurchaseLot is what remains open of a buy after matching.
type PurchaseLot struct {
	AssetCode string          `json:"asset_code"`
	BuyDate   string          `json:"buy_date"`
	Quantity  int             `json:"quantity"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
}

// UnmatchedSale records sell quantity that had no open lot to match.
type UnmatchedSale struct {
	AssetCode string `json:"asset_code"`
	SaleDate  string `json:"sale_date"`
	Quantity  int    `json:"quantity"`
}

// LotMatchResult bundles the output of lot matching.
type LotMatchResult struct {
	Sales     []SaleDetail             `json:"sales"`
	Holdings  map[string][]PurchaseLot `json:"holdings"`
	Unmatched []UnmatchedSale          `json:"unmatched"`
}

// AssetSummary aggregates the operations of one asset over a period.
type AssetSummary struct {
	AssetCode     string          `json:"asset_code"`
	Operations    int             `json:"operations"`
	TotalQuantity int             `json:"total_quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"` // plain mean of the unit prices
	TotalValue    decimal.Decimal `json:"total_value"`
}
