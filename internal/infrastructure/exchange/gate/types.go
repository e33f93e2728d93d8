package gate

// bookResp is the /spot/order_book shape: [price, size] string pairs.
type bookResp struct {
	Asks [][2]string `json:"asks"`
	Bids [][2]string `json:"bids"`
}

type pairMeta struct {
	ID              string `json:"id"`
	Precision       int    `json:"precision"`
	AmountPrecision int    `json:"amount_precision"`
	MinBaseAmount   string `json:"min_base_amount"`
	MinQuoteAmount  string `json:"min_quote_amount"`
}

type orderResp struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	Left         string `json:"left"`
	FilledAmount string `json:"filled_amount"`
	AvgDealPrice string `json:"avg_deal_price"`
}

type accountResp struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
}
