package polygon

// Query parameter sets, encoded with go-playground/form.

type tickersParams struct {
	Market string `form:"market,omitempty"`
	Active bool   `form:"active"`
	Limit  int    `form:"limit,omitempty"`
	Order  string `form:"order,omitempty"`
}

type financialsParams struct {
	Ticker    string `form:"ticker"`
	Timeframe string `form:"timeframe,omitempty"`
	Limit     int    `form:"limit,omitempty"`
	Order     string `form:"order,omitempty"`
}

type aggregatesParams struct {
	Adjusted bool   `form:"adjusted"`
	Sort     string `form:"sort,omitempty"`
	Limit    int    `form:"limit,omitempty"`
}
