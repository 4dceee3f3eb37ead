package kalshi

// candlesticksResponse es la respuesta de /markets/{ticker}/candlesticks.
// Los precios vienen en centavos enteros; null si no hubo trades en el minuto.
type candlesticksResponse struct {
	Ticker       string        `json:"ticker"`
	Candlesticks []candlestick `json:"candlesticks"`
}

type candlestick struct {
	EndPeriodTS int64 `json:"end_period_ts"`
	Price       ohlc  `json:"price"`
	YesBid      ohlc  `json:"yes_bid"`
	YesAsk      ohlc  `json:"yes_ask"`
	Volume      int64 `json:"volume"`
}

type ohlc struct {
	Open  *float64 `json:"open"`
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Close *float64 `json:"close"`
}

// orderbookResponse es la respuesta de /markets/{ticker}/orderbook.
// Cada nivel es [precio, cantidad], ordenados de menor a mayor precio.
type orderbookResponse struct {
	Orderbook struct {
		Yes [][2]float64 `json:"yes"`
		No  [][2]float64 `json:"no"`
	} `json:"orderbook"`
}
