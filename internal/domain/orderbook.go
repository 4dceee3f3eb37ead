package domain

import "time"

// OrderBook es el libro de un mercado binario de Kalshi. El exchange solo
// publica bids: los asks de YES se derivan de los bids de NO (100 - bid).
type OrderBook struct {
	Ticker    string
	YesBids   []BookEntry // ordenados mayor a menor precio
	NoBids    []BookEntry // ordenados mayor a menor precio
	FetchedAt time.Time
}

// BookEntry es un nivel de precio en centavos con su tamaño en contratos.
type BookEntry struct {
	Price float64
	Size  float64
}

// YesBid devuelve el mejor bid de YES. 0 si no hay bids.
func (ob OrderBook) YesBid() float64 {
	if len(ob.YesBids) == 0 {
		return 0
	}
	return ob.YesBids[0].Price
}

// YesAsk devuelve el mejor ask implícito de YES (100 - mejor bid de NO).
// 0 si no hay bids de NO.
func (ob OrderBook) YesAsk() float64 {
	if len(ob.NoBids) == 0 {
		return 0
	}
	return 100 - ob.NoBids[0].Price
}

// Midpoint devuelve el mid entre YesBid y YesAsk; si falta un lado devuelve
// el disponible, y 0 si el libro está vacío.
func (ob OrderBook) Midpoint() float64 {
	bid, ask := ob.YesBid(), ob.YesAsk()
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case bid > 0:
		return bid
	default:
		return ask
	}
}

// Spread devuelve ask - bid de YES, o 0 si falta un lado.
func (ob OrderBook) Spread() float64 {
	bid, ask := ob.YesBid(), ob.YesAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}
