package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSeries indica huecos, timestamps no monótonos o precios
	// fuera de rango en la tabla de entrada.
	ErrMalformedSeries = errors.New("malformed price series")

	// ErrInvalidParameters indica un punto del grid fuera del espacio válido.
	ErrInvalidParameters = errors.New("invalid strategy parameters")

	// ErrInsufficientData indica una combinación con menos trades que min_trades.
	// El grid la excluye en silencio; solo se expone para callers directos.
	ErrInsufficientData = errors.New("insufficient trades for statistics")
)

// MalformedSeriesError localiza el problema dentro de la serie.
type MalformedSeriesError struct {
	GameID string
	Index  int
	Reason string
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("game %s row %d: %s", e.GameID, e.Index, e.Reason)
}

// Is permite errors.Is(err, ErrMalformedSeries).
func (e *MalformedSeriesError) Is(target error) bool {
	return target == ErrMalformedSeries
}
