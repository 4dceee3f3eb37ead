package csvdata

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// ReadPrices lee la tabla de velas. No valida la serie: eso lo hace
// domain.BuildSessions, que conoce las invariantes.
func ReadPrices(r io.Reader) ([]domain.PriceObservation, error) {
	t, err := readTable(r, "game_id", "timestamp", "close")
	if err != nil {
		return nil, fmt.Errorf("csvdata.ReadPrices: %w", err)
	}

	out := make([]domain.PriceObservation, 0, len(t.rows))
	for i, row := range t.rows {
		o, err := priceRow(t, row)
		if err != nil {
			return nil, fmt.Errorf("csvdata.ReadPrices: row %d: %w", i+2, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func priceRow(t table, row []string) (domain.PriceObservation, error) {
	ts, err := t.timestamp(row, "timestamp")
	if err != nil {
		return domain.PriceObservation{}, err
	}
	cl, err := t.float(row, "close")
	if err != nil {
		return domain.PriceObservation{}, err
	}
	o := domain.PriceObservation{GameID: t.get(row, "game_id"), Timestamp: ts, Close: cl, Open: cl, High: cl, Low: cl}
	for col, dst := range map[string]*float64{"open": &o.Open, "high": &o.High, "low": &o.Low} {
		if t.get(row, col) == "" {
			continue
		}
		if *dst, err = t.float(row, col); err != nil {
			return domain.PriceObservation{}, err
		}
	}
	if o.Volume, err = t.intOrZero(row, "volume"); err != nil {
		return domain.PriceObservation{}, err
	}
	return o, nil
}

// ReadEvents lee la tabla de marcador. clock acepta segundos o "MM:SS".
func ReadEvents(r io.Reader) ([]domain.GameEvent, error) {
	t, err := readTable(r, "game_id", "timestamp", "score_a", "score_b")
	if err != nil {
		return nil, fmt.Errorf("csvdata.ReadEvents: %w", err)
	}

	out := make([]domain.GameEvent, 0, len(t.rows))
	for i, row := range t.rows {
		ev, err := eventRow(t, row)
		if err != nil {
			return nil, fmt.Errorf("csvdata.ReadEvents: row %d: %w", i+2, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func eventRow(t table, row []string) (domain.GameEvent, error) {
	ts, err := t.timestamp(row, "timestamp")
	if err != nil {
		return domain.GameEvent{}, err
	}
	a, err := t.intOrZero(row, "score_a")
	if err != nil {
		return domain.GameEvent{}, err
	}
	b, err := t.intOrZero(row, "score_b")
	if err != nil {
		return domain.GameEvent{}, err
	}
	period, err := t.intOrZero(row, "period")
	if err != nil {
		return domain.GameEvent{}, err
	}
	clock, err := parseClock(t.get(row, "clock"))
	if err != nil {
		return domain.GameEvent{}, err
	}
	return domain.GameEvent{
		GameID:    t.get(row, "game_id"),
		Timestamp: ts,
		ScoreA:    int(a),
		ScoreB:    int(b),
		Period:    int(period),
		Clock:     clock,
	}, nil
}

func parseClock(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if m, sec, ok := strings.Cut(s, ":"); ok {
		mv, err1 := strconv.ParseFloat(m, 64)
		sv, err2 := strconv.ParseFloat(sec, 64)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("clock: bad value %q", s)
		}
		return mv*60 + sv, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("clock: %w", err)
	}
	return v, nil
}

// ReadSettlements lee game_id,settlement. Solo acepta 0 o 100.
func ReadSettlements(r io.Reader) (map[string]float64, error) {
	t, err := readTable(r, "game_id", "settlement")
	if err != nil {
		return nil, fmt.Errorf("csvdata.ReadSettlements: %w", err)
	}

	out := make(map[string]float64, len(t.rows))
	for i, row := range t.rows {
		v, err := t.float(row, "settlement")
		if err != nil {
			return nil, fmt.Errorf("csvdata.ReadSettlements: row %d: %w", i+2, err)
		}
		if v != 0 && v != 100 {
			return nil, fmt.Errorf("csvdata.ReadSettlements: row %d: settlement %g not 0 or 100", i+2, v)
		}
		out[t.get(row, "game_id")] = v
	}
	return out, nil
}

// LoadPrices, LoadEvents y LoadSettlements leen desde un fichero.
func LoadPrices(path string) ([]domain.PriceObservation, error) { return openFile(path, ReadPrices) }

func LoadEvents(path string) ([]domain.GameEvent, error) { return openFile(path, ReadEvents) }

func LoadSettlements(path string) (map[string]float64, error) {
	return openFile(path, ReadSettlements)
}

// LoadSessions lee las tres tablas y construye las sesiones validadas.
// eventsPath y settlementsPath son opcionales.
func LoadSessions(pricesPath, eventsPath, settlementsPath string) ([]domain.Session, error) {
	rows, err := LoadPrices(pricesPath)
	if err != nil {
		return nil, fmt.Errorf("csvdata.LoadSessions: %w", err)
	}
	var events []domain.GameEvent
	if eventsPath != "" {
		if events, err = LoadEvents(eventsPath); err != nil {
			return nil, fmt.Errorf("csvdata.LoadSessions: %w", err)
		}
	}
	var settlements map[string]float64
	if settlementsPath != "" {
		if settlements, err = LoadSettlements(settlementsPath); err != nil {
			return nil, fmt.Errorf("csvdata.LoadSessions: %w", err)
		}
	}
	sessions, err := domain.BuildSessions(rows, events, settlements)
	if err != nil {
		return nil, fmt.Errorf("csvdata.LoadSessions: %w", err)
	}
	return sessions, nil
}
