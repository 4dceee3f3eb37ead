package csvdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

var tradeHeader = []string{
	"game_id", "direction", "entry_time", "exit_time", "entry_price", "exit_price",
	"contracts", "exit_reason", "points", "gross_pl", "fees", "net_pl", "session_minute",
}

// WriteTrades exporta trades en CSV para análisis externo.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return fmt.Errorf("csvdata.WriteTrades: %w", err)
	}
	for _, t := range trades {
		rec := []string{
			t.GameID, t.Direction.String(),
			t.EntryTime.Format(time.RFC3339), t.ExitTime.Format(time.RFC3339),
			formatF(t.EntryPrice), formatF(t.ExitPrice),
			strconv.Itoa(t.Contracts), string(t.ExitReason),
			formatF(t.Points), formatF(t.GrossPL), formatF(t.Fees), formatF(t.NetPL),
			strconv.Itoa(t.SessionMinute),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csvdata.WriteTrades: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvdata.WriteTrades: %w", err)
	}
	return nil
}

// SaveTrades escribe trades en path, reemplazándolo.
func SaveTrades(path string, trades []domain.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvdata.SaveTrades: %w", err)
	}
	if err := WriteTrades(f, trades); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
