package storage

// sqlite.go — persistencia de grids de búsqueda.
//
// Estrategia:
//   - `search_runs`: una fila por grid, con el resumen y el snapshot de config.
//   - `strategy_results`: una fila por celda válida. Las métricas que se
//     consultan (sharpe, p-values, flags) van en columnas; el bundle completo
//     va serializado para poder reconstruir el resultado sin recalcular.
//   - Los trades no se persisten: se regeneran re-simulando con el snapshot.
//   - Prune automático al arrancar: runs > 90d.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_runs (
    id                 TEXT PRIMARY KEY,
    started_at         DATETIME NOT NULL,
    games              INTEGER  NOT NULL DEFAULT 0,
    cells_attempted    INTEGER  NOT NULL DEFAULT 0,
    cells_insufficient INTEGER  NOT NULL DEFAULT 0,
    cells_valid        INTEGER  NOT NULL DEFAULT 0,
    bonferroni         INTEGER  NOT NULL DEFAULT 0,
    fdr                INTEGER  NOT NULL DEFAULT 0,
    naive              INTEGER  NOT NULL DEFAULT 0,
    family_size        INTEGER  NOT NULL DEFAULT 0,
    alpha              REAL     NOT NULL DEFAULT 0,
    elapsed_ms         INTEGER  NOT NULL DEFAULT 0,
    config             TEXT
);

CREATE TABLE IF NOT EXISTS strategy_results (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT    NOT NULL,
    cell            TEXT    NOT NULL,
    signal          TEXT    NOT NULL,
    price_min       REAL    NOT NULL,
    price_max       REAL    NOT NULL,
    move_threshold  REAL    NOT NULL,
    hold_period     INTEGER NOT NULL,
    n               INTEGER NOT NULL,
    win_rate        REAL    NOT NULL DEFAULT 0,
    mean_net_pl     REAL    NOT NULL DEFAULT 0,
    total_net_pl    REAL    NOT NULL DEFAULT 0,
    sharpe          REAL    NOT NULL DEFAULT 0,
    max_drawdown    REAL    NOT NULL DEFAULT 0,
    p_value         REAL    NOT NULL DEFAULT 1,
    bonferroni_p    REAL    NOT NULL DEFAULT 1,
    fdr_q           REAL    NOT NULL DEFAULT 1,
    bonferroni_sig  INTEGER NOT NULL DEFAULT 0,
    fdr_sig         INTEGER NOT NULL DEFAULT 0,
    consistent      INTEGER NOT NULL DEFAULT 0,
    stats_json      TEXT,
    robustness_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started   ON search_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_run    ON strategy_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_sharpe ON strategy_results(run_id, sharpe DESC);
`

const retentionRuns = 90 * 24 * time.Hour

// timeLayout es de ancho fijo para que ORDER BY sobre el texto sea cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoRuns indica que todavía no se ha persistido ningún grid.
var ErrNoRuns = errors.New("no search runs stored")

// SQLiteStorage implementa ports.ResultStorage y ports.PaperStorage usando
// SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

var (
	_ ports.ResultStorage = (*SQLiteStorage)(nil)
	_ ports.PaperStorage  = (*SQLiteStorage)(nil)
)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el run y todas sus celdas válidas en una transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.SearchRun, config string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	sum := run.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO search_runs
			(id, started_at, games, cells_attempted, cells_insufficient, cells_valid,
			 bonferroni, fdr, naive, family_size, alpha, elapsed_ms, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Games,
		sum.CellsAttempted, sum.CellsInsufficientData, sum.CellsValid,
		sum.BonferroniSignificant, sum.FDRSignificant, sum.NaiveSignificant,
		sum.FamilySize, sum.Alpha, sum.Elapsed.Milliseconds(), config,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strategy_results
			(run_id, cell, signal, price_min, price_max, move_threshold, hold_period,
			 n, win_rate, mean_net_pl, total_net_pl, sharpe, max_drawdown,
			 p_value, bonferroni_p, fdr_q, bonferroni_sig, fdr_sig, consistent,
			 stats_json, robustness_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		statsJSON, err := json.Marshal(r.Stats)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: encode stats %s: %w", r.Params.Name(), err)
		}
		robJSON, err := json.Marshal(r.Robustness)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: encode robustness %s: %w", r.Params.Name(), err)
		}
		p := r.Params
		if _, err := stmt.ExecContext(ctx,
			run.ID, p.Name(), r.Signal, p.PriceMin, p.PriceMax, p.MoveThreshold, p.HoldPeriod,
			r.Stats.N, r.Stats.WinRate, r.Stats.MeanNetPL, r.Stats.TotalNetPL,
			r.Stats.SharpeRatio, r.Stats.MaxDrawdown,
			r.Stats.PValue, r.BonferroniPValue, r.FDRQValue,
			boolInt(r.BonferroniSignificant), boolInt(r.FDRSignificant), boolInt(r.Robustness.Consistent),
			string(statsJSON), string(robJSON),
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert %s: %w", p.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// LatestRun devuelve el run más reciente con sus resultados (sin trades),
// en el orden en que se guardaron. ErrNoRuns si la tabla está vacía.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (domain.SearchRun, error) {
	infos, err := s.ListRuns(ctx, 1)
	if err != nil {
		return domain.SearchRun{}, fmt.Errorf("storage.LatestRun: %w", err)
	}
	if len(infos) == 0 {
		return domain.SearchRun{}, fmt.Errorf("storage.LatestRun: %w", ErrNoRuns)
	}
	info := infos[0]
	run := domain.SearchRun{ID: info.ID, StartedAt: info.StartedAt, Games: info.Games, Summary: info.Summary}

	rows, err := s.db.QueryContext(ctx, `
		SELECT signal, price_min, price_max, move_threshold, hold_period,
		       bonferroni_p, fdr_q, bonferroni_sig, fdr_sig, stats_json, robustness_json
		FROM strategy_results
		WHERE run_id = ?
		ORDER BY id`, info.ID)
	if err != nil {
		return domain.SearchRun{}, fmt.Errorf("storage.LatestRun: query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.StrategyResult
		var bonf, fdr int
		var statsJSON, robJSON sql.NullString
		if err := rows.Scan(
			&r.Signal, &r.Params.PriceMin, &r.Params.PriceMax, &r.Params.MoveThreshold, &r.Params.HoldPeriod,
			&r.BonferroniPValue, &r.FDRQValue, &bonf, &fdr, &statsJSON, &robJSON,
		); err != nil {
			return domain.SearchRun{}, fmt.Errorf("storage.LatestRun: scan row: %w", err)
		}
		r.BonferroniSignificant = bonf == 1
		r.FDRSignificant = fdr == 1
		if statsJSON.Valid {
			if err := json.Unmarshal([]byte(statsJSON.String), &r.Stats); err != nil {
				return domain.SearchRun{}, fmt.Errorf("storage.LatestRun: decode stats: %w", err)
			}
		}
		if robJSON.Valid {
			if err := json.Unmarshal([]byte(robJSON.String), &r.Robustness); err != nil {
				return domain.SearchRun{}, fmt.Errorf("storage.LatestRun: decode robustness: %w", err)
			}
		}
		run.Results = append(run.Results, r)
	}
	return run, rows.Err()
}

// ListRuns devuelve las cabeceras de los últimos limit runs, más reciente primero.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]ports.RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, games, cells_attempted, cells_insufficient, cells_valid,
		       bonferroni, fdr, naive, family_size, alpha, elapsed_ms, COALESCE(config, '')
		FROM search_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var out []ports.RunInfo
	for rows.Next() {
		var info ports.RunInfo
		var started string
		var elapsedMs int64
		sum := &info.Summary
		if err := rows.Scan(
			&info.ID, &started, &info.Games,
			&sum.CellsAttempted, &sum.CellsInsufficientData, &sum.CellsValid,
			&sum.BonferroniSignificant, &sum.FDRSignificant, &sum.NaiveSignificant,
			&sum.FamilySize, &sum.Alpha, &elapsedMs, &info.Config,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		info.StartedAt, _ = time.Parse(timeLayout, started)
		sum.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns).Format(timeLayout)
	s.db.ExecContext(ctx, `DELETE FROM strategy_results WHERE run_id IN
		(SELECT id FROM search_runs WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM search_runs WHERE started_at < ?`, cutoff)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
