package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/searchlens/ctrpipeline/internal/config"
	"github.com/searchlens/ctrpipeline/internal/report"
)

// ClickHouse exports finished CTR reports to an analytics table so runs can
// be queried across time. The CSV report stays the primary output; this sink
// is enabled only when an address is configured.
type ClickHouse struct {
	conn  driver.Conn
	table string
}

func NewClickHouse(cfg config.ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &ClickHouse{conn: conn, table: cfg.Table}, nil
}

// InsertProductStats appends one row per product, stamped with the run id
// and generation time shared by the CSV outputs.
func (c *ClickHouse) InsertProductStats(ctx context.Context, runID string, generatedAt time.Time, stats []report.ProductStat) error {
	if len(stats) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO `+c.table+` (
			run_id, generated_at, product,
			total_sessions, sessions_with_clicks, ctr
		)
	`)
	if err != nil {
		return err
	}

	for _, s := range stats {
		err := batch.Append(
			runID, generatedAt, s.Product,
			uint64(s.TotalSessions), uint64(s.SessionsWithClicks), s.CTR,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
