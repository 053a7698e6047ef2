package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool // resumen final como tabla completa en vez de líneas compactas
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCycle imprime el resumen de un ciclo en una línea.
func (c *Console) NotifyCycle(_ context.Context, sum domain.CycleSummary) error {
	now := time.Now().Format("15:04:05")
	if sum.RoundTrips == 0 {
		fmt.Fprintf(c.out, "[%s] block %d · %d pairs · no round trips\n", now, sum.Block, sum.Pairs)
		return nil
	}
	line := fmt.Sprintf("[%s] block %d · %d pairs · %d rt · best %+.3f%% (net %+.3f%%) · cross %d · alerts %d",
		now, sum.Block, sum.Pairs, sum.RoundTrips,
		sum.BestSpreadPct, sum.BestNetPct, sum.Crossings, sum.Alerts)
	if sum.QuoteErrors.Total() > 0 {
		line += " · qfail " + sum.QuoteErrors.String()
	}
	fmt.Fprintln(c.out, line)
	return nil
}

// NotifyAlert imprime una alerta sobre el umbral (ya deduplicada).
func (c *Console) NotifyAlert(_ context.Context, rt domain.RoundTrip) error {
	fmt.Fprintf(c.out, "[%s] ALERT %s %s $%.0f · spread %+.4f%% · net %+.4f%% ($%.4f)\n",
		time.Now().Format("15:04:05"),
		rt.Pair, rt.Direction(), rt.NotionalUSD,
		rt.SpreadPct, rt.NetPct, rt.NetUSD)
	return nil
}

// NotifyPersistence imprime el cierre de una excursión sostenida.
func (c *Console) NotifyPersistence(_ context.Context, ev domain.PersistenceEvent) error {
	fmt.Fprintf(c.out, "[%s] PERSISTED %s %s $%.0f · %d obs (%s) · max %+.4f%%\n",
		time.Now().Format("15:04:05"),
		ev.Pair, ev.Direction, ev.NotionalUSD,
		ev.Duration, ev.WallDuration.Round(time.Second), ev.MaxSpread)
	return nil
}

// Summary imprime el resumen final por (par, notional) con su veredicto.
func (c *Console) Summary(stats map[domain.StatsKey]domain.PairStats) error {
	if len(stats) == 0 {
		fmt.Fprintln(c.out, "no observations recorded")
		return nil
	}

	keys := make([]domain.StatsKey, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Pair != keys[j].Pair {
			return keys[i].Pair < keys[j].Pair
		}
		return keys[i].NotionalUSD < keys[j].NotionalUSD
	})

	if !c.table {
		for _, k := range keys {
			st := stats[k]
			fmt.Fprintf(c.out, "%s $%.0f · checks %d · best %+.4f%% · x0.3 %d x0.5 %d x1.0 %d · persisted %d · mean net %+.4f%% · fails %s → %s\n",
				k.Pair, k.NotionalUSD, st.Checks, st.BestSpreadPct,
				st.CrossedLow, st.CrossedMid, st.CrossedHigh,
				st.PersistenceEvents, st.MeanNetPct(), st.QuoteFailures.String(), st.Verdict())
		}
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Pair", "Notional", "Checks", "Best %", "≥0.3", "≥0.5", "≥1.0", "Persisted", "Mean net %", "Fails", "Verdict")
	for _, k := range keys {
		st := stats[k]
		table.Append(
			k.Pair,
			fmt.Sprintf("$%.0f", k.NotionalUSD),
			fmt.Sprintf("%d", st.Checks),
			fmt.Sprintf("%+.4f", st.BestSpreadPct),
			fmt.Sprintf("%d", st.CrossedLow),
			fmt.Sprintf("%d", st.CrossedMid),
			fmt.Sprintf("%d", st.CrossedHigh),
			fmt.Sprintf("%d", st.PersistenceEvents),
			fmt.Sprintf("%+.4f", st.MeanNetPct()),
			st.QuoteFailures.String(),
			st.Verdict(),
		)
	}
	table.Render()
	return nil
}
