package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"bist-signal-engine/internal/backtest"
)

type symbolStats struct {
	Symbol        string
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	ActiveTrades  int
	TotalProfit   float64
	WinRate       float64
	AvgProfit     float64
}

func main() {
	dataPath := flag.String("data", "data/backtest_trades.json", "path to the trade history document")
	top := flag.Int("top", 20, "number of symbols to list")
	flag.Parse()

	store, err := backtest.NewFileStore(*dataPath)
	if err != nil {
		fmt.Printf("failed to open trade store: %v\n", err)
		os.Exit(1)
	}

	trades, err := store.LoadAll(context.Background())
	if err != nil {
		fmt.Printf("failed to load trade history: %v\n", err)
		os.Exit(1)
	}
	if len(trades) == 0 {
		fmt.Println("no recorded signals yet")
		return
	}

	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("BIST SIGNAL BACKTEST REPORT")
	fmt.Println(strings.Repeat("=", 72))

	bySymbol := make(map[string]*symbolStats)
	var completed, wins int
	var profitSum float64
	exitCounts := map[string]int{}

	for _, t := range trades {
		s := bySymbol[t.Symbol]
		if s == nil {
			s = &symbolStats{Symbol: t.Symbol}
			bySymbol[t.Symbol] = s
		}
		s.TotalTrades++

		if t.Status != backtest.StatusCompleted {
			s.ActiveTrades++
			continue
		}

		completed++
		profitSum += t.ProfitPct
		exitCounts[t.ExitReason]++
		s.TotalProfit += t.ProfitPct
		if t.ProfitPct > 0 {
			wins++
			s.WinningTrades++
		} else {
			s.LosingTrades++
		}
	}

	fmt.Printf("\nSignals: %d total, %d completed, %d active\n",
		len(trades), completed, len(trades)-completed)
	if completed > 0 {
		fmt.Printf("Win rate: %.1f%%   Avg profit: %+.2f%%\n",
			float64(wins)/float64(completed)*100, profitSum/float64(completed))
	}
	fmt.Printf("Exits: %d take-profit, %d stop-loss, %d timeout\n",
		exitCounts[backtest.ExitTakeProfit],
		exitCounts[backtest.ExitStopLoss],
		exitCounts[backtest.ExitTimeout])

	stats := make([]*symbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		done := s.WinningTrades + s.LosingTrades
		if done > 0 {
			s.WinRate = float64(s.WinningTrades) / float64(done) * 100
			s.AvgProfit = s.TotalProfit / float64(done)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalProfit != stats[j].TotalProfit {
			return stats[i].TotalProfit > stats[j].TotalProfit
		}
		return stats[i].Symbol < stats[j].Symbol
	})

	fmt.Printf("\n%-8s %6s %5s %6s %8s %9s %7s\n",
		"SYMBOL", "TOTAL", "WINS", "LOSSES", "WINRATE", "AVGPROFIT", "ACTIVE")
	fmt.Println(strings.Repeat("-", 72))
	for i, s := range stats {
		if i >= *top {
			break
		}
		fmt.Printf("%-8s %6d %5d %6d %7.1f%% %+8.2f%% %7d\n",
			s.Symbol, s.TotalTrades, s.WinningTrades, s.LosingTrades,
			s.WinRate, s.AvgProfit, s.ActiveTrades)
	}
}
