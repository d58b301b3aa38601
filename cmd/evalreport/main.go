package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/viniciusmartins/jurisrag/internal/eval"
	"github.com/viniciusmartins/jurisrag/internal/evalqueue"
)

// #region main
func main() {
	dbPath := flag.String("db", "", "path to the evaluation history database")
	window := flag.Int("window", 7, "summary window in days")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: evalreport --db path/to/history.db [--window N] [--json]")
		os.Exit(2)
	}

	history, err := eval.NewSQLiteHistory(*dbPath, eval.DefaultHistoryCapacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer history.Close()

	evaluator := eval.NewEvaluator(nil, history, true, nil)
	summary, err := evaluator.Summary(*window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "summary: %v\n", err)
		os.Exit(1)
	}

	deadLetters, err := evalqueue.DeadLetterCount(history.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "dead letter: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		printJSON(summary, deadLetters)
		return
	}
	printText(summary, deadLetters)
}

// #endregion main

// #region output
type report struct {
	Status            string                            `json:"status"`
	WindowDays        int                               `json:"window_days"`
	TotalEvaluations  int                               `json:"total_evaluations"`
	AllTimeCount      int                               `json:"all_time_count"`
	OverallMeanScore  float64                           `json:"overall_mean_score,omitempty"`
	Metrics           map[eval.Metric]eval.SummaryStats `json:"metrics,omitempty"`
	EvaluationsPerDay float64                           `json:"evaluations_per_day,omitempty"`
	LastEvaluation    string                            `json:"last_evaluation,omitempty"`
	DeadLetters       int                               `json:"dead_letters"`
}

func printJSON(s eval.Summary, deadLetters int) {
	r := report{
		Status:            s.Status,
		WindowDays:        s.WindowDays,
		TotalEvaluations:  s.TotalEvaluations,
		AllTimeCount:      s.AllTimeCount,
		OverallMeanScore:  s.OverallMeanScore,
		Metrics:           s.MetricStatistics,
		EvaluationsPerDay: s.EvaluationsPerDay,
		DeadLetters:       deadLetters,
	}
	if !s.LastEvaluation.IsZero() {
		r.LastEvaluation = s.LastEvaluation.Format(time.RFC3339)
	}
	out, _ := json.MarshalIndent(r, "", "  ")
	fmt.Println(string(out))
}

func printText(s eval.Summary, deadLetters int) {
	fmt.Printf("Janela: últimos %d dias\n", s.WindowDays)

	switch s.Status {
	case eval.SummaryNoHistory:
		fmt.Println("Nenhuma avaliação registrada.")
		return
	case eval.SummaryNoneInWindow:
		fmt.Printf("Nenhuma avaliação na janela (%d no histórico).\n", s.AllTimeCount)
		return
	}

	fmt.Printf("Avaliações: %d na janela, %d no histórico\n", s.TotalEvaluations, s.AllTimeCount)
	fmt.Printf("Nota geral média: %.3f\n", s.OverallMeanScore)
	fmt.Printf("Avaliações por dia: %.2f\n", s.EvaluationsPerDay)
	fmt.Printf("Última avaliação: %s\n", s.LastEvaluation.Format(time.RFC3339))
	fmt.Printf("Amostras não avaliadas (dead letter): %d\n", deadLetters)

	metrics := make([]eval.Metric, 0, len(s.MetricStatistics))
	for m := range s.MetricStatistics {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	fmt.Println("\nMétricas:")
	for _, m := range metrics {
		st := s.MetricStatistics[m]
		fmt.Printf("  %-20s média %.3f  min %.3f  max %.3f  (n=%d)\n",
			m, st.Mean, st.Min, st.Max, st.Count)
	}
}

// #endregion output
