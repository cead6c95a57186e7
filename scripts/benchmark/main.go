// Benchmark drives repeated validate requests against a running stproxy
// instance and reports phase timings. Each run is a full browser session
// against the remote app, so keep run counts low.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "stproxy API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per sample for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Sample inputs covering short, medium, and long submissions.
var samples = []struct {
	Label string
	Text  string
}{
	{"Short", "The capital of France is Paris."},
	{"Claim", "Drinking eight glasses of water a day is required for good health."},
	{"Paragraph", strings.Repeat("The stock market always goes up in election years. ", 10)},
}

// --- Request / Response types (mirrors models package) ---

type validateRequest struct {
	Text    string `json:"text"`
	Timeout int    `json:"timeout"`
}

type validateResponse struct {
	Success bool         `json:"success"`
	Result  string       `json:"result"`
	Filled  bool         `json:"filled"`
	Clicked bool         `json:"clicked"`
	Timing  timingInfo   `json:"timing"`
	Error   *errorDetail `json:"error,omitempty"`
}

type timingInfo struct {
	TotalMs     int64 `json:"total_ms"`
	BootstrapMs int64 `json:"bootstrap_ms"`
	DispatchMs  int64 `json:"dispatch_ms"`
	HarvestMs   int64 `json:"harvest_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	BootstrapMs  int64  `json:"bootstrap_ms"`
	DispatchMs   int64  `json:"dispatch_ms"`
	HarvestMs    int64  `json:"harvest_ms"`
	ResultLength int    `json:"result_length"`
	Filled       bool   `json:"filled"`
	Clicked      bool   `json:"clicked"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type sampleAverages struct {
	TotalMs      float64 `json:"total_ms"`
	BootstrapMs  float64 `json:"bootstrap_ms"`
	DispatchMs   float64 `json:"dispatch_ms"`
	HarvestMs    float64 `json:"harvest_ms"`
	ResultLength float64 `json:"result_length"`
}

type sampleResult struct {
	Label    string          `json:"label"`
	Runs     []runResult     `json:"runs"`
	Averages *sampleAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp    string         `json:"timestamp"`
	APIURL       string         `json:"api_url"`
	RunsPerInput int            `json:"runs_per_input"`
	Results      []sampleResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Stproxy Benchmark Suite ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Runs/input: %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure stproxy is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		APIURL:       *apiURL,
		RunsPerInput: *runs,
	}

	for _, t := range samples {
		fmt.Printf("Benchmarking [%s] ...\n", t.Label)
		sr := sampleResult{Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkInput(t.Text, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d chars\n", rr.TotalMs, rr.ResultLength)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			sr.Runs = append(sr.Runs, rr)
		}

		sr.Averages = computeAverages(sr.Runs)
		report.Results = append(report.Results, sr)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkInput(text string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(validateRequest{Text: text, Timeout: 90})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/validate", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 150 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var vr validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = vr.Success
	rr.TotalMs = vr.Timing.TotalMs
	rr.BootstrapMs = vr.Timing.BootstrapMs
	rr.DispatchMs = vr.Timing.DispatchMs
	rr.HarvestMs = vr.Timing.HarvestMs
	rr.ResultLength = len(vr.Result)
	rr.Filled = vr.Filled
	rr.Clicked = vr.Clicked

	if vr.Error != nil {
		rr.Error = vr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *sampleAverages {
	var successCount int
	var avg sampleAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.BootstrapMs += float64(r.BootstrapMs)
		avg.DispatchMs += float64(r.DispatchMs)
		avg.HarvestMs += float64(r.HarvestMs)
		avg.ResultLength += float64(r.ResultLength)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.BootstrapMs /= n
	avg.DispatchMs /= n
	avg.HarvestMs /= n
	avg.ResultLength /= n
	return &avg
}

func printTable(results []sampleResult) {
	fmt.Println(strings.Repeat("─", 75))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Input\tAvg Total\tBootstrap\tDispatch\tHarvest\tResult Len\n")
	fmt.Fprintf(w, "─────\t─────────\t─────────\t────────\t───────\t──────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t-\n", r.Label)
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%dms\t%d\n",
			r.Label,
			int64(r.Averages.TotalMs),
			int64(r.Averages.BootstrapMs),
			int64(r.Averages.DispatchMs),
			int64(r.Averages.HarvestMs),
			int(r.Averages.ResultLength),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 75))
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
