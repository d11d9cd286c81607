package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/flushwatch/internal/cli/output"
	"github.com/marmos91/flushwatch/pkg/api"
	"github.com/marmos91/flushwatch/pkg/api/handlers"
)

var (
	statusOutput string
	statusAddr   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler status",
	Long: `Display the status of a running flushwatch instance.

This command queries the /caches endpoint of the status API and shows the
scan interval, worker pool, and per-cache flush counters.

Examples:
  # Check status of the local instance
  flushwatch status

  # Check a remote instance
  flushwatch status --addr 10.0.0.5:9470

  # Output as JSON
  flushwatch status --output json`,
	RunE: runStatus,
}

func init() {
	defaultAddr := net.JoinHostPort("localhost", strconv.Itoa(api.DefaultPort))
	statusCmd.Flags().StringVar(&statusAddr, "addr", defaultAddr, "Status API address (host:port)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

type statusEnvelope struct {
	Status string                     `json:"status"`
	Data   handlers.SchedulerResponse `json:"data"`
	Error  string                     `json:"error,omitempty"`
}

// cacheTable renders scheduler status as one row per cache.
type cacheTable struct {
	status handlers.SchedulerResponse
	now    time.Time
}

func (t cacheTable) Headers() []string {
	return []string{"Cache", "Interval", "Queue", "Due", "In flight", "Dispatches", "Failures", "Skipped", "Last dispatch", "Last error"}
}

func (t cacheTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.status.Caches))
	for _, c := range t.status.Caches {
		queue := "empty"
		if !c.QueueEmpty {
			queue = "pending"
		}
		last := time.Time{}
		if c.LastDispatch != nil {
			last = *c.LastDispatch
		}
		rows = append(rows, []string{
			c.ID,
			c.FlushInterval,
			queue,
			strconv.FormatBool(c.DueForSync),
			strconv.FormatBool(c.InFlight),
			strconv.FormatUint(c.Dispatches, 10),
			strconv.FormatUint(c.Failures, 10),
			strconv.FormatUint(c.Skipped, 10),
			output.Ago(last, t.now),
			c.LastError,
		})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status, err := fetchStatus(statusAddr)
	if err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format != output.FormatTable {
		return printer.Print(status)
	}

	state := "running"
	if !status.Running {
		state = "stopped"
	}
	if status.Fatal != "" {
		state = "failed: " + status.Fatal
	}

	if err := output.KeyValueTable(printer.Writer(), [][2]string{
		{"Scheduler", state},
		{"Scan interval", status.ScanInterval},
		{"Workers", strconv.Itoa(status.Workers)},
		{"Pending", strconv.Itoa(status.Pending)},
		{"Completed", strconv.Itoa(status.Completed)},
	}); err != nil {
		return err
	}
	printer.Println()
	return printer.Print(cacheTable{status: status, now: time.Now()})
}

func fetchStatus(addr string) (handlers.SchedulerResponse, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(addr, "/") + "/caches")
	if err != nil {
		return handlers.SchedulerResponse{}, fmt.Errorf("flushwatch is not reachable at %s: %w", addr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env statusEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return handlers.SchedulerResponse{}, fmt.Errorf("invalid status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return handlers.SchedulerResponse{}, fmt.Errorf("status request failed (%d): %s", resp.StatusCode, env.Error)
	}
	return env.Data, nil
}
