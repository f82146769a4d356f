package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"
)

// monitorCmd renders a live terminal dashboard of Supervisor diagnostics
// by polling the admin HTTP API — a thin, read-only client of the
// programmatic counters spec.md §6 names, never of the core directly.
func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Live terminal dashboard of environment/entity counters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "admin_addr",
				Usage: "Base URL of the admin HTTP API",
				Value: "http://localhost:8089",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval",
				Value: time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.String("admin_addr"), c.Duration("interval"))
		},
	}
}

type environmentsResponse struct {
	NumEnvironments int      `json:"num_environments"`
	NumEntities     int      `json:"num_entities"`
	Environments    []string `json:"environments"`
}

type environmentDetail struct {
	Name               string `json:"name"`
	NumReceivedEffects uint64 `json:"num_received_effects"`
	JoinedEntities     int    `json:"joined_entities"`
}

func runMonitor(baseURL string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("monitor: termui init: %w", err)
	}
	defer ui.Close()

	gauge := widgets.NewBarChart()
	gauge.Title = "num_received_effects by environment"
	gauge.SetRect(0, 0, 80, 20)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := ui.PollEvents()

	for {
		select {
		case e := <-events:
			if e.ID == "q" || e.ID == "<C-c>" {
				return nil
			}
		case <-ticker.C:
			labels, values, err := pollCounters(baseURL)
			if err != nil {
				continue
			}
			gauge.Labels = labels
			gauge.Data = values
			ui.Render(gauge)
		}
	}
}

func pollCounters(baseURL string) ([]string, []float64, error) {
	var list environmentsResponse
	if err := getJSON(baseURL+"/environments", &list); err != nil {
		return nil, nil, err
	}

	labels := make([]string, 0, len(list.Environments))
	values := make([]float64, 0, len(list.Environments))
	for _, name := range list.Environments {
		var detail environmentDetail
		if err := getJSON(baseURL+"/environments/"+name, &detail); err != nil {
			continue
		}
		labels = append(labels, name)
		values = append(values, float64(detail.NumReceivedEffects))
	}
	return labels, values, nil
}

func getJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
